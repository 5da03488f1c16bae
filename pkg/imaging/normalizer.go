package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"clickbag.eco/backend/pkg/apperror"
	"golang.org/x/image/draw"
)

const (
	// MaxDimension is the bounding box the normalized image must fit in.
	MaxDimension = 800
	// Quality is the fixed JPEG quality of the normalized encoding.
	Quality = 80
)

// Normalize decodes raw image bytes, scales the image down to fit inside
// MaxDimension x MaxDimension (never up), and re-encodes it as JPEG at the
// fixed quality. The output is deterministic for identical input bytes,
// which is what makes it usable as a fingerprint source.
func Normalize(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrDecode, err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty image", apperror.ErrDecode)
	}

	targetW, targetH := fitWithin(width, height, MaxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode normalized image: %w", err)
	}

	return buf.Bytes(), nil
}

// fitWithin scales (w, h) to fit inside a max x max box preserving aspect
// ratio. Images already inside the box keep their dimensions.
func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}

	if w >= h {
		scaled := h * max / w
		if scaled < 1 {
			scaled = 1
		}
		return max, scaled
	}

	scaled := w * max / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, max
}
