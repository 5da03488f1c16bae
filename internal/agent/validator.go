package agent

import (
	"context"
	"time"
)

// GeoHint is an optional device location forwarded to the validator so it
// can name the city/country on the verdict.
type GeoHint struct {
	Latitude  float64
	Longitude float64
}

// Verdict is the structured output of the receipt validator. Validation
// policy lives entirely on the model side; the backend only interprets the
// structure and never re-derives validity.
type Verdict struct {
	IsValid           bool   `json:"is_valid"`
	ClickPoints       int    `json:"click_points"`
	Geolocation       string `json:"geolocation"`
	ValidationDetails string `json:"validation_details"`
	StoreName         string `json:"store_name"`
	ReceiptDate       string `json:"receipt_date"`
	TotalAmount       string `json:"total_amount"`
}

// ReceiptValidator validates a normalized bag-plus-receipt photo.
type ReceiptValidator interface {
	Validate(ctx context.Context, normalizedJPEG []byte, now time.Time, geo *GeoHint) (*Verdict, error)
	Close()
}
