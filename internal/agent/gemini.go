package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"clickbag.eco/backend/pkg/apperror"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const validationPrompt = `
You are the validation service of ClickBag, an app that rewards shoppers for
reusing shopping bags. You are given a single photo that must show BOTH a
reusable shopping bag AND a purchase receipt from the same shopping trip.

Current date-time: %s
Device location: %s

Instructions:
1. Decide whether the photo genuinely shows a reusable bag together with a
   plausible, recent receipt. Screenshots, screens photographed, stock photos
   and obviously staged images are invalid.
2. If valid, award exactly %d click points. If invalid, award 0.
3. Extract the store name, receipt date and total amount from the receipt if
   they are readable. Leave a field empty when it cannot be read.
4. If you can tell the city/country from the receipt or location, fill
   "geolocation" as "City, Country"; otherwise use "N/A".
5. "validation_details" must always contain a short human-readable
   explanation of the decision. Never leave it empty.
6. Output MUST be JSON:
{"is_valid": bool, "click_points": int, "geolocation": "...",
 "validation_details": "...", "store_name": "...", "receipt_date": "...",
 "total_amount": "..."}
`

// GeminiValidator is the Google Gemini implementation of ReceiptValidator.
type GeminiValidator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	award  int
}

// NewGeminiValidator builds a Gemini-backed validator. GEMINI_API_KEY must
// be set. award is the fixed click-point value per approved validation.
func NewGeminiValidator(ctx context.Context, modelName string, award int) (*GeminiValidator, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	model := client.GenerativeModel(modelName)
	// Verdicts should be as repeatable as the model allows.
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	return &GeminiValidator{
		client: client,
		model:  model,
		award:  award,
	}, nil
}

func (v *GeminiValidator) Validate(ctx context.Context, normalizedJPEG []byte, now time.Time, geo *GeoHint) (*Verdict, error) {
	location := "not provided"
	if geo != nil {
		location = fmt.Sprintf("lat %.5f, lng %.5f", geo.Latitude, geo.Longitude)
	}

	prompt := fmt.Sprintf(validationPrompt, now.Format(time.RFC3339), location, v.award)

	resp, err := v.model.GenerateContent(ctx,
		genai.ImageData("jpeg", normalizedJPEG),
		genai.Text(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrValidationUnavailable, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty response", apperror.ErrValidationUnavailable)
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		txt, ok := part.(genai.Text)
		if !ok {
			continue
		}

		var verdict Verdict
		if err := json.Unmarshal([]byte(txt), &verdict); err != nil {
			return nil, fmt.Errorf("%w: unparseable verdict: %v", apperror.ErrValidationUnavailable, err)
		}
		if verdict.ValidationDetails == "" {
			return nil, fmt.Errorf("%w: verdict missing validation details", apperror.ErrValidationUnavailable)
		}
		return &verdict, nil
	}

	return nil, fmt.Errorf("%w: no text content in response", apperror.ErrValidationUnavailable)
}

func (v *GeminiValidator) Close() {
	v.client.Close()
}
