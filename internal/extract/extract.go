// Package extract turns a scanned share-certificate image into a structured
// record via a vision-capable Gemini model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ghostequity/ghostequity/internal/jsonutil"
	"github.com/ghostequity/ghostequity/internal/provider/gemini"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ErrExtraction classifies every extraction failure: bad image data,
// non-JSON model output, or a payload that does not match the record shape.
// The caller aborts before opening any tool session when it sees this.
var ErrExtraction = errors.New("extraction failed")

// Record holds the fields decoded from a certificate image.
// Nil means the field was absent or illegible in the document.
// Immutable after creation.
type Record struct {
	CompanyName     *string `json:"company_name"`
	ShareholderName *string `json:"shareholder_name"`
	IssueDate       *string `json:"issue_date"`
	NumberOfShares  *int64  `json:"number_of_shares"`
}

// recordKeys is the exact key set a valid extraction payload must carry.
var recordKeys = []string{"company_name", "shareholder_name", "issue_date", "number_of_shares"}

const instruction = `You are given an image or scanned document of an old materialized shareholding certificate. Your task is to extract the following specific fields from the document and return the output in strict JSON format:

1. company_name: Full legal name of the company issuing the certificate.
2. shareholder_name: Full legal name of the individual or entity to whom the shares are issued.
3. issue_date: The date on which the shares were issued, in YYYY-MM-DD format. If the date is not present, return null.
4. number_of_shares: Total number of shares issued, as an integer.

Constraints:

1. Return only the JSON output, with no additional commentary.
2. If any of the fields are missing or illegible, use null.
3. Ensure the extracted text is accurate and complete, especially proper nouns and numeric values.
4. Do not infer or guess - only extract what is explicitly stated in the certificate.

Output format:

{
  "company_name": "Example Corporation Ltd.",
  "shareholder_name": "John A. Doe",
  "issue_date": "1987-04-15",
  "number_of_shares": 1000
}

Begin parsing the document now.`

// Extractor sends certificate images to the vision model and decodes the result.
type Extractor struct {
	client gemini.GeminiClient
	model  string
}

// New creates an Extractor bound to a Gemini client and model name.
func New(client gemini.GeminiClient, model string) *Extractor {
	return &Extractor{client: client, model: model}
}

// Extract sends the image plus the fixed instruction to the vision model and
// decodes the response into a Record. It is request/response with no retries;
// the caller may retry on failure.
func (e *Extractor) Extract(ctx context.Context, imageBytes []byte, mimeType string) (*Record, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrExtraction)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				genai.NewPartFromText(instruction),
				genai.NewPartFromBytes(imageBytes, mimeType),
			},
		},
	}

	resp, err := e.client.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("%w: vision call: %v", ErrExtraction, err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrExtraction)
	}

	record, err := DecodeRecord(text)
	if err != nil {
		log.Debug().Err(err).Msg("extraction payload rejected")
		return nil, err
	}

	return record, nil
}

// DecodeRecord parses raw model text into a Record. The payload must be a
// single JSON object with exactly the four expected keys; anything else is
// rejected, never coerced into a partially populated record.
func DecodeRecord(text string) (*Record, error) {
	payload := jsonutil.StripFences(text)

	var raw map[string]json.RawMessage
	if err := jsonutil.DecodeStrict([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if len(raw) != len(recordKeys) {
		return nil, fmt.Errorf("%w: expected exactly %d keys, got %d", ErrExtraction, len(recordKeys), len(raw))
	}
	for _, key := range recordKeys {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrExtraction, key)
		}
	}

	var record Record
	if err := jsonutil.DecodeStrict([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if record.NumberOfShares != nil && *record.NumberOfShares < 0 {
		return nil, fmt.Errorf("%w: number_of_shares must be non-negative", ErrExtraction)
	}

	return &record, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}
