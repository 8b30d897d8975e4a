package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/ghostequity/ghostequity/internal/jsonutil"
	"github.com/ghostequity/ghostequity/internal/provider/gemini"
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
	"google.golang.org/genai"
)

// Company status values the lookup may report.
const (
	StatusActive    = "active"
	StatusAcquired  = "acquired"
	StatusMerged    = "merged"
	StatusDissolved = "dissolved"
	StatusUnknown   = "unknown"
)

// TickerNA is the sentinel for "no active ticker".
const TickerNA = "NA"

// StatusReport is the fixed-shape answer of the status lookup. Any model
// response that does not decode into exactly this shape is a failure, not a
// best-effort partial.
type StatusReport struct {
	OriginalName    string `json:"original_name"`
	CurrentName     string `json:"current_name"`
	Status          string `json:"status"`
	Ticker          string `json:"ticker"`
	Source          string `json:"source"`
	AdditionalNotes string `json:"additional-notes"`
}

// StatusRequest carries the arguments of a status lookup.
type StatusRequest struct {
	CompanyName string `mapstructure:"company_name"`
	IssueDate   string `mapstructure:"issue_date"`
}

// Validate implements Validator.
func (r StatusRequest) Validate() error {
	if strings.TrimSpace(r.CompanyName) == "" {
		return fmt.Errorf("company_name is required")
	}
	return nil
}

const statusInstruction = `You are an AI assistant helping to verify the current status of companies based on historical stock share records.

You have access to the Google Search tool - always use it to check the real-time status of each company, since the data must be up-to-date and cannot be guessed or inferred.

For the company name provided, search and return the following as JSON:

- original_name: The original company name as given in the input.
- current_name: The most recent name of the company, if it has changed. If no change, use the original name.
- status: One of "active", "acquired", "merged", "dissolved", "unknown" - based on the most recent and reliable information.
- ticker: The most recent active ticker if the company is still traded or has a clear successor. "NA" otherwise.
- source: The URL of the page used to determine the above information.
- additional-notes: Any additional relevant information about the company, such as recent news or changes in ownership.

Respond only with a single JSON object. Do not include explanations or extra commentary.

Example output:
{
	"original_name": "Example Corporation Ltd.",
	"current_name": "Example Corp.",
	"status": "active",
	"ticker": "EXC",
	"source": "https://example.com/company-status",
	"additional-notes": "The company recently expanded its operations to Europe."
}

Input:

original_name: %s
issue_date: %s

Begin searching for the current status of the company now.`

// validStatuses is the closed set of accepted status values.
var validStatuses = map[string]bool{
	StatusActive:    true,
	StatusAcquired:  true,
	StatusMerged:    true,
	StatusDissolved: true,
	StatusUnknown:   true,
}

// NewStatusAdapter builds the check_company_status tool: a search-grounded
// model query returning the fixed-shape StatusReport.
func NewStatusAdapter(client gemini.GeminiClient, model string) Tool {
	schema := &provider.ParameterSchema{
		Type: "object",
		Properties: map[string]provider.PropertySchema{
			"company_name": {Type: "string", Description: "Full legal name of the company."},
			"issue_date":   {Type: "string", Description: "Date of share issuance in YYYY-MM-DD format."},
		},
		Required: []string{"company_name", "issue_date"},
	}

	executor := func(ctx context.Context, req StatusRequest) (any, error) {
		prompt := fmt.Sprintf(statusInstruction, req.CompanyName, req.IssueDate)

		contents := []*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{genai.NewPartFromText(prompt)},
			},
		}
		config := &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
		}

		resp, err := client.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("status search failed: %w", err)
		}

		text := candidateText(resp)
		if text == "" {
			return nil, fmt.Errorf("no response from model")
		}

		var report StatusReport
		if err := jsonutil.DecodeModelOutput(text, &report); err != nil {
			return nil, fmt.Errorf("invalid JSON response from model: %w", err)
		}

		if !validStatuses[report.Status] {
			return nil, fmt.Errorf("invalid status %q in model response", report.Status)
		}
		if report.OriginalName == "" {
			report.OriginalName = req.CompanyName
		}
		if report.CurrentName == "" {
			report.CurrentName = report.OriginalName
		}
		if report.Ticker == "" {
			report.Ticker = TickerNA
		}

		return report, nil
	}

	return NewBaseAdapter(
		"check_company_status",
		"Check the current status of a company from a historical share certificate. Uses web search to determine if the company is still active, has been acquired, merged, or dissolved, and returns structured JSON with status, ticker, and source link.",
		schema,
		executor,
	)
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}
