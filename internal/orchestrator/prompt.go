package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ghostequity/ghostequity/internal/extract"
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
)

// buildTaskPrompt composes the task description for the agent loop: the
// objective, the extracted fields, the live tool catalog, and the explicit
// status-before-price data dependency. The dependency must be stated here so
// the model's own planning respects it.
func buildTaskPrompt(record *extract.Record, tools []provider.ToolDefinition) string {
	var b strings.Builder

	b.WriteString("You are an autonomous financial assistant tasked with analyzing a company name from an old shareholding certificate and finding the latest relevant details for the company.\n\n")

	b.WriteString("You have access to the following tools:\n\n")
	for i, tool := range tools {
		fmt.Fprintf(&b, "%d. `%s`: %s\n", i+1, tool.Name, tool.Description)
		if tool.Parameters != nil && len(tool.Parameters.Required) > 0 {
			fmt.Fprintf(&b, "   Required arguments: %s\n", strings.Join(tool.Parameters.Required, ", "))
		}
	}

	b.WriteString(`
### Objective:

- Use the company-status tool first to determine if the company still exists and, if so, whether the shares might be redeemable.
- The value-lookup tool requires a ticker, which only the status lookup can provide. Never call a value tool before the status lookup has returned, and skip value estimation entirely if no valid ticker was found.
- If a valid ticker is returned, call the value tool to estimate the total value of the holding.
- Summarize the outcome clearly:
  - Is the company still active?
  - How many shares are held?
  - Any action items for the user.

Return a structured final report in Markdown that is human-readable but derived from all tool outputs. When you have the final report, reply with it directly instead of calling another tool.

### Input:
`)

	fmt.Fprintf(&b, "- company_name: %s\n", fieldOrUnknown(record.CompanyName))
	fmt.Fprintf(&b, "- issue_date: %s\n", fieldOrUnknown(record.IssueDate))
	if record.NumberOfShares != nil {
		fmt.Fprintf(&b, "- number_of_shares: %d\n", *record.NumberOfShares)
	} else {
		b.WriteString("- number_of_shares: unknown\n")
	}

	b.WriteString("\nYou may begin processing.\n")

	return b.String()
}

func fieldOrUnknown(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "unknown"
	}
	return *s
}
