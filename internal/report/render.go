// Package report renders the final analysis for the terminal. The model's
// answer is markdown; failures become labeled blocks so a run always produces
// visible output.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ghostequity/ghostequity/internal/extract"
	"github.com/ghostequity/ghostequity/internal/orchestrator"
)

const defaultWidth = 100

var (
	errorTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	errorBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			PaddingLeft(2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
)

// Renderer converts the run outcome into terminal output.
type Renderer struct {
	width int
}

// NewRenderer creates a renderer with the given wrap width; zero or negative
// falls back to a sensible default.
func NewRenderer(width int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	return &Renderer{width: width}
}

// Render formats the model's final markdown answer for the terminal. On a
// renderer failure the raw markdown is returned untouched rather than lost.
func (r *Renderer) Render(markdown string) string {
	header := headerStyle.Render("Share Certificate Analysis") + "\n"

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		return header + markdown
	}

	out, err := md.Render(markdown)
	if err != nil {
		return header + markdown
	}
	return header + strings.TrimRight(out, "\n") + "\n"
}

// RenderError formats a failed run. Each failure class gets its own label so
// the reader knows which stage gave up.
func (r *Renderer) RenderError(err error) string {
	title := "Analysis failed"
	switch {
	case errors.Is(err, extract.ErrExtraction):
		title = "Certificate extraction failed"
	case errors.Is(err, orchestrator.ErrSession):
		title = "Tool session failed"
	case errors.Is(err, orchestrator.ErrRoundLimit):
		title = "Analysis did not converge"
	}

	body := "unknown error"
	if err != nil {
		body = err.Error()
	}

	return fmt.Sprintf("%s\n%s\n",
		errorTitleStyle.Render(title),
		errorBodyStyle.Render(body),
	)
}
