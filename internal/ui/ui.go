// Package ui shows a spinner while the analysis pipeline runs and prints the
// rendered report when it finishes.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ghostequity/ghostequity/internal/report"
)

// Analyzer runs one certificate image through the pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, imageBytes []byte, mimeType string) (string, error)
}

type doneMsg string
type failMsg struct{ err error }

var statusStyle = lipgloss.NewStyle().Faint(true)

// Model is the Bubble Tea model for one analysis run.
type Model struct {
	spinner  spinner.Model
	renderer *report.Renderer

	analyzer   Analyzer
	imageBytes []byte
	mimeType   string

	running bool
	output  string
	err     error
}

// NewModel creates the run model.
func NewModel(analyzer Analyzer, renderer *report.Renderer, imageBytes []byte, mimeType string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		spinner:    sp,
		renderer:   renderer,
		analyzer:   analyzer,
		imageBytes: imageBytes,
		mimeType:   mimeType,
		running:    true,
	}
}

// Init kicks off the spinner and the analysis.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runAnalysis())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.running = false
			m.err = context.Canceled
			m.output = m.renderer.RenderError(fmt.Errorf("analysis canceled"))
			return m, tea.Quit
		}
		return m, nil

	case doneMsg:
		m.running = false
		m.output = m.renderer.Render(string(msg))
		return m, tea.Quit

	case failMsg:
		m.running = false
		m.err = msg.err
		m.output = m.renderer.RenderError(msg.err)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the spinner while running, nothing after; the final report is
// printed by the caller so it survives the program teardown.
func (m Model) View() string {
	if !m.running {
		return ""
	}
	return m.spinner.View() + statusStyle.Render(" analyzing certificate...") + "\n"
}

// Output returns the rendered result and the run error, valid after the
// program exits.
func (m Model) Output() (string, error) {
	return m.output, m.err
}

func (m Model) runAnalysis() tea.Cmd {
	return func() tea.Msg {
		result, err := m.analyzer.Analyze(context.Background(), m.imageBytes, m.mimeType)
		if err != nil {
			return failMsg{err: err}
		}
		return doneMsg(result)
	}
}

// Run executes the full interactive run and returns the rendered output plus
// the pipeline error, if any.
func Run(analyzer Analyzer, renderer *report.Renderer, imageBytes []byte, mimeType string) (string, error) {
	program := tea.NewProgram(NewModel(analyzer, renderer, imageBytes, mimeType))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("ui: %w", err)
	}

	model, ok := final.(Model)
	if !ok {
		return "", fmt.Errorf("ui: unexpected model type %T", final)
	}
	return model.Output()
}
