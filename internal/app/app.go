// Package app wires the analysis pipeline: extract the certificate record,
// open a tool session, run the agent loop, and hand the result to rendering.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ghostequity/ghostequity/internal/extract"
	"github.com/ghostequity/ghostequity/internal/orchestrator"
	"github.com/ghostequity/ghostequity/internal/registry"
)

// Extractor is the slice of the certificate extractor the pipeline needs.
type Extractor interface {
	Extract(ctx context.Context, imageBytes []byte, mimeType string) (*extract.Record, error)
}

// Runner is the slice of the orchestrator the pipeline needs.
type Runner interface {
	Run(ctx context.Context, record *extract.Record, session orchestrator.Session) (string, error)
}

// Session combines the orchestrator's session contract with cleanup.
type Session interface {
	orchestrator.Session
	Close() error
}

// DialFunc opens a tool session. Swappable for tests.
type DialFunc func(ctx context.Context, sseURL string) (Session, error)

// Pipeline runs one certificate image end to end.
type Pipeline struct {
	extractor Extractor
	runner    Runner
	dial      DialFunc
	sseURL    string
}

// New creates a pipeline talking to the tool registry at sseURL.
func New(extractor Extractor, runner Runner, sseURL string) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		runner:    runner,
		sseURL:    sseURL,
		dial: func(ctx context.Context, sseURL string) (Session, error) {
			return registry.Dial(ctx, sseURL)
		},
	}
}

// Analyze runs the full pipeline and returns the final report markdown.
// Extraction failures abort before any session is opened. Once a session is
// open it is closed on every exit path, exactly once.
func (p *Pipeline) Analyze(ctx context.Context, imageBytes []byte, mimeType string) (string, error) {
	record, err := p.extractor.Extract(ctx, imageBytes, mimeType)
	if err != nil {
		return "", err
	}

	log.Info().
		Interface("company", record.CompanyName).
		Interface("shares", record.NumberOfShares).
		Msg("certificate extracted")

	session, err := p.dial(ctx, p.sseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", orchestrator.ErrSession, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("session close failed")
		}
	}()

	return p.runner.Run(ctx, record, session)
}
