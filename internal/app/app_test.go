package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostequity/ghostequity/internal/extract"
	"github.com/ghostequity/ghostequity/internal/orchestrator"
	orchmodels "github.com/ghostequity/ghostequity/internal/orchestrator/models"
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
)

type MockExtractor struct {
	ExtractFunc func(ctx context.Context, imageBytes []byte, mimeType string) (*extract.Record, error)
}

func (m *MockExtractor) Extract(ctx context.Context, imageBytes []byte, mimeType string) (*extract.Record, error) {
	return m.ExtractFunc(ctx, imageBytes, mimeType)
}

type MockRunner struct {
	RunFunc func(ctx context.Context, record *extract.Record, session orchestrator.Session) (string, error)
}

func (m *MockRunner) Run(ctx context.Context, record *extract.Record, session orchestrator.Session) (string, error) {
	return m.RunFunc(ctx, record, session)
}

type MockPipelineSession struct {
	CloseCalls int
}

func (m *MockPipelineSession) Initialize(ctx context.Context) error { return nil }
func (m *MockPipelineSession) ListTools(ctx context.Context) ([]provider.ToolDefinition, error) {
	return nil, nil
}
func (m *MockPipelineSession) CallTool(ctx context.Context, name string, args map[string]any) (orchmodels.ToolResult, error) {
	return orchmodels.ToolResult{}, nil
}
func (m *MockPipelineSession) Close() error {
	m.CloseCalls++
	return nil
}

func testRecord() *extract.Record {
	company := "Acme Mills Ltd."
	shares := int64(200)
	return &extract.Record{CompanyName: &company, NumberOfShares: &shares}
}

func newPipeline(extractor Extractor, runner Runner, dial DialFunc) *Pipeline {
	p := New(extractor, runner, "http://127.0.0.1:8050/sse")
	p.dial = dial
	return p
}

func TestAnalyze_Success_ClosesSessionOnce(t *testing.T) {
	session := &MockPipelineSession{}
	p := newPipeline(
		&MockExtractor{ExtractFunc: func(ctx context.Context, imageBytes []byte, mimeType string) (*extract.Record, error) {
			return testRecord(), nil
		}},
		&MockRunner{RunFunc: func(ctx context.Context, record *extract.Record, s orchestrator.Session) (string, error) {
			return "final report", nil
		}},
		func(ctx context.Context, sseURL string) (Session, error) { return session, nil },
	)

	report, err := p.Analyze(context.Background(), []byte("img"), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "final report", report)
	assert.Equal(t, 1, session.CloseCalls)
}

func TestAnalyze_ExtractionFailure_NoSessionOpened(t *testing.T) {
	dialed := false
	p := newPipeline(
		&MockExtractor{ExtractFunc: func(ctx context.Context, imageBytes []byte, mimeType string) (*extract.Record, error) {
			return nil, fmt.Errorf("%w: unreadable image", extract.ErrExtraction)
		}},
		&MockRunner{RunFunc: func(ctx context.Context, record *extract.Record, s orchestrator.Session) (string, error) {
			t.Fatal("runner must not be called")
			return "", nil
		}},
		func(ctx context.Context, sseURL string) (Session, error) {
			dialed = true
			return &MockPipelineSession{}, nil
		},
	)

	_, err := p.Analyze(context.Background(), []byte("img"), "image/jpeg")

	require.ErrorIs(t, err, extract.ErrExtraction)
	assert.False(t, dialed)
}

func TestAnalyze_DialFailure_IsSessionError(t *testing.T) {
	p := newPipeline(
		&MockExtractor{ExtractFunc: func(ctx context.Context, imageBytes []byte, mimeType string) (*extract.Record, error) {
			return testRecord(), nil
		}},
		&MockRunner{RunFunc: func(ctx context.Context, record *extract.Record, s orchestrator.Session) (string, error) {
			return "", nil
		}},
		func(ctx context.Context, sseURL string) (Session, error) {
			return nil, errors.New("connection refused")
		},
	)

	_, err := p.Analyze(context.Background(), []byte("img"), "image/jpeg")

	require.ErrorIs(t, err, orchestrator.ErrSession)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAnalyze_RunnerFailure_StillClosesSession(t *testing.T) {
	session := &MockPipelineSession{}
	p := newPipeline(
		&MockExtractor{ExtractFunc: func(ctx context.Context, imageBytes []byte, mimeType string) (*extract.Record, error) {
			return testRecord(), nil
		}},
		&MockRunner{RunFunc: func(ctx context.Context, record *extract.Record, s orchestrator.Session) (string, error) {
			return "", fmt.Errorf("%w: disconnect mid-call", orchestrator.ErrSession)
		}},
		func(ctx context.Context, sseURL string) (Session, error) { return session, nil },
	)

	_, err := p.Analyze(context.Background(), []byte("img"), "image/jpeg")

	require.ErrorIs(t, err, orchestrator.ErrSession)
	assert.Equal(t, 1, session.CloseCalls)
}

func TestAnalyze_RoundLimit_StillClosesSession(t *testing.T) {
	session := &MockPipelineSession{}
	p := newPipeline(
		&MockExtractor{ExtractFunc: func(ctx context.Context, imageBytes []byte, mimeType string) (*extract.Record, error) {
			return testRecord(), nil
		}},
		&MockRunner{RunFunc: func(ctx context.Context, record *extract.Record, s orchestrator.Session) (string, error) {
			return "", orchestrator.ErrRoundLimit
		}},
		func(ctx context.Context, sseURL string) (Session, error) { return session, nil },
	)

	_, err := p.Analyze(context.Background(), []byte("img"), "image/jpeg")

	require.ErrorIs(t, err, orchestrator.ErrRoundLimit)
	assert.Equal(t, 1, session.CloseCalls)
}
