package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/ghostequity/ghostequity/internal/extract"
	"github.com/ghostequity/ghostequity/internal/orchestrator/models"
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider implements provider.Provider for testing
type MockProvider struct {
	GenerateFunc func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error)
	Requests     []*provider.GenerateRequest
}

func (m *MockProvider) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *MockProvider) GetModel() string { return "test-model" }

// ScriptedProvider returns canned responses in order.
type ScriptedProvider struct {
	MockProvider
	Responses []*provider.GenerateResponse
	calls     int
}

func NewScriptedProvider(responses ...*provider.GenerateResponse) *ScriptedProvider {
	p := &ScriptedProvider{Responses: responses}
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		p.Requests = append(p.Requests, req)
		if p.calls >= len(p.Responses) {
			return nil, errors.New("script exhausted")
		}
		resp := p.Responses[p.calls]
		p.calls++
		return resp, nil
	}
	return p
}

func (p *ScriptedProvider) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	return p.GenerateFunc(ctx, req)
}

// MockSession implements Session for testing
type MockSession struct {
	InitializeFunc func(ctx context.Context) error
	ListToolsFunc  func(ctx context.Context) ([]provider.ToolDefinition, error)
	CallToolFunc   func(ctx context.Context, name string, args map[string]any) (models.ToolResult, error)

	Calls []string // tool names in dispatch order
}

func (m *MockSession) Initialize(ctx context.Context) error {
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx)
	}
	return nil
}

func (m *MockSession) ListTools(ctx context.Context) ([]provider.ToolDefinition, error) {
	if m.ListToolsFunc != nil {
		return m.ListToolsFunc(ctx)
	}
	return testCatalog(), nil
}

func (m *MockSession) CallTool(ctx context.Context, name string, args map[string]any) (models.ToolResult, error) {
	m.Calls = append(m.Calls, name)
	if m.CallToolFunc != nil {
		return m.CallToolFunc(ctx, name, args)
	}
	return models.ToolResult{Name: name, Content: "{}"}, nil
}

func testCatalog() []provider.ToolDefinition {
	return []provider.ToolDefinition{
		{
			Name:        "check_company_status",
			Description: "Check the current status of a company",
			Parameters: &provider.ParameterSchema{
				Type: "object",
				Properties: map[string]provider.PropertySchema{
					"company_name": {Type: "string"},
					"issue_date":   {Type: "string"},
				},
				Required: []string{"company_name", "issue_date"},
			},
		},
		{
			Name:        "get_value",
			Description: "Fetch the current value of shares by ticker",
			Parameters: &provider.ParameterSchema{
				Type: "object",
				Properties: map[string]provider.PropertySchema{
					"symbol":   {Type: "string"},
					"quantity": {Type: "integer"},
				},
				Required: []string{"symbol", "quantity"},
			},
		},
	}
}

func testRecord() *extract.Record {
	company := "Acme Mills Ltd."
	holder := "J. Doe"
	date := "1968-03-02"
	shares := int64(200)
	return &extract.Record{
		CompanyName:     &company,
		ShareholderName: &holder,
		IssueDate:       &date,
		NumberOfShares:  &shares,
	}
}

func toolCallResp(name string, args map[string]any) *provider.GenerateResponse {
	return &provider.GenerateResponse{
		Content: provider.ResponseContent{
			Type:      provider.ResponseTypeToolCall,
			ToolCalls: []models.ToolCall{{Name: name, Args: args}},
		},
	}
}

func textResp(text string) *provider.GenerateResponse {
	return &provider.GenerateResponse{
		Content: provider.ResponseContent{Type: provider.ResponseTypeText, Text: text},
	}
}

func TestRun_FullMockRoundTrip(t *testing.T) {
	// status -> price -> final answer; fixed responses produce a
	// deterministic report.
	p := NewScriptedProvider(
		toolCallResp("check_company_status", map[string]any{"company_name": "Acme Mills Ltd.", "issue_date": "1968-03-02"}),
		toolCallResp("get_value", map[string]any{"symbol": "ACME", "quantity": float64(200)}),
		textResp("# Report\nAcme Mills Ltd. is active."),
	)
	session := &MockSession{
		CallToolFunc: func(ctx context.Context, name string, args map[string]any) (models.ToolResult, error) {
			switch name {
			case "check_company_status":
				return models.ToolResult{Name: name, Content: `{"status":"active","ticker":"ACME"}`}, nil
			default:
				return models.ToolResult{Name: name, Content: `{"success":true,"total_price":5000}`}, nil
			}
		},
	}

	report, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.NoError(t, err)
	assert.Equal(t, "# Report\nAcme Mills Ltd. is active.", report)
	assert.Equal(t, []string{"check_company_status", "get_value"}, session.Calls)
}

func TestRun_StatusLookupPrecedesValueLookup(t *testing.T) {
	p := NewScriptedProvider(
		toolCallResp("check_company_status", map[string]any{"company_name": "Acme Mills Ltd.", "issue_date": "1968-03-02"}),
		toolCallResp("get_value", map[string]any{"symbol": "ACME", "quantity": float64(200)}),
		textResp("done"),
	)
	session := &MockSession{}

	_, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.NoError(t, err)
	require.Len(t, session.Calls, 2)
	assert.Equal(t, "check_company_status", session.Calls[0], "dependency-root tool must be dispatched first")
}

func TestRun_TaskPromptDeclaresDependencyAndFields(t *testing.T) {
	p := NewScriptedProvider(textResp("done"))
	session := &MockSession{}

	_, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.NoError(t, err)
	require.NotEmpty(t, p.Requests)
	prompt := p.Requests[0].History[0].Content
	assert.Contains(t, prompt, "Acme Mills Ltd.")
	assert.Contains(t, prompt, "1968-03-02")
	assert.Contains(t, prompt, "number_of_shares: 200")
	assert.Contains(t, prompt, "Never call a value tool before the status lookup")
	assert.Contains(t, prompt, "check_company_status")
	assert.Contains(t, prompt, "get_value")
}

func TestRun_ToolFailureIsNotFatal(t *testing.T) {
	p := NewScriptedProvider(
		toolCallResp("check_company_status", map[string]any{"company_name": "Acme Mills Ltd.", "issue_date": "1968-03-02"}),
		textResp("The status lookup failed; no further action is possible."),
	)
	session := &MockSession{
		CallToolFunc: func(ctx context.Context, name string, args map[string]any) (models.ToolResult, error) {
			return models.ToolResult{Name: name, Error: "upstream search unavailable"}, nil
		},
	}

	report, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.NoError(t, err)
	assert.Contains(t, report, "no further action")

	// The failure text reached the model as conversation context.
	last := p.Requests[len(p.Requests)-1]
	var sawError bool
	for _, msg := range last.History {
		for _, result := range msg.ToolResults {
			if result.Error == "upstream search unavailable" {
				sawError = true
			}
		}
	}
	assert.True(t, sawError, "tool failure must be folded into conversation state")
}

func TestRun_UnknownToolNotForwarded(t *testing.T) {
	p := NewScriptedProvider(
		toolCallResp("delete_everything", map[string]any{}),
		textResp("done"),
	)
	session := &MockSession{}

	_, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.NoError(t, err)
	assert.Empty(t, session.Calls, "unknown tool must not reach the registry")

	last := p.Requests[len(p.Requests)-1]
	var sawError bool
	for _, msg := range last.History {
		for _, result := range msg.ToolResults {
			if result.Name == "delete_everything" && result.Error != "" {
				sawError = true
			}
		}
	}
	assert.True(t, sawError)
}

func TestRun_SchemaMismatchNotForwarded(t *testing.T) {
	// Missing required issue_date
	p := NewScriptedProvider(
		toolCallResp("check_company_status", map[string]any{"company_name": "Acme"}),
		textResp("done"),
	)
	session := &MockSession{}

	_, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.NoError(t, err)
	assert.Empty(t, session.Calls)
}

func TestRun_InitializeFailureIsFatal(t *testing.T) {
	p := NewScriptedProvider()
	session := &MockSession{
		InitializeFunc: func(ctx context.Context) error {
			return errors.New("handshake rejected")
		},
	}

	_, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.ErrorIs(t, err, ErrSession)
	assert.Contains(t, err.Error(), "handshake rejected")
	assert.Empty(t, p.Requests, "no model calls after a failed handshake")
}

func TestRun_ListToolsFailureIsFatal(t *testing.T) {
	p := NewScriptedProvider()
	session := &MockSession{
		ListToolsFunc: func(ctx context.Context) ([]provider.ToolDefinition, error) {
			return nil, errors.New("catalog unavailable")
		},
	}

	_, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.ErrorIs(t, err, ErrSession)
	assert.Contains(t, err.Error(), "catalog unavailable")
}

func TestRun_TransportDisconnectMidCallIsFatal(t *testing.T) {
	p := NewScriptedProvider(
		toolCallResp("check_company_status", map[string]any{"company_name": "Acme", "issue_date": "1968-03-02"}),
	)
	session := &MockSession{
		CallToolFunc: func(ctx context.Context, name string, args map[string]any) (models.ToolResult, error) {
			return models.ToolResult{}, errors.New("connection reset")
		},
	}

	_, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.ErrorIs(t, err, ErrSession)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRun_RoundLimitExceeded(t *testing.T) {
	// The model keeps calling tools and never answers.
	p := &MockProvider{
		GenerateFunc: func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
			return toolCallResp("check_company_status", map[string]any{"company_name": "Acme", "issue_date": "1968-03-02"}), nil
		},
	}
	session := &MockSession{}

	_, err := New(p, Options{MaxRounds: 3}).Run(context.Background(), testRecord(), session)

	require.ErrorIs(t, err, ErrRoundLimit)
	assert.Len(t, session.Calls, 3)
}

func TestRun_CancellationAbortsBetweenRounds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &MockProvider{
		GenerateFunc: func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
			cancel() // cancel after the first decision
			return toolCallResp("check_company_status", map[string]any{"company_name": "Acme", "issue_date": "1968-03-02"}), nil
		},
	}
	session := &MockSession{}

	_, err := New(p, Options{MaxRounds: 8}).Run(ctx, testRecord(), session)

	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_RefusalIsFatal(t *testing.T) {
	p := NewScriptedProvider(&provider.GenerateResponse{
		Content: provider.ResponseContent{
			Type:          provider.ResponseTypeRefusal,
			RefusalReason: "safety",
		},
	})
	session := &MockSession{}

	_, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestRun_DissolvedCompanyExample(t *testing.T) {
	// Status tool reports dissolved with no ticker: the model skips value
	// estimation and recommends no further action.
	p := NewScriptedProvider(
		toolCallResp("check_company_status", map[string]any{"company_name": "Acme Mills Ltd.", "issue_date": "1968-03-02"}),
		textResp("## Report\n\nAcme Mills Ltd. is dissolved. 200 shares held. No live ticker exists, so no value estimation was attempted.\n\n**Action items:** none; no further action is recommended."),
	)
	session := &MockSession{
		CallToolFunc: func(ctx context.Context, name string, args map[string]any) (models.ToolResult, error) {
			return models.ToolResult{
				Name:    name,
				Content: `{"original_name":"Acme Mills Ltd.","current_name":"Acme Mills Ltd.","status":"dissolved","ticker":"NA","source":"https://example.com","additional-notes":""}`,
			}, nil
		},
	}

	report, err := New(p, Options{MaxRounds: 8}).Run(context.Background(), testRecord(), session)

	require.NoError(t, err)
	assert.Contains(t, report, "dissolved")
	assert.Contains(t, report, "no further action")
	assert.Equal(t, []string{"check_company_status"}, session.Calls, "no value lookup for a dissolved company")
}

func TestValidateArgs(t *testing.T) {
	descriptor := testCatalog()[1] // get_value

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"symbol": "ACME", "quantity": float64(200)}, false},
		{"integral float accepted", map[string]any{"symbol": "ACME", "quantity": float64(3)}, false},
		{"missing required", map[string]any{"symbol": "ACME"}, true},
		{"wrong type", map[string]any{"symbol": 42, "quantity": float64(1)}, true},
		{"fractional integer", map[string]any{"symbol": "ACME", "quantity": 1.5}, true},
		{"unexpected argument", map[string]any{"symbol": "ACME", "quantity": float64(1), "currency": "INR"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateArgs(descriptor, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
