package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/convoscan/internal/analysis"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAnalyzer struct {
	err error
}

func (f failingAnalyzer) Analyze(context.Context, analysis.Request) (*analysis.Outcome, error) {
	return nil, f.err
}

func (f failingAnalyzer) SenderNames(string) ([]string, error) {
	return nil, f.err
}

// connect wires a client session to s over in-memory transports.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func newTestServer(t *testing.T, a Analyzer) *Server {
	t.Helper()
	if a == nil {
		a = analysis.NewOrchestrator(analysis.Config{LLM: llm.Disabled{}})
	}
	s, err := NewServer(nil, a)
	require.NoError(t, err)
	return s
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

// structured round-trips StructuredContent into v.
func structured(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	b, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, v))
}

func text(res *mcp.CallToolResult) string {
	if len(res.Content) == 0 {
		return ""
	}
	if tc, ok := res.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestNewServer_RequiresAnalyzer(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	cs := connect(t, newTestServer(t, nil))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{toolAnalyze, toolSenders}, names)
}

func TestAnalyzeConversation(t *testing.T) {
	cs := connect(t, newTestServer(t, nil))

	res := call(t, cs, toolAnalyze, map[string]any{
		"transcript": "Me: hi\nJordan: I need you to wire money right now",
	})
	require.False(t, res.IsError, text(res))
	assert.Contains(t, text(res), "red flags")

	var result analysis.Result
	structured(t, res, &result)
	assert.Len(t, result.Messages, 2)
	assert.NotEmpty(t, result.Flags)
	assert.Equal(t, analysis.ProvenanceHeuristic, result.Provenance[analysis.PassScoring])
}

func TestAnalyzeConversation_Ambiguity(t *testing.T) {
	cs := connect(t, newTestServer(t, nil))

	res := call(t, cs, toolAnalyze, map[string]any{
		"transcript": "01/01/2024, 09:00 - Alex: hi\n01/01/2024, 09:01 - Sam: hello",
	})
	require.False(t, res.IsError)

	var out analysis.Outcome
	structured(t, res, &out)
	assert.True(t, out.NeedsRoleIdentifier)
	assert.Equal(t, []string{"Alex", "Sam"}, out.CandidateSenders)
	assert.Contains(t, text(res), "Alex, Sam")
}

func TestAnalyzeConversation_Errors(t *testing.T) {
	cs := connect(t, newTestServer(t, nil))

	res := call(t, cs, toolAnalyze, map[string]any{"transcript": "   "})
	assert.True(t, res.IsError)

	res = call(t, cs, toolAnalyze, map[string]any{"transcript": "Me: hi", "platform_hint": "fax"})
	assert.True(t, res.IsError)

	cs = connect(t, newTestServer(t, failingAnalyzer{err: errors.New("secret detail")}))
	res = call(t, cs, toolAnalyze, map[string]any{"transcript": "Me: hi"})
	assert.True(t, res.IsError)
	assert.NotContains(t, text(res), "secret detail")
}

func TestListSenders(t *testing.T) {
	cs := connect(t, newTestServer(t, nil))

	res := call(t, cs, toolSenders, map[string]any{
		"transcript": "01/01/2024, 09:00 - Alex: hi\n01/01/2024, 09:01 - Sam: hello\n01/01/2024, 09:02 - alex: again",
	})
	require.False(t, res.IsError)

	var out sendersOutput
	structured(t, res, &out)
	assert.Equal(t, []string{"Alex", "Sam"}, out.Senders)
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, "", categorizeError(nil))
	assert.Equal(t, "validation_error", categorizeError(errors.New("invalid input: x")))
	assert.Equal(t, "timeout", categorizeError(context.DeadlineExceeded))
	assert.Equal(t, "internal_error", categorizeError(errors.New("analysis failed")))
}
