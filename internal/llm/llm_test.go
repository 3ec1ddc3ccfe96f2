package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"
)

func testConfig(provider, url string) config.LLMConfig {
	return config.LLMConfig{
		Provider:  provider,
		Model:     "test-model",
		APIKey:    config.Secret("sk-test"),
		BaseURL:   url,
		Timeout:   5 * time.Second,
		RateLimit: 100,
		Burst:     10,
		MaxTokens: 256,
	}
}

func TestNew_Disabled(t *testing.T) {
	c, err := New(config.LLMConfig{Provider: "disabled"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "openai"})
	assert.Error(t, err)

	cfg := testConfig("oracle", "")
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestAnthropicClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 256, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "analyze this", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"ok\":true}"}]}`))
	}))
	defer server.Close()

	c, err := New(testConfig("anthropic", server.URL))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "analyze this")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer server.Close()

	c, err := New(testConfig("openai", server.URL))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
}

func TestClient_NoRetryOnServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"overloaded","message":"try later"}}`))
	}))
	defer server.Close()

	c, err := New(testConfig("anthropic", server.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "try later")
	assert.Equal(t, 1, calls)
}

func TestClient_ErrorScrubsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Incorrect API key provided: sk-test"}}`))
	}))
	defer server.Close()

	c, err := New(testConfig("openai", server.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided: [REDACTED]")
	assert.NotContains(t, err.Error(), "sk-test")
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c, err := New(testConfig("openai", server.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := &openAIClient{
		baseURL:    "http://127.0.0.1:1",
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(0.0001), 1),
	}
	// drain the single token so Wait must block
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "p")
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	type shape struct {
		Risk int `json:"risk"`
	}
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"plain", `{"risk": 40}`, 40, false},
		{"fenced", "```json\n{\"risk\": 41}\n```", 41, false},
		{"bare fence", "```\n{\"risk\": 42}\n```", 42, false},
		{"preamble", "Here you go: {\"risk\": 43} hope it helps", 43, false},
		{"no object", "I can't help with that", 0, true},
		{"broken", `{"risk": }`, 0, true},
		{"wrong type", `{"risk": "high"}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s shape
			err := DecodeJSON(tt.raw, &s)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Risk)
		})
	}
}

// fakeModel is a minimal llms.Model.
type fakeModel struct {
	reply  string
	err    error
	prompt string
	opts   llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range opts {
		o(&f.opts)
	}
	for _, m := range msgs {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				f.prompt += tc.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

func TestLangchainCompleter(t *testing.T) {
	model := &fakeModel{reply: `{"ok":1}`}
	c := NewLangchainFromModel(model, nil, 128)

	out, err := c.Complete(context.Background(), "find flags")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":1}`, out)
	assert.Contains(t, model.prompt, "find flags")
	assert.Contains(t, model.prompt, "JSON object")
	assert.Equal(t, defaultTemperature, model.opts.Temperature)
	assert.Equal(t, 128, model.opts.MaxTokens)

	model.err = errors.New("boom")
	_, err = c.Complete(context.Background(), "again")
	assert.Error(t, err)
}

func TestLangchainCompleter_ProseWrappedReply(t *testing.T) {
	var v struct {
		Flags []string `json:"flags"`
	}
	model := &fakeModel{reply: "Here is the analysis:\n{\"flags\":[\"financial_ask\"]}\nLet me know if you need more."}
	require.NoError(t, Ask(context.Background(), NewLangchainFromModel(model, nil, 0), "find flags", &v))
	assert.Equal(t, []string{"financial_ask"}, v.Flags)
	assert.Zero(t, model.opts.MaxTokens)
}

func TestAsk(t *testing.T) {
	var v struct {
		OK bool `json:"ok"`
	}
	model := &fakeModel{reply: "```json\n{\"ok\":true}\n```"}
	require.NoError(t, Ask(context.Background(), NewLangchainFromModel(model, nil, 0), "p", &v))
	assert.True(t, v.OK)

	assert.ErrorIs(t, Ask(context.Background(), Disabled{}, "p", &v), ErrUnavailable)
}
