// Package llm provides the reasoning capability consumed by the analysis passes.
//
// Every backend is reduced to a single-shot Completer. Responses are untrusted
// text: callers decode them with DecodeJSON and validate the result before use.
// Clients never retry; a failed call is the caller's cue to fall back.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/config"
	"golang.org/x/time/rate"
)

var (
	// ErrUnavailable means no reasoning backend is configured.
	ErrUnavailable = errors.New("reasoning capability unavailable")

	// ErrMalformedResponse means the backend answered with something that is not the requested JSON.
	ErrMalformedResponse = errors.New("malformed model response")
)

// Completer sends one prompt and returns the raw completion text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultTemperature      = 0.2
)

// Disabled is the Completer used when no provider is configured.
type Disabled struct{}

// Complete always returns ErrUnavailable.
func (Disabled) Complete(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// New builds the Completer selected by cfg.Provider.
//
// All clients share one limiter, so concurrent passes draw from a single budget.
func New(cfg config.LLMConfig) (Completer, error) {
	if cfg.Provider == "" || cfg.Provider == "disabled" {
		return Disabled{}, nil
	}
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	httpClient := &http.Client{Timeout: or(cfg.Timeout, 60*time.Second)}

	switch cfg.Provider {
	case "anthropic":
		return &anthropicClient{
			model:      cfg.Model,
			apiKey:     cfg.APIKey,
			baseURL:    orString(cfg.BaseURL, defaultAnthropicBaseURL),
			maxTokens:  cfg.MaxTokens,
			httpClient: httpClient,
			limiter:    limiter,
		}, nil
	case "openai":
		return &openAIClient{
			model:      cfg.Model,
			apiKey:     cfg.APIKey,
			baseURL:    orString(cfg.BaseURL, defaultOpenAIBaseURL),
			maxTokens:  cfg.MaxTokens,
			httpClient: httpClient,
			limiter:    limiter,
		}, nil
	case "langchain":
		return NewLangchain(cfg, limiter)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func or(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func orString(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
