package llm

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/convoscan/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// LangchainCompleter adapts any langchaingo model to Completer.
type LangchainCompleter struct {
	model     llms.Model
	limiter   *rate.Limiter
	maxTokens int
}

// NewLangchain builds an OpenAI-compatible langchaingo model from cfg.
// BaseURL may point at any server speaking the OpenAI wire format.
func NewLangchain(cfg config.LLMConfig, limiter *rate.Limiter) (*LangchainCompleter, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey.Value()),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating langchain model: %w", err)
	}
	return NewLangchainFromModel(model, limiter, cfg.MaxTokens), nil
}

// NewLangchainFromModel wraps an existing model. limiter may be nil.
func NewLangchainFromModel(model llms.Model, limiter *rate.Limiter, maxTokens int) *LangchainCompleter {
	return &LangchainCompleter{model: model, limiter: limiter, maxTokens: maxTokens}
}

// Complete runs a single-prompt generation. The system prompt asks for JSON
// and DecodeJSON tolerates surrounding prose.
func (l *LangchainCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}
	}

	opts := []llms.CallOption{
		llms.WithTemperature(defaultTemperature),
	}
	if l.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(l.maxTokens))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, l.model, systemPrompt+"\n\n"+prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("langchain generate: %w", err)
	}
	return out, nil
}

var _ Completer = (*LangchainCompleter)(nil)
