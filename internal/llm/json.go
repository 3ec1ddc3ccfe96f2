package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are a careful conversation-safety analyst. " +
	"Answer with exactly one JSON object matching the requested shape and nothing else."

// DecodeJSON extracts the JSON object from a completion and unmarshals it into v.
//
// Models sometimes wrap JSON in markdown fences or add a sentence before it,
// so everything outside the outermost braces is discarded. Any failure is
// reported as ErrMalformedResponse.
func DecodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object", ErrMalformedResponse)
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Ask completes prompt and decodes the answer into v.
func Ask(ctx context.Context, c Completer, prompt string, v any) error {
	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	return DecodeJSON(raw, v)
}
