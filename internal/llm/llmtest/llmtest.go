// Package llmtest provides a scripted Completer for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/convoscan/internal/llm"
)

// Completer answers prompts from a script keyed by a marker substring.
// Prompts matching no marker get Err, or llm.ErrUnavailable when Err is nil.
type Completer struct {
	mu        sync.Mutex
	responses map[string]string
	Err       error
	Panic     bool
	prompts   []string
}

// New returns a Completer with no scripted answers.
func New() *Completer {
	return &Completer{responses: make(map[string]string)}
}

// On scripts response for any prompt containing marker.
func (c *Completer) On(marker, response string) *Completer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[marker] = response
	return c
}

// Complete implements llm.Completer.
func (c *Completer) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.Panic {
		panic("llmtest: scripted panic")
	}
	for marker, resp := range c.responses {
		if strings.Contains(prompt, marker) {
			return resp, nil
		}
	}
	if c.Err != nil {
		return "", c.Err
	}
	return "", llm.ErrUnavailable
}

// Calls returns how many prompts were received.
func (c *Completer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// Prompts returns a copy of every prompt received.
func (c *Completer) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

var _ llm.Completer = (*Completer)(nil)
