package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/kristentruong11/sun11this/internal/generate"
)

// MockGenerator is a deterministic generate.Generator. Replies are selected
// by prompt substring, in registration order; unmatched prompts get Default.
type MockGenerator struct {
	mu      sync.Mutex
	rules   []rule
	prompts []string

	// Default is returned when no rule matches.
	Default string

	// Err, when set, is returned for every call.
	Err error
}

type rule struct {
	substr string
	reply  string
}

// NewMockGenerator creates a mock with a default reply.
func NewMockGenerator(defaultReply string) *MockGenerator {
	return &MockGenerator{Default: defaultReply}
}

var _ generate.Generator = (*MockGenerator)(nil)

// Respond registers a reply for prompts containing substr.
func (g *MockGenerator) Respond(substr, reply string) *MockGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules = append(g.rules, rule{substr: substr, reply: reply})
	return g
}

func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	for _, r := range g.rules {
		if strings.Contains(prompt, r.substr) {
			return r.reply, nil
		}
	}
	return g.Default, nil
}

// Prompts returns every prompt seen so far.
func (g *MockGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}
