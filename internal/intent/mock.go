package intent

import (
	"context"
	"sync"
)

// MockClassifier returns scripted results keyed by raw text, falling back to
// TagUnknown. Used in tests and as the explicit "mock" mode.
type MockClassifier struct {
	mu      sync.Mutex
	scripts map[string]Parsed
	calls   []string
}

func NewMockClassifier() *MockClassifier {
	return &MockClassifier{scripts: make(map[string]Parsed)}
}

func (c *MockClassifier) Script(rawText string, out Parsed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out.Raw = rawText
	c.scripts[rawText] = out
}

func (c *MockClassifier) Classify(_ context.Context, rawText string) Parsed {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, rawText)
	if out, ok := c.scripts[rawText]; ok {
		return out
	}
	return Parsed{Tag: TagUnknown, Raw: rawText}
}

func (c *MockClassifier) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}
