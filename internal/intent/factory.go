package intent

import (
	"fmt"
	"strings"
)

// New selects a classifier backend by mode: "rule" (and "auto", which
// currently resolves to the rule grammar), or "mock".
func New(mode string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto", "rule":
		return NewRuleClassifier(), nil
	case "mock":
		return NewMockClassifier(), nil
	default:
		return nil, fmt.Errorf("invalid classifier mode: %q (expected auto|rule|mock)", mode)
	}
}
