package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client moves funds between two ledger accounts. Transfer returns the
// settlement service's transaction reference on success.
type Client interface {
	Transfer(ctx context.Context, from, to string, amount float64) (string, error)
}

// Config controls client construction.
type Config struct {
	Mode    string
	HTTPURL string
}

// New builds a settlement client. Mode "auto" picks HTTP when a URL is
// configured and falls back to the in-memory mock.
func New(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPClient(cfg.HTTPURL), nil
		}
		return NewMockClient(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("settlement http url is required for http mode")
		}
		return NewHTTPClient(cfg.HTTPURL), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("invalid settlement mode: %q (expected auto|http|mock)", cfg.Mode)
	}
}
