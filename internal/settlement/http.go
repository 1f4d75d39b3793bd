package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mzito/mazao/internal/reliability"
)

// HTTPClient forwards transfers to an external settlement service.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type transferRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type transferResponse struct {
	TxID string `json:"tx_id"`
}

func (c *HTTPClient) Transfer(ctx context.Context, from, to string, amount float64) (string, error) {
	payload, err := json.Marshal(transferRequest{From: from, To: to, Amount: amount})
	if err != nil {
		return "", fmt.Errorf("marshal transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return "", fmt.Errorf("settlement http status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", fmt.Errorf("settlement rejected transfer with status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out transferResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transfer response: %w", err)
	}
	if strings.TrimSpace(out.TxID) == "" {
		return "", fmt.Errorf("settlement response missing tx_id")
	}
	return out.TxID, nil
}
