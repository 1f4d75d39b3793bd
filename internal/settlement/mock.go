package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Transfer is one completed mock transfer.
type Transfer struct {
	TxID   string
	From   string
	To     string
	Amount float64
}

// MockClient records transfers in memory. Tests and the demo binary use
// it in place of a real settlement service.
type MockClient struct {
	mu        sync.Mutex
	transfers []Transfer
	failNext  int
	failErr   error
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// FailNext makes the next n transfers return err.
func (c *MockClient) FailNext(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
	c.failErr = err
	if c.failErr == nil {
		c.failErr = errors.New("settlement unavailable")
	}
}

func (c *MockClient) Transfer(ctx context.Context, from, to string, amount float64) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if from == "" || to == "" {
		return "", errors.New("transfer requires both accounts")
	}
	if amount <= 0 {
		return "", fmt.Errorf("transfer amount must be positive, got %v", amount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext > 0 {
		c.failNext--
		return "", c.failErr
	}
	tx := Transfer{
		TxID:   uuid.NewString(),
		From:   from,
		To:     to,
		Amount: amount,
	}
	c.transfers = append(c.transfers, tx)
	return tx.TxID, nil
}

func (c *MockClient) Transfers() []Transfer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Transfer, len(c.transfers))
	copy(out, c.transfers)
	return out
}
