package notify

import (
	"context"
	"log"
	"sync"
)

// Notifier delivers outbound messages to a party. Sends are fire-and-forget
// from the caller's perspective: a failed notification is a lost receipt,
// never retried.
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
}

// LogNotifier writes notifications to the process log. It is the default
// channel for local/dev deployments without an SMS gateway.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, recipient, message string) error {
	log.Printf("notify %s: %s", recipient, message)
	return nil
}

// MemoryNotifier records notifications for inspection in tests.
type MemoryNotifier struct {
	mu   sync.Mutex
	sent []Sent
	fail error
}

type Sent struct {
	Recipient string
	Message   string
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// FailWith makes every subsequent Send return err.
func (n *MemoryNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = err
}

func (n *MemoryNotifier) Send(_ context.Context, recipient, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, Sent{Recipient: recipient, Message: message})
	return nil
}

func (n *MemoryNotifier) Messages() []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Sent, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *MemoryNotifier) Last() (Sent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return Sent{}, false
	}
	return n.sent[len(n.sent)-1], true
}
