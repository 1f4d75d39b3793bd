package workflow

import (
	"sort"
	"sync"
	"time"
)

// PendingDelivery is a producer's delivery report waiting for the
// counterparty to confirm receipt.
type PendingDelivery struct {
	Code       string    `json:"code"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit,omitempty"`
	Grade      string    `json:"grade,omitempty"`
	ProducerID string    `json:"producer_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// PendingStore keeps pending deliveries keyed by confirmation code. A
// repeated report for the same code overwrites the earlier one.
type PendingStore struct {
	mu      sync.RWMutex
	pending map[string]PendingDelivery
}

func NewPendingStore() *PendingStore {
	return &PendingStore{
		pending: make(map[string]PendingDelivery),
	}
}

func (s *PendingStore) Put(d PendingDelivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[d.Code] = d
}

// Consume removes and returns the delivery for code. Confirmation is a
// one-shot operation, a second confirm for the same code finds nothing.
func (s *PendingStore) Consume(code string) (PendingDelivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.pending[code]
	if ok {
		delete(s.pending, code)
	}
	return d, ok
}

func (s *PendingStore) Get(code string) (PendingDelivery, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.pending[code]
	return d, ok
}

func (s *PendingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Snapshot returns pending deliveries ordered by code.
func (s *PendingStore) Snapshot() []PendingDelivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PendingDelivery, 0, len(s.pending))
	for _, d := range s.pending {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}
