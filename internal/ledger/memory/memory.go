package memory

import (
	"context"
	"fmt"
	"sync"

	"fleetdash/internal/core"
	"fleetdash/internal/ledger"
)

// Store keeps transaction records in process memory, in append order.
type Store struct {
	mu    sync.Mutex
	items []core.TransactionRecord
}

var (
	_ ledger.Store  = (*Store)(nil)
	_ ledger.Pinger = (*Store)(nil)
)

// New returns a store holding a copy of seed.
func New(seed []core.TransactionRecord) *Store {
	return &Store{items: append([]core.TransactionRecord(nil), seed...)}
}

// NewFromFile seeds the store from a YAML file, falling back to the default
// records when the file does not exist.
func NewFromFile(path string) (*Store, error) {
	seed, err := ledger.LoadSeedFile(path)
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.TransactionRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	if r.ID == "" {
		r.ID = core.NewRecordID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) ListByDriver(_ context.Context, driverID string) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.FilterByDriver(s.items, driverID), nil
}

func (s *Store) ListAll(_ context.Context) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TransactionRecord(nil), s.items...), nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
