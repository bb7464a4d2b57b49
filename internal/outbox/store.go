// Package outbox records domain events after the case write commits and
// dispatches them to subscribers, so the Case Registry never depends on the
// availability of Case Management.
package outbox

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rpggio/firstcall/internal/repository"
)

// EventTypeCaseFinalized is the outbox type of firstcall.CaseFinalized.
const EventTypeCaseFinalized = "case_finalized"

// Record is a stored event.
type Record struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	CaseID      string     `json:"case_id"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
}

// Store persists outbox records. At most one record per (Type, CaseID) is
// accepted; a second Add returns repository.ErrDuplicate.
type Store interface {
	Add(ctx context.Context, rec Record) error
	// Pending returns undelivered records with fewer than maxAttempts
	// attempts, oldest first.
	Pending(ctx context.Context, limit, maxAttempts int) ([]Record, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.Type == rec.Type && existing.CaseID == rec.CaseID {
			return repository.ErrDuplicate
		}
	}
	rec.Payload = slices.Clone(rec.Payload)
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) Pending(_ context.Context, limit, maxAttempts int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.DeliveredAt != nil || rec.Attempts >= maxAttempts {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkDelivered(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(rec *Record) {
		rec.Attempts++
		rec.DeliveredAt = &at
		rec.LastError = ""
	})
}

func (s *MemoryStore) MarkFailed(_ context.Context, id string, reason string) error {
	return s.update(id, func(rec *Record) {
		rec.Attempts++
		rec.LastError = reason
	})
}

// All returns a copy of every record; used by tests and diagnostics.
func (s *MemoryStore) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

func (s *MemoryStore) update(id string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			fn(&s.records[i])
			return nil
		}
	}
	return repository.ErrNotFound
}
