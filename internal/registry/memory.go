// Package registry holds the in-memory Case Registry. Stored cases are
// values: every write swaps a whole case under the lock and every read hands
// out a copy, so a reader never sees a half-applied mutation.
package registry

import (
	"context"
	"slices"
	"sync"

	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/repository"
)

// Memory is an in-memory firstcall.CaseRepository.
type Memory struct {
	mu       sync.RWMutex
	cases    map[string]firstcall.Case
	order    []string
	nextSeq  int64
	activeID string
}

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	return &Memory{cases: map[string]firstcall.Case{}}
}

// Insert stores a new case and assigns its insertion sequence.
func (m *Memory) Insert(_ context.Context, c *firstcall.Case) error {
	if c == nil || c.ID == "" {
		return repository.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cases[c.ID]; exists {
		return repository.ErrDuplicate
	}
	m.nextSeq++
	c.Seq = m.nextSeq
	m.cases[c.ID] = c.Clone()
	m.order = append(m.order, c.ID)
	return nil
}

// Get returns a copy of the stored case.
func (m *Memory) Get(_ context.Context, id string) (*firstcall.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := c.Clone()
	return &out, nil
}

// Replace swaps the stored case if its version is still expectedVersion.
func (m *Memory) Replace(_ context.Context, c *firstcall.Case, expectedVersion int64) error {
	if c == nil {
		return repository.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.cases[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return repository.ErrConflict
	}
	next := c.Clone()
	next.Seq = current.Seq
	next.CreatedAt = current.CreatedAt
	m.cases[c.ID] = next
	return nil
}

// Delete removes the case and clears the active pointer if it pointed at it.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cases[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.cases, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	if m.activeID == id {
		m.activeID = ""
	}
	return nil
}

// List returns copies of every case in insertion order.
func (m *Memory) List(_ context.Context) ([]firstcall.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]firstcall.Case, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.cases[id].Clone())
	}
	return out, nil
}

// ActiveID returns the active case pointer, which may dangle.
func (m *Memory) ActiveID(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID, nil
}

// SetActive sets the active case pointer without validating it.
func (m *Memory) SetActive(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeID = id
	return nil
}

// Put stores c as-is, replacing any existing case with the same id. It
// bypasses the workflow engine and exists for seeding and tests.
func (m *Memory) Put(c firstcall.Case) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.cases[c.ID]; ok {
		c.Seq = existing.Seq
	} else {
		m.nextSeq++
		c.Seq = m.nextSeq
		m.order = append(m.order, c.ID)
	}
	m.cases[c.ID] = c.Clone()
}
