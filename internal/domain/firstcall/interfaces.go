package firstcall

import (
	"context"

	"github.com/rpggio/firstcall/internal/domain/activity"
)

// CaseRepository is the Case Registry: cases keyed by id plus the single
// active case pointer.
type CaseRepository interface {
	// Insert stores a new case and assigns its insertion sequence.
	Insert(ctx context.Context, c *Case) error
	Get(ctx context.Context, id string) (*Case, error)
	// Replace swaps the stored case atomically if its version still equals
	// expectedVersion, returning repository.ErrConflict otherwise.
	Replace(ctx context.Context, c *Case, expectedVersion int64) error
	// Delete removes the case and clears the active pointer if it pointed
	// at it.
	Delete(ctx context.Context, id string) error
	// List returns every case in insertion order.
	List(ctx context.Context) ([]Case, error)
	ActiveID(ctx context.Context) (string, error)
	SetActive(ctx context.Context, id string) error
}

// EventOutbox receives domain events after the case write has committed.
type EventOutbox interface {
	Append(ctx context.Context, ev CaseFinalized) error
}

// ActivityRepository logs case activities.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}

// Observer is notified of workflow events, typically for metrics.
type Observer interface {
	CaseCreated()
	StageChanged(from, to Stage)
	CaseFinalized()
	ConflictRetried()
}
