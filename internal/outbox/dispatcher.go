package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/repository"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
)

// Handler consumes a finalized case.
type Handler func(ctx context.Context, ev firstcall.CaseFinalized) error

// Observer is told the outcome of every delivery attempt.
type Observer interface {
	EventDispatched(result string)
}

// Dispatcher appends events to a Store and delivers pending ones to its
// handlers. It satisfies firstcall.EventOutbox.
type Dispatcher struct {
	store       Store
	handlers    []Handler
	observer    Observer
	logger      *slog.Logger
	wake        chan struct{}
	maxAttempts int
	now         func() time.Time
	reconcile   Reconciler
}

// Reconciler re-appends events that were lost between a committed write and
// Append. It runs before every dispatch pass.
type Reconciler func(ctx context.Context) (int, error)

// NewDispatcher creates a dispatcher over store.
func NewDispatcher(store Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		store:       store,
		logger:      logger,
		wake:        make(chan struct{}, 1),
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// Subscribe registers a handler. Handlers must be idempotent: an event is
// redelivered if any handler failed on an earlier attempt.
func (d *Dispatcher) Subscribe(h Handler) {
	d.handlers = append(d.handlers, h)
}

// SetObserver registers a delivery observer.
func (d *Dispatcher) SetObserver(o Observer) {
	d.observer = o
}

// SetReconciler registers a reconciler run at the start of DispatchPending.
func (d *Dispatcher) SetReconciler(r Reconciler) {
	d.reconcile = r
}

// Append stores ev and wakes the dispatch loop. A second finalized event for
// the same case is dropped.
func (d *Dispatcher) Append(ctx context.Context, ev firstcall.CaseFinalized) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	err = d.store.Add(ctx, Record{
		ID:        ev.EventID,
		Type:      EventTypeCaseFinalized,
		CaseID:    ev.CaseID,
		Payload:   payload,
		CreatedAt: ev.OccurredAt,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			d.logger.Debug("dropping duplicate finalization event", "case_id", ev.CaseID)
			return nil
		}
		return fmt.Errorf("storing event: %w", err)
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// DispatchPending delivers every pending event once and returns how many
// were delivered.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	if d.reconcile != nil {
		if _, err := d.reconcile(ctx); err != nil {
			d.logger.Error("outbox reconciliation failed", "error", err)
		}
	}

	pending, err := d.store.Pending(ctx, defaultBatchSize, d.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("loading pending events: %w", err)
	}

	delivered := 0
	for _, rec := range pending {
		if err := d.deliver(ctx, rec); err != nil {
			d.logger.Error("event delivery failed", "event_id", rec.ID, "case_id", rec.CaseID, "attempt", rec.Attempts+1, "error", err)
			if markErr := d.store.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
				return delivered, fmt.Errorf("marking event failed: %w", markErr)
			}
			d.observe("failed")
			continue
		}
		if err := d.store.MarkDelivered(ctx, rec.ID, d.now()); err != nil {
			return delivered, fmt.Errorf("marking event delivered: %w", err)
		}
		d.observe("delivered")
		delivered++
	}
	return delivered, nil
}

// Run dispatches whenever an event is appended and at least every interval,
// until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := d.DispatchPending(ctx); err != nil {
			d.logger.Error("outbox dispatch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, rec Record) error {
	if rec.Type != EventTypeCaseFinalized {
		return fmt.Errorf("unknown event type %q", rec.Type)
	}
	var ev firstcall.CaseFinalized
	if err := json.Unmarshal(rec.Payload, &ev); err != nil {
		return fmt.Errorf("decoding event: %w", err)
	}
	for _, h := range d.handlers {
		if err := h(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) observe(result string) {
	if d.observer != nil {
		d.observer.EventDispatched(result)
	}
}
