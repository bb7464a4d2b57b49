package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/outbox"
	"github.com/rpggio/firstcall/internal/registry"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu      sync.Mutex
	results map[string]int
}

func (o *countingObserver) EventDispatched(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = map[string]int{}
	}
	o.results[result]++
}

func finalized(caseID string) firstcall.CaseFinalized {
	return firstcall.CaseFinalized{
		EventID:    "evt-" + caseID,
		CaseID:     caseID,
		Snapshot:   firstcall.FinalizedSnapshot{DeceasedName: "Jane Doe", HasStairs: true},
		OccurredAt: time.Date(2026, 4, 9, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_DeliversOnce(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewMemoryStore()
	d := outbox.NewDispatcher(store, nil)

	var got []firstcall.CaseFinalized
	d.Subscribe(func(_ context.Context, ev firstcall.CaseFinalized) error {
		got = append(got, ev)
		return nil
	})

	require.NoError(t, d.Append(ctx, finalized("c1")))
	// A second event for the same case is dropped.
	dup := finalized("c1")
	dup.EventID = "evt-other"
	require.NoError(t, d.Append(ctx, dup))
	require.Len(t, store.All(), 1)

	n, err := d.DispatchPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, got, 1)
	require.Equal(t, "c1", got[0].CaseID)
	require.Equal(t, "Jane Doe", got[0].Snapshot.DeceasedName)

	n, err = d.DispatchPending(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, got, 1)
}

func TestDispatcher_RetriesFailedHandler(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewMemoryStore()
	d := outbox.NewDispatcher(store, nil)
	obs := &countingObserver{}
	d.SetObserver(obs)

	calls := 0
	d.Subscribe(func(context.Context, firstcall.CaseFinalized) error {
		calls++
		if calls == 1 {
			return errors.New("case management unavailable")
		}
		return nil
	})
	require.NoError(t, d.Append(ctx, finalized("c1")))

	n, err := d.DispatchPending(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	rec := store.All()[0]
	require.Nil(t, rec.DeliveredAt)
	require.Equal(t, "case management unavailable", rec.LastError)

	n, err = d.DispatchPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotNil(t, store.All()[0].DeliveredAt)
	require.Equal(t, 1, obs.results["failed"])
	require.Equal(t, 1, obs.results["delivered"])
}

func TestDispatcher_ParksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewMemoryStore()
	d := outbox.NewDispatcher(store, nil)

	calls := 0
	d.Subscribe(func(context.Context, firstcall.CaseFinalized) error {
		calls++
		return errors.New("still down")
	})
	require.NoError(t, d.Append(ctx, finalized("c1")))

	for range 8 {
		_, err := d.DispatchPending(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 5, calls)
	require.Equal(t, 5, store.All()[0].Attempts)
}

func TestDispatcher_RunDeliversOnAppend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := outbox.NewMemoryStore()
	d := outbox.NewDispatcher(store, nil)
	delivered := make(chan string, 1)
	d.Subscribe(func(_ context.Context, ev firstcall.CaseFinalized) error {
		delivered <- ev.CaseID
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, time.Hour) }()

	require.NoError(t, d.Append(ctx, finalized("c9")))
	select {
	case id := <-delivered:
		require.Equal(t, "c9", id)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestDispatcher_EngineIntegration(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewMemoryStore()
	d := outbox.NewDispatcher(store, nil)

	var got []string
	d.Subscribe(func(_ context.Context, ev firstcall.CaseFinalized) error {
		got = append(got, ev.CaseID)
		return nil
	})

	var _ firstcall.EventOutbox = d
	require.NoError(t, d.Append(ctx, finalized("a")))
	require.NoError(t, d.Append(ctx, finalized("b")))
	_, err := d.DispatchPending(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got)
}

// failFirstAdd rejects the first Add, as a briefly unavailable database would.
type failFirstAdd struct {
	*outbox.MemoryStore
	failed bool
}

func (s *failFirstAdd) Add(ctx context.Context, rec outbox.Record) error {
	if !s.failed {
		s.failed = true
		return errors.New("database is locked")
	}
	return s.MemoryStore.Add(ctx, rec)
}

func TestDispatcher_ReconcilesLostFinalization(t *testing.T) {
	ctx := context.Background()
	store := &failFirstAdd{MemoryStore: outbox.NewMemoryStore()}
	d := outbox.NewDispatcher(store, nil)

	reg := registry.NewMemory()
	engine := firstcall.NewService(reg, d, nil, nil)
	d.SetReconciler(engine.ReconcileFinalized)

	var got []string
	d.Subscribe(func(_ context.Context, ev firstcall.CaseFinalized) error {
		got = append(got, ev.CaseID)
		return nil
	})

	c, err := engine.CreateCase(ctx)
	require.NoError(t, err)
	_, err = engine.CompleteIntake(ctx, c.ID, firstcall.IntakeData{IsVerbalRelease: true})
	require.NoError(t, err)
	_, err = engine.CompleteSummary(ctx, c.ID)
	require.Error(t, err)
	require.Empty(t, store.All())

	n, err := d.DispatchPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{c.ID}, got)

	// The delivered event is not re-created on later passes.
	n, err = d.DispatchPending(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, store.All(), 1)
}
