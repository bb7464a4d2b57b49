package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/firstcall/internal/outbox"
	"github.com/rpggio/firstcall/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_AddPending(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewOutboxRepository(db)

	base := time.Now()
	require.NoError(t, repo.Add(ctx, outbox.Record{ID: "e1", Type: outbox.EventTypeCaseFinalized, CaseID: "c1", Payload: []byte(`{"case_id":"c1"}`), CreatedAt: base}))
	require.NoError(t, repo.Add(ctx, outbox.Record{ID: "e2", Type: outbox.EventTypeCaseFinalized, CaseID: "c2", Payload: []byte(`{"case_id":"c2"}`), CreatedAt: base.Add(time.Second)}))

	err := repo.Add(ctx, outbox.Record{ID: "e3", Type: outbox.EventTypeCaseFinalized, CaseID: "c1", Payload: []byte(`{}`)})
	require.Equal(t, repository.ErrDuplicate, err)

	pending, err := repo.Pending(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "e1", pending[0].ID)
	require.Equal(t, `{"case_id":"c1"}`, string(pending[0].Payload))

	pending, err = repo.Pending(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestOutboxRepository_DeliveryAttempts(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewOutboxRepository(db)

	require.NoError(t, repo.Add(ctx, outbox.Record{ID: "e1", Type: outbox.EventTypeCaseFinalized, CaseID: "c1", Payload: []byte(`{}`)}))
	require.NoError(t, repo.Add(ctx, outbox.Record{ID: "e2", Type: outbox.EventTypeCaseFinalized, CaseID: "c2", Payload: []byte(`{}`)}))

	require.NoError(t, repo.MarkFailed(ctx, "e1", "case management unavailable"))
	pending, err := repo.Pending(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, 1, pending[0].Attempts)
	require.Equal(t, "case management unavailable", pending[0].LastError)

	// Past the attempt limit the event is parked.
	pending, err = repo.Pending(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "e2", pending[0].ID)

	require.NoError(t, repo.MarkDelivered(ctx, "e2", time.Now()))
	pending, err = repo.Pending(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "e1", pending[0].ID)

	require.Equal(t, repository.ErrNotFound, repo.MarkDelivered(ctx, "missing", time.Now()))
}
