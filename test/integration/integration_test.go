package integration_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/domain/caserecord"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/outbox"
	"github.com/rpggio/firstcall/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db         *sqlite.DB
	engine     *firstcall.Service
	board      *firstcall.Switchboard
	records    *caserecord.Service
	dispatcher *outbox.Dispatcher
}

var fixedNow = time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)

// openEnv wires the stack over the database file at path, as the server does
// on startup.
func openEnv(t *testing.T, path string) *testEnv {
	t.Helper()
	db, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	records, err := caserecord.NewService(sqlite.NewCaseRecordRepository(db), "FH", nil)
	require.NoError(t, err)
	records.SetClock(func() time.Time { return fixedNow })

	dispatcher := outbox.NewDispatcher(sqlite.NewOutboxRepository(db), nil)
	dispatcher.Subscribe(records.HandleCaseFinalized)

	cases := sqlite.NewCaseRepository(db)
	engine := firstcall.NewService(cases, dispatcher, activitySvc, nil)
	dispatcher.SetReconciler(engine.ReconcileFinalized)
	return &testEnv{
		db:         db,
		engine:     engine,
		board:      firstcall.NewSwitchboard(cases, engine, activitySvc, nil),
		records:    records,
		dispatcher: dispatcher,
	}
}

func (e *testEnv) close(t *testing.T) {
	t.Helper()
	require.NoError(t, e.db.Close())
}

func finalizeVerbal(t *testing.T, ctx context.Context, env *testEnv) *firstcall.Case {
	t.Helper()
	c, err := env.board.NewCall(ctx)
	require.NoError(t, err)
	_, err = env.engine.CompleteIntake(ctx, c.ID, firstcall.IntakeData{IsVerbalRelease: true})
	require.NoError(t, err)
	done, err := env.engine.CompleteSummary(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, firstcall.StatusComplete, done.Status())
	return done
}

func TestIntegration_RestartKeepsRegistry(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "firstcall.db")

	env := openEnv(t, path)
	first, err := env.board.NewCall(ctx)
	require.NoError(t, err)
	second, err := env.board.NewCall(ctx)
	require.NoError(t, err)
	_, err = env.engine.CompleteIntake(ctx, first.ID, firstcall.IntakeData{SignaturesTotal: 2})
	require.NoError(t, err)
	require.NoError(t, env.board.SwitchCase(ctx, first.ID))
	env.close(t)

	env = openEnv(t, path)
	defer env.close(t)

	active, err := env.board.GetActiveCase(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, first.ID, active.ID)
	require.Equal(t, firstcall.StageSummary, active.CurrentStage)
	require.Equal(t, 2, active.SignaturesTotal)

	third, err := env.board.NewCall(ctx)
	require.NoError(t, err)
	require.Greater(t, third.Seq, second.Seq)

	open, err := env.board.GetAllActiveCases(ctx)
	require.NoError(t, err)
	require.Len(t, open, 3)
}

func TestIntegration_OutboxSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "firstcall.db")

	env := openEnv(t, path)
	done := finalizeVerbal(t, ctx, env)
	env.close(t)

	env = openEnv(t, path)
	defer env.close(t)

	_, err := env.records.GetByFirstCall(ctx, done.ID)
	require.ErrorIs(t, err, caserecord.ErrRecordNotFound)

	delivered, err := env.dispatcher.DispatchPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, delivered)

	rec, err := env.records.GetByFirstCall(ctx, done.ID)
	require.NoError(t, err)
	require.Equal(t, "FH-202604-0001", rec.CaseNumber)

	delivered, err = env.dispatcher.DispatchPending(ctx)
	require.NoError(t, err)
	require.Zero(t, delivered)
}

func TestIntegration_CaseNumbersAreSequential(t *testing.T) {
	ctx := context.Background()
	env := openEnv(t, filepath.Join(t.TempDir(), "firstcall.db"))
	defer env.close(t)

	var ids []string
	for range 3 {
		ids = append(ids, finalizeVerbal(t, ctx, env).ID)
		_, err := env.dispatcher.DispatchPending(ctx)
		require.NoError(t, err)
	}

	want := []string{"FH-202604-0001", "FH-202604-0002", "FH-202604-0003"}
	for i, id := range ids {
		rec, err := env.records.GetByFirstCall(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want[i], rec.CaseNumber)
	}
}

func TestIntegration_DeleteActiveCaseClearsPointer(t *testing.T) {
	ctx := context.Background()
	env := openEnv(t, filepath.Join(t.TempDir(), "firstcall.db"))
	defer env.close(t)

	c, err := env.board.NewCall(ctx)
	require.NoError(t, err)
	require.NoError(t, env.engine.DeleteCase(ctx, c.ID))

	active, err := env.board.GetActiveCase(ctx)
	require.NoError(t, err)
	require.Nil(t, active)
}

type downOutbox struct{}

func (downOutbox) Append(context.Context, firstcall.CaseFinalized) error {
	return errors.New("outbox unavailable")
}

func TestIntegration_FinalizationLostBeforeRestartIsRecovered(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "firstcall.db")

	env := openEnv(t, path)
	// The case write commits but the event never reaches the outbox.
	broken := firstcall.NewService(sqlite.NewCaseRepository(env.db), downOutbox{}, nil, nil)
	c, err := broken.CreateCase(ctx)
	require.NoError(t, err)
	_, err = broken.CompleteIntake(ctx, c.ID, firstcall.IntakeData{IsVerbalRelease: true})
	require.NoError(t, err)
	_, err = broken.CompleteSummary(ctx, c.ID)
	require.Error(t, err)
	env.close(t)

	env = openEnv(t, path)
	defer env.close(t)

	delivered, err := env.dispatcher.DispatchPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, delivered)

	rec, err := env.records.GetByFirstCall(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "FH-202604-0001", rec.CaseNumber)
}
