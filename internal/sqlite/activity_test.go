package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	entry1 := &activity.ActivityEntry{
		CaseID:       "c1",
		ActivityType: activity.TypeCaseCreated,
		Stage:        "intake",
		Summary:      "new first call",
		Version:      1,
	}
	entry2 := &activity.ActivityEntry{
		CaseID:       "c1",
		ActivityType: activity.TypeIntakeCompleted,
		Stage:        "signatures",
		Operator:     "dana",
		Summary:      "intake submitted",
		Details:      `{"from":"intake","to":"signatures"}`,
		Version:      2,
	}

	require.NoError(t, repo.Log(ctx, entry1))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry2.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{CaseID: "c1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, "dana", entries[0].Operator)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Empty(t, entries[1].Operator)
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{CaseID: "c1", ActivityType: activity.TypeSignatureRecorded, Operator: "dana", Summary: "s"}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{CaseID: "c1", ActivityType: activity.TypeDocumentSent, Operator: "lee", Summary: "d"}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{CaseID: "c2", ActivityType: activity.TypeSignatureRecorded, Operator: "dana", Summary: "s"}))

	activityType := activity.TypeSignatureRecorded
	operator := "dana"
	entries, err := repo.List(ctx, activity.ListActivityOptions{
		CaseID:       "c1",
		Operator:     &operator,
		ActivityType: &activityType,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = repo.List(ctx, activity.ListActivityOptions{CaseID: "c3"})
	require.NoError(t, err)
	require.Len(t, entries, 0)
}
