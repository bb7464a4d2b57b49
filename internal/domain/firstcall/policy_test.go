package firstcall_test

import (
	"testing"

	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		stage    firstcall.Stage
		received int
		total    int
		want     firstcall.Status
	}{
		{"intake", firstcall.StageIntake, 0, 0, firstcall.StatusIntakeInProgress},
		{"summary", firstcall.StageSummary, 0, 1, firstcall.StatusIntakeInProgress},
		{"signatures pending", firstcall.StageSignatures, 1, 2, firstcall.StatusWaitingOnFamily},
		{"signatures none", firstcall.StageSignatures, 0, 3, firstcall.StatusWaitingOnFamily},
		{"signatures all in", firstcall.StageSignatures, 3, 3, firstcall.StatusActionNeeded},
		{"faxing", firstcall.StageFaxing, 2, 2, firstcall.StatusFaxing},
		{"complete", firstcall.StageComplete, 2, 2, firstcall.StatusComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, firstcall.DeriveStatus(tt.stage, tt.received, tt.total))
		})
	}
}

func TestVisibleStages(t *testing.T) {
	require.Equal(t,
		[]firstcall.Stage{firstcall.StageIntake, firstcall.StageSummary, firstcall.StageComplete},
		firstcall.VisibleStages(true))
	require.Equal(t,
		[]firstcall.Stage{firstcall.StageIntake, firstcall.StageSignatures, firstcall.StageFaxing, firstcall.StageComplete},
		firstcall.VisibleStages(false))

	// Callers can't corrupt the topology through the returned slice.
	stages := firstcall.VisibleStages(true)
	stages[1] = firstcall.StageFaxing
	require.Equal(t, firstcall.StageSummary, firstcall.VisibleStages(true)[1])

	require.True(t, firstcall.IsVisible(firstcall.StageSummary, true))
	require.False(t, firstcall.IsVisible(firstcall.StageSummary, false))
	require.False(t, firstcall.IsVisible(firstcall.StageFaxing, true))
}

func TestNextStage(t *testing.T) {
	next, ok := firstcall.NextStage(firstcall.StageIntake, true)
	require.True(t, ok)
	require.Equal(t, firstcall.StageSummary, next)

	next, ok = firstcall.NextStage(firstcall.StageSignatures, false)
	require.True(t, ok)
	require.Equal(t, firstcall.StageFaxing, next)

	_, ok = firstcall.NextStage(firstcall.StageComplete, false)
	require.False(t, ok)

	_, ok = firstcall.NextStage(firstcall.StageFaxing, true)
	require.False(t, ok)
}

func TestParseStage(t *testing.T) {
	stage, ok := firstcall.ParseStage("faxing")
	require.True(t, ok)
	require.Equal(t, firstcall.StageFaxing, stage)

	_, ok = firstcall.ParseStage("review")
	require.False(t, ok)
}

func TestCase_MarshalJSONIncludesStatus(t *testing.T) {
	c := firstcall.Case{
		ID:                 "c1",
		CurrentStage:       firstcall.StageSignatures,
		SignaturesReceived: 3,
		SignaturesTotal:    3,
		CompletedStages:    []firstcall.Stage{firstcall.StageIntake},
	}
	data, err := c.MarshalJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"status":"action-needed"`)
	require.Contains(t, string(data), `"current_stage":"signatures"`)
}
