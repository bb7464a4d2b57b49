package firstcall

import "slices"

var (
	verbalStages   = []Stage{StageIntake, StageSummary, StageComplete}
	standardStages = []Stage{StageIntake, StageSignatures, StageFaxing, StageComplete}
)

// VisibleStages returns the stage topology for a case. It depends only on the
// verbal release flag, never on counters, so it is stable for the life of
// the case once intake has fixed the flag.
func VisibleStages(isVerbalRelease bool) []Stage {
	if isVerbalRelease {
		return slices.Clone(verbalStages)
	}
	return slices.Clone(standardStages)
}

// IsVisible reports whether stage belongs to the topology selected by
// isVerbalRelease.
func IsVisible(stage Stage, isVerbalRelease bool) bool {
	if isVerbalRelease {
		return slices.Contains(verbalStages, stage)
	}
	return slices.Contains(standardStages, stage)
}

// NextStage returns the stage that follows stage in the topology. The second
// result is false for complete and for stages outside the topology.
func NextStage(stage Stage, isVerbalRelease bool) (Stage, bool) {
	stages := standardStages
	if isVerbalRelease {
		stages = verbalStages
	}
	i := slices.Index(stages, stage)
	if i < 0 || i == len(stages)-1 {
		return "", false
	}
	return stages[i+1], true
}

// DeriveStatus maps workflow position to the operator-facing status.
//
// action-needed is reached the moment every signature is in while the case
// is still on the signatures stage; it is the staffing alert state.
func DeriveStatus(stage Stage, signaturesReceived, signaturesTotal int) Status {
	switch stage {
	case StageSignatures:
		if signaturesReceived < signaturesTotal {
			return StatusWaitingOnFamily
		}
		return StatusActionNeeded
	case StageFaxing:
		return StatusFaxing
	case StageComplete:
		return StatusComplete
	default:
		return StatusIntakeInProgress
	}
}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, bool) {
	stage := Stage(s)
	switch stage {
	case StageIntake, StageSummary, StageSignatures, StageFaxing, StageComplete:
		return stage, true
	}
	return "", false
}
