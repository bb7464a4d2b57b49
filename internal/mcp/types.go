package mcp

import (
	"time"

	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
)

type NoParams struct{}

type CaseIDParams struct {
	ID string `json:"id" jsonschema:"case id"`
}

type CompleteIntakeParams struct {
	ID              string                 `json:"id" jsonschema:"case id"`
	Details         firstcall.DetailsPatch `json:"details,omitempty" jsonschema:"intake fields captured on the call"`
	IsVerbalRelease bool                   `json:"is_verbal_release,omitempty" jsonschema:"true when the next of kin released verbally; fixed once intake completes"`
	SignaturesTotal int                    `json:"signatures_total,omitempty" jsonschema:"number of documents the family must sign (minimum 1)"`
}

type UpdateCaseParams struct {
	ID              string                 `json:"id" jsonschema:"case id"`
	Details         firstcall.DetailsPatch `json:"details,omitempty" jsonschema:"fields to change; omitted fields are kept"`
	SignaturesTotal *int                   `json:"signatures_total,omitempty" jsonschema:"required signatures (never below those already received)"`
	FaxesTotal      *int                   `json:"faxes_total,omitempty" jsonschema:"documents to send (never below those already sent)"`
	IsVerbalRelease *bool                  `json:"is_verbal_release,omitempty" jsonschema:"only honoured before intake completes"`
	ExpectedVersion *int64                 `json:"expected_version,omitempty" jsonschema:"version last read; a stale version returns a conflict instead of writing"`
}

type GetCaseActivityParams struct {
	ID    string `json:"id" jsonschema:"case id"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum entries (default 50)"`
}

type CaseResponse struct {
	Case          *firstcall.Case   `json:"case"`
	VisibleStages []firstcall.Stage `json:"visible_stages,omitempty"`
}

type UpdateCaseResponse struct {
	Case     *firstcall.Case         `json:"case,omitempty"`
	Conflict *firstcall.ConflictInfo `json:"conflict,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// CaseSummary is the dashboard row for a case.
type CaseSummary struct {
	ID                 string           `json:"id"`
	DeceasedName       string           `json:"deceased_name,omitempty"`
	CallerName         string           `json:"caller_name,omitempty"`
	CurrentStage       firstcall.Stage  `json:"current_stage"`
	Status             firstcall.Status `json:"status"`
	SignaturesReceived int              `json:"signatures_received"`
	SignaturesTotal    int              `json:"signatures_total"`
	FaxesSent          int              `json:"faxes_sent"`
	FaxesTotal         int              `json:"faxes_total"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Active             bool             `json:"active"`
}

type CaseListResponse struct {
	Cases []CaseSummary `json:"cases"`
	Count int           `json:"count"`
}

type ActivityEntryResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Type      activity.ActivityType `json:"type"`
	Operator  string                `json:"operator,omitempty"`
	Stage     string                `json:"stage,omitempty"`
	Version   int64                 `json:"version"`
	Summary   string                `json:"summary"`
	Details   string                `json:"details,omitempty"`
}

func summarize(c firstcall.Case, activeID string) CaseSummary {
	return CaseSummary{
		ID:                 c.ID,
		DeceasedName:       c.Details.DeceasedName,
		CallerName:         c.Details.CallerName,
		CurrentStage:       c.CurrentStage,
		Status:             c.Status(),
		SignaturesReceived: c.SignaturesReceived,
		SignaturesTotal:    c.SignaturesTotal,
		FaxesSent:          c.FaxesSent,
		FaxesTotal:         c.FaxesTotal,
		UpdatedAt:          c.UpdatedAt,
		Active:             c.ID == activeID,
	}
}
