package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeCaseCreated       ActivityType = "case_created"
	TypeIntakeCompleted   ActivityType = "intake_completed"
	TypeReleaseFormSent   ActivityType = "release_form_sent"
	TypeSummaryCompleted  ActivityType = "summary_completed"
	TypeSignatureRecorded ActivityType = "signature_recorded"
	TypeDocumentSent      ActivityType = "document_sent"
	TypeCaseUpdated       ActivityType = "case_updated"
	TypeCaseSwitched      ActivityType = "case_switched"
	TypeCaseDeleted       ActivityType = "case_deleted"
	TypeCaseFinalized     ActivityType = "case_finalized"
	TypeConflictDetected  ActivityType = "conflict_detected"
)

// ActivityEntry represents an event in a case's activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	CaseID       string       `json:"case_id"`
	ActivityType ActivityType `json:"type"`
	Stage        string       `json:"stage,omitempty"`
	Operator     string       `json:"operator,omitempty"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
	Version      int64        `json:"version"`
}
