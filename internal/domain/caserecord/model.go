package caserecord

import (
	"time"

	"github.com/rpggio/firstcall/internal/domain/firstcall"
)

// CaseRecord is the durable case created once a First Call completes.
type CaseRecord struct {
	ID          string    `json:"id"`
	CaseNumber  string    `json:"case_number"`
	FirstCallID string    `json:"first_call_id"`
	CreatedAt   time.Time `json:"created_at"`

	firstcall.FinalizedSnapshot
}
