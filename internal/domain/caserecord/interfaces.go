package caserecord

import "context"

// Repository provides persistence for case records.
type Repository interface {
	// Create stores rec, returning repository.ErrDuplicate when the case
	// number or first call id is already taken.
	Create(ctx context.Context, rec *CaseRecord) error
	Get(ctx context.Context, id string) (*CaseRecord, error)
	GetByFirstCall(ctx context.Context, firstCallID string) (*CaseRecord, error)
	// ListCaseNumbers returns every case number starting with prefix.
	ListCaseNumbers(ctx context.Context, prefix string) ([]string, error)
}
