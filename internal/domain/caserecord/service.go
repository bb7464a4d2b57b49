package caserecord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/repository"
)

// Service is the Case Management side of finalization: it turns a
// CaseFinalized event into a numbered case record.
type Service struct {
	records Repository
	prefix  string
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new case record service issuing numbers with prefix.
func NewService(records Repository, prefix string, logger *slog.Logger) (*Service, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{records: records, prefix: prefix, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// SetClock overrides time.Now; used by tests pinning the numbering month.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// HandleCaseFinalized is the outbox handler for finalized cases.
func (s *Service) HandleCaseFinalized(ctx context.Context, ev firstcall.CaseFinalized) error {
	_, err := s.CreateFromFinalized(ctx, ev)
	return err
}

// CreateFromFinalized creates the case record for ev. A redelivered event
// returns the record created the first time.
func (s *Service) CreateFromFinalized(ctx context.Context, ev firstcall.CaseFinalized) (*CaseRecord, error) {
	if ev.CaseID == "" {
		return nil, fmt.Errorf("case finalized event without case id: %w", repository.ErrInvalidInput)
	}

	existing, err := s.GetByFirstCall(ctx, ev.CaseID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		s.logger.Debug("case record already exists", "case_id", ev.CaseID, "case_number", existing.CaseNumber)
		return existing, nil
	}

	now := s.now().UTC()
	numbers, err := s.records.ListCaseNumbers(ctx, MonthPrefix(s.prefix, now))
	if err != nil {
		return nil, fmt.Errorf("listing case numbers: %w", err)
	}
	number, err := NextCaseNumber(s.prefix, now, numbers)
	if err != nil {
		s.logger.Error("case number generation failed", "case_id", ev.CaseID, "error", err)
		return nil, fmt.Errorf("generating case number: %w", err)
	}

	rec := &CaseRecord{
		ID:                uuid.NewString(),
		CaseNumber:        number,
		FirstCallID:       ev.CaseID,
		CreatedAt:         now,
		FinalizedSnapshot: ev.Snapshot,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if winner, _ := s.GetByFirstCall(ctx, ev.CaseID); winner != nil {
				return winner, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCaseNumber, number)
		}
		return nil, fmt.Errorf("creating case record: %w", err)
	}

	s.logger.Info("case record created", "case_id", ev.CaseID, "case_number", number)
	return rec, nil
}

// Get returns a case record by id.
func (s *Service) Get(ctx context.Context, id string) (*CaseRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting case record: %w", err)
	}
	return rec, nil
}

// GetByFirstCall returns the case record created from a First Call case.
func (s *Service) GetByFirstCall(ctx context.Context, firstCallID string) (*CaseRecord, error) {
	rec, err := s.records.GetByFirstCall(ctx, firstCallID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting case record: %w", err)
	}
	return rec, nil
}
