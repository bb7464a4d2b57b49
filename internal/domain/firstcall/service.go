package firstcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/repository"
)

const defaultMaxRetries = 3

// Service is the First Call workflow engine. Every mutation reads the stored
// case, applies a pure transition to a copy, and writes it back with a
// version check.
type Service struct {
	cases      CaseRepository
	outbox     EventOutbox
	activities ActivityRepository
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
	maxRetries int

	// unrecorded holds complete cases whose CaseFinalized append failed.
	// swept is false until ReconcileFinalized has scanned the whole registry.
	mu         sync.Mutex
	unrecorded map[string]struct{}
	swept      bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver registers an observer for workflow events.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithMaxRetries sets how many times a mutation is replayed after losing a
// version race.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// NewService creates a new workflow engine. outbox, activities and logger
// may be nil.
func NewService(
	cases CaseRepository,
	outbox EventOutbox,
	activities ActivityRepository,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		cases:      cases,
		outbox:     outbox,
		activities: activities,
		logger:     logger,
		now:        time.Now,
		maxRetries: defaultMaxRetries,
		unrecorded: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// transition mutates a private copy of a case and reports whether anything
// changed. It must be pure so it can be replayed after a conflict.
type transition func(c *Case, now time.Time) bool

type mutation struct {
	caseID   string
	kind     activity.ActivityType
	expected *int64
	apply    transition
}

// CreateCase starts a new First Call and makes it the active case.
func (s *Service) CreateCase(ctx context.Context) (*Case, error) {
	now := s.now()
	c := &Case{
		ID:              uuid.NewString(),
		Version:         1,
		CurrentStage:    StageIntake,
		CompletedStages: []Stage{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.cases.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("inserting case: %w", err)
	}
	if err := s.cases.SetActive(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("activating case: %w", err)
	}

	if s.observer != nil {
		s.observer.CaseCreated()
	}
	s.logActivity(ctx, *c, activity.TypeCaseCreated, "", "new first call")
	s.logger.Info("case created", "case_id", c.ID)
	return c, nil
}

// GetCase returns the case, or nil when no case has that id.
func (s *Service) GetCase(ctx context.Context, id string) (*Case, error) {
	c, err := s.cases.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting case: %w", err)
	}
	return c, nil
}

// CompleteIntake merges the intake fields, fixes the verbal release flag and
// moves the case onto its path: summary for a verbal release, signatures
// otherwise.
func (s *Service) CompleteIntake(ctx context.Context, id string, data IntakeData) (*Case, error) {
	c, _, err := s.mutate(ctx, mutation{
		caseID: id,
		kind:   activity.TypeIntakeCompleted,
		apply: func(c *Case, _ time.Time) bool {
			if c.CurrentStage != StageIntake || c.IntakeCompleted() {
				return false
			}
			c.Details = data.Details.Apply(c.Details)
			c.IsVerbalRelease = data.IsVerbalRelease
			total := max(1, data.SignaturesTotal)
			c.SignaturesTotal = total
			c.FaxesTotal = total
			c.complete(StageIntake)
			if c.IsVerbalRelease {
				c.CurrentStage = StageSummary
			} else {
				c.CurrentStage = StageSignatures
			}
			return true
		},
	})
	return c, err
}

// SendReleaseForm records that the release form went out on a verbal
// release case. The stage is unchanged.
func (s *Service) SendReleaseForm(ctx context.Context, id string) (*Case, error) {
	c, _, err := s.mutate(ctx, mutation{
		caseID: id,
		kind:   activity.TypeReleaseFormSent,
		apply: func(c *Case, now time.Time) bool {
			if !c.IsVerbalRelease || c.CurrentStage != StageSummary || c.ReleaseFormSentAt != nil {
				return false
			}
			sentAt := now
			c.ReleaseFormSentAt = &sentAt
			return true
		},
	})
	return c, err
}

// CompleteSummary closes the verbal release path.
func (s *Service) CompleteSummary(ctx context.Context, id string) (*Case, error) {
	c, _, err := s.mutate(ctx, mutation{
		caseID: id,
		kind:   activity.TypeSummaryCompleted,
		apply: func(c *Case, _ time.Time) bool {
			if c.CurrentStage != StageSummary {
				return false
			}
			c.complete(StageSummary)
			c.CurrentStage = StageComplete
			return true
		},
	})
	return c, err
}

// RecordSignature counts one signed document. The count is clamped to the
// total; once every signature is in the case moves on to faxing, so a repeat
// call in the action-needed state advances it.
func (s *Service) RecordSignature(ctx context.Context, id string) (*Case, error) {
	c, _, err := s.mutate(ctx, mutation{
		caseID: id,
		kind:   activity.TypeSignatureRecorded,
		apply: func(c *Case, _ time.Time) bool {
			if c.CurrentStage != StageSignatures {
				return false
			}
			if c.SignaturesReceived < c.SignaturesTotal {
				c.SignaturesReceived++
			}
			if c.SignaturesReceived >= c.SignaturesTotal {
				c.SignaturesReceived = c.SignaturesTotal
				c.complete(StageSignatures)
				c.FaxesTotal = c.SignaturesTotal
				c.FaxesSent = min(c.FaxesSent, c.FaxesTotal)
				c.CurrentStage = StageFaxing
			}
			return true
		},
	})
	return c, err
}

// RecordDocumentSent counts one delivered document. Reaching the total
// completes the case and emits CaseFinalized.
func (s *Service) RecordDocumentSent(ctx context.Context, id string) (*Case, error) {
	c, _, err := s.mutate(ctx, mutation{
		caseID: id,
		kind:   activity.TypeDocumentSent,
		apply: func(c *Case, _ time.Time) bool {
			if c.CurrentStage != StageFaxing {
				return false
			}
			if c.FaxesSent < c.FaxesTotal {
				c.FaxesSent++
			}
			if c.FaxesSent >= c.FaxesTotal {
				c.FaxesSent = c.FaxesTotal
				c.complete(StageFaxing)
				c.CurrentStage = StageComplete
			}
			return true
		},
	})
	return c, err
}

// UpdateCase merges arbitrary fields. With ExpectedVersion set, a stale
// version yields a ConflictInfo and nothing is written.
func (s *Service) UpdateCase(ctx context.Context, req UpdateRequest) (*Case, *ConflictInfo, error) {
	if req.ID == "" {
		return nil, nil, ErrInvalidInput
	}
	return s.mutate(ctx, mutation{
		caseID:   req.ID,
		kind:     activity.TypeCaseUpdated,
		expected: req.ExpectedVersion,
		apply: func(c *Case, _ time.Time) bool {
			if req.Details.IsEmpty() && req.SignaturesTotal == nil && req.FaxesTotal == nil && req.IsVerbalRelease == nil {
				return false
			}
			c.Details = req.Details.Apply(c.Details)
			if req.SignaturesTotal != nil {
				c.SignaturesTotal = max(1, *req.SignaturesTotal, c.SignaturesReceived)
			}
			if req.FaxesTotal != nil {
				c.FaxesTotal = max(1, *req.FaxesTotal, c.FaxesSent)
			}
			if req.IsVerbalRelease != nil && !c.IntakeCompleted() {
				c.IsVerbalRelease = *req.IsVerbalRelease
			}
			return true
		},
	})
}

// DeleteCase removes a case. Deleting an unknown case is a no-op.
func (s *Service) DeleteCase(ctx context.Context, id string) error {
	c, err := s.GetCase(ctx, id)
	if err != nil || c == nil {
		return err
	}
	if err := s.cases.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("deleting case: %w", err)
	}
	s.logActivity(ctx, *c, activity.TypeCaseDeleted, "", "case deleted")
	s.logger.Info("case deleted", "case_id", id)
	return nil
}

func (s *Service) mutate(ctx context.Context, m mutation) (*Case, *ConflictInfo, error) {
	for attempt := 0; ; attempt++ {
		current, err := s.cases.Get(ctx, m.caseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Debug("ignoring operation on unknown case", "case_id", m.caseID, "operation", m.kind)
				return nil, nil, nil
			}
			return nil, nil, fmt.Errorf("loading case: %w", err)
		}

		if m.expected != nil && *m.expected != current.Version {
			s.logActivity(ctx, *current, activity.TypeConflictDetected, "", fmt.Sprintf("%s rejected: stale version %d", m.kind, *m.expected))
			return nil, &ConflictInfo{
				ConflictType:    string(m.kind),
				ExpectedVersion: *m.expected,
				Current:         current,
				Message:         "case modified since it was read",
			}, nil
		}

		updated := current.Clone()
		now := s.now()
		if !m.apply(&updated, now) {
			s.logger.Debug("operation not applicable", "case_id", m.caseID, "operation", m.kind, "stage", current.CurrentStage)
			return current, nil, nil
		}
		updated.UpdatedAt = now
		updated.Version = current.Version + 1

		if err := s.cases.Replace(ctx, &updated, current.Version); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return nil, nil, nil
			case errors.Is(err, repository.ErrConflict) && m.expected != nil:
				latest, _ := s.GetCase(ctx, m.caseID)
				return nil, &ConflictInfo{
					ConflictType:    string(m.kind),
					ExpectedVersion: *m.expected,
					Current:         latest,
					Message:         "case modified since it was read",
				}, nil
			case errors.Is(err, repository.ErrConflict):
				if s.observer != nil {
					s.observer.ConflictRetried()
				}
				if attempt < s.maxRetries {
					s.logger.Debug("version conflict, retrying", "case_id", m.caseID, "operation", m.kind, "attempt", attempt+1)
					continue
				}
				return nil, nil, ErrConflict
			default:
				return nil, nil, fmt.Errorf("replacing case: %w", err)
			}
		}

		s.afterCommit(ctx, *current, updated, m.kind)
		if current.CurrentStage != StageComplete && updated.CurrentStage == StageComplete {
			if err := s.finalize(ctx, updated); err != nil {
				return &updated, nil, err
			}
		}
		return &updated, nil, nil
	}
}

func (s *Service) afterCommit(ctx context.Context, before, after Case, kind activity.ActivityType) {
	if before.CurrentStage != after.CurrentStage {
		if s.observer != nil {
			s.observer.StageChanged(before.CurrentStage, after.CurrentStage)
		}
		s.logger.Info("case advanced",
			"case_id", after.ID,
			"from", before.CurrentStage,
			"to", after.CurrentStage,
			"status", after.Status(),
		)
	}
	summary := fmt.Sprintf("stage %s, status %s, signatures %d/%d, documents %d/%d",
		after.CurrentStage, after.Status(),
		after.SignaturesReceived, after.SignaturesTotal,
		after.FaxesSent, after.FaxesTotal,
	)
	details := ""
	if before.CurrentStage != after.CurrentStage {
		data, _ := json.Marshal(map[string]Stage{"from": before.CurrentStage, "to": after.CurrentStage})
		details = string(data)
	}
	s.logActivity(ctx, after, kind, details, summary)
}

// finalize runs only for the write that newly reached complete, which makes
// the event at-most-once per case.
func (s *Service) finalize(ctx context.Context, c Case) error {
	ev := CaseFinalized{
		EventID:    uuid.NewString(),
		CaseID:     c.ID,
		Snapshot:   SnapshotOf(c),
		OccurredAt: c.UpdatedAt,
	}
	if s.observer != nil {
		s.observer.CaseFinalized()
	}
	s.logActivity(ctx, c, activity.TypeCaseFinalized, "", "case finalized")
	s.logger.Info("case finalized", "case_id", c.ID, "verbal_release", c.IsVerbalRelease)
	if s.outbox == nil {
		return nil
	}
	if err := s.outbox.Append(ctx, ev); err != nil {
		s.markUnrecorded(c.ID)
		s.logger.Error("failed to record finalization event, will retry", "case_id", c.ID, "error", err)
		return fmt.Errorf("recording finalization event: %w", err)
	}
	return nil
}

func (s *Service) markUnrecorded(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unrecorded[id] = struct{}{}
}

// ReconcileFinalized appends CaseFinalized for complete cases whose event
// never reached the outbox. The first call scans every complete case, which
// covers a crash between the case write and the append; later calls retry
// only appends that failed in this process. The outbox drops events for
// cases it already holds, so re-appending is safe. It returns how many cases
// were handed to the outbox.
func (s *Service) ReconcileFinalized(ctx context.Context) (int, error) {
	if s.outbox == nil {
		return 0, nil
	}

	s.mu.Lock()
	swept := s.swept
	ids := make([]string, 0, len(s.unrecorded))
	for id := range s.unrecorded {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var candidates []Case
	if !swept {
		all, err := s.cases.List(ctx)
		if err != nil {
			return 0, fmt.Errorf("listing cases: %w", err)
		}
		for _, c := range all {
			if c.CurrentStage == StageComplete {
				candidates = append(candidates, c)
			}
		}
	} else {
		for _, id := range ids {
			c, err := s.GetCase(ctx, id)
			if err != nil {
				return 0, err
			}
			if c == nil || c.CurrentStage != StageComplete {
				s.clearUnrecorded(id)
				continue
			}
			candidates = append(candidates, *c)
		}
	}

	appended := 0
	var errs []error
	for _, c := range candidates {
		ev := CaseFinalized{
			EventID:    uuid.NewString(),
			CaseID:     c.ID,
			Snapshot:   SnapshotOf(c),
			OccurredAt: c.UpdatedAt,
		}
		if err := s.outbox.Append(ctx, ev); err != nil {
			s.markUnrecorded(c.ID)
			errs = append(errs, fmt.Errorf("recording finalization event for %s: %w", c.ID, err))
			continue
		}
		s.clearUnrecorded(c.ID)
		appended++
	}

	if !swept {
		s.mu.Lock()
		s.swept = true
		s.mu.Unlock()
	}
	if appended > 0 {
		s.logger.Debug("finalization events reconciled", "count", appended)
	}
	return appended, errors.Join(errs...)
}

func (s *Service) clearUnrecorded(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unrecorded, id)
}

func (s *Service) logActivity(ctx context.Context, c Case, kind activity.ActivityType, details, summary string) {
	if s.activities == nil {
		return
	}
	err := s.activities.Log(ctx, &activity.ActivityEntry{
		CaseID:       c.ID,
		ActivityType: kind,
		Stage:        string(c.CurrentStage),
		Operator:     activity.OperatorFrom(ctx),
		Summary:      summary,
		Details:      details,
		CreatedAt:    s.now(),
		Version:      c.Version,
	})
	if err != nil {
		s.logger.Warn("failed to log activity", "case_id", c.ID, "type", kind, "error", err)
	}
}
