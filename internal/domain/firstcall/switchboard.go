package firstcall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/repository"
)

// Switchboard lets an operator juggle several open cases: start a new call
// without abandoning the current one, switch between cases and list them
// for the dashboard.
type Switchboard struct {
	cases      CaseRepository
	engine     *Service
	activities ActivityRepository
	logger     *slog.Logger
}

// NewSwitchboard creates a switchboard over the same registry the engine
// writes to.
func NewSwitchboard(cases CaseRepository, engine *Service, activities ActivityRepository, logger *slog.Logger) *Switchboard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Switchboard{cases: cases, engine: engine, activities: activities, logger: logger}
}

// NewCall creates a case and makes it active; other open cases are untouched.
func (b *Switchboard) NewCall(ctx context.Context) (*Case, error) {
	return b.engine.CreateCase(ctx)
}

// SwitchCase points the active case at id. Unknown ids are accepted; readers
// then simply resolve no active case.
func (b *Switchboard) SwitchCase(ctx context.Context, id string) error {
	if err := b.cases.SetActive(ctx, id); err != nil {
		return fmt.Errorf("switching case: %w", err)
	}
	if b.activities != nil && id != "" {
		err := b.activities.Log(ctx, &activity.ActivityEntry{
			CaseID:       id,
			ActivityType: activity.TypeCaseSwitched,
			Operator:     activity.OperatorFrom(ctx),
			Summary:      "case made active",
			CreatedAt:    b.now(),
		})
		if err != nil {
			b.logger.Warn("failed to log activity", "case_id", id, "type", activity.TypeCaseSwitched, "error", err)
		}
	}
	b.logger.Debug("active case switched", "case_id", id)
	return nil
}

func (b *Switchboard) now() time.Time {
	if b.engine != nil && b.engine.now != nil {
		return b.engine.now()
	}
	return time.Now()
}

// GetActiveCase returns the active case, or nil when there is none or the
// pointer no longer resolves.
func (b *Switchboard) GetActiveCase(ctx context.Context) (*Case, error) {
	id, err := b.cases.ActiveID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading active case: %w", err)
	}
	if id == "" {
		return nil, nil
	}
	c, err := b.cases.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting active case: %w", err)
	}
	return c, nil
}

// GetAllActiveCases lists every case that is not complete, most recently
// updated first.
func (b *Switchboard) GetAllActiveCases(ctx context.Context) ([]Case, error) {
	return b.filter(ctx, func(c Case) bool { return c.Status() != StatusComplete })
}

// GetCasesNeedingAttention lists the action-needed queue, most recently
// updated first.
func (b *Switchboard) GetCasesNeedingAttention(ctx context.Context) ([]Case, error) {
	return b.filter(ctx, func(c Case) bool { return c.Status() == StatusActionNeeded })
}

func (b *Switchboard) filter(ctx context.Context, keep func(Case) bool) ([]Case, error) {
	all, err := b.cases.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	out := make([]Case, 0, len(all))
	for _, c := range all {
		if keep(c) {
			out = append(out, c)
		}
	}
	SortByRecency(out)
	return out, nil
}

// SortByRecency orders cases by UpdatedAt descending. Ties keep insertion
// order so lists don't reshuffle.
func SortByRecency(cases []Case) {
	sort.SliceStable(cases, func(i, j int) bool {
		if !cases[i].UpdatedAt.Equal(cases[j].UpdatedAt) {
			return cases[i].UpdatedAt.After(cases[j].UpdatedAt)
		}
		return cases[i].Seq < cases[j].Seq
	})
}
