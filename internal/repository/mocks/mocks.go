package mocks

import (
	"context"

	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/domain/caserecord"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/stretchr/testify/mock"
)

// CaseRepository is a mock for firstcall.CaseRepository.
type CaseRepository struct {
	mock.Mock
}

func (m *CaseRepository) Insert(ctx context.Context, c *firstcall.Case) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CaseRepository) Get(ctx context.Context, id string) (*firstcall.Case, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*firstcall.Case); ok {
		out := c.Clone()
		return &out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CaseRepository) Replace(ctx context.Context, c *firstcall.Case, expectedVersion int64) error {
	args := m.Called(ctx, c, expectedVersion)
	return args.Error(0)
}

func (m *CaseRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *CaseRepository) List(ctx context.Context) ([]firstcall.Case, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]firstcall.Case); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CaseRepository) ActiveID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *CaseRepository) SetActive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// EventOutbox is a mock for firstcall.EventOutbox.
type EventOutbox struct {
	mock.Mock
}

func (m *EventOutbox) Append(ctx context.Context, ev firstcall.CaseFinalized) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// CaseRecordRepository is a mock for caserecord.Repository.
type CaseRecordRepository struct {
	mock.Mock
}

func (m *CaseRecordRepository) Create(ctx context.Context, rec *caserecord.CaseRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *CaseRecordRepository) Get(ctx context.Context, id string) (*caserecord.CaseRecord, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*caserecord.CaseRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CaseRecordRepository) GetByFirstCall(ctx context.Context, firstCallID string) (*caserecord.CaseRecord, error) {
	args := m.Called(ctx, firstCallID)
	if rec, ok := args.Get(0).(*caserecord.CaseRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CaseRecordRepository) ListCaseNumbers(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
