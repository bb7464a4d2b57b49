package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/firstcall/internal/domain/caserecord"
	"github.com/rpggio/firstcall/internal/repository"
)

// CaseRecordRepository implements caserecord.Repository for SQLite
type CaseRecordRepository struct {
	db *DB
}

// NewCaseRecordRepository creates a new CaseRecordRepository
func NewCaseRecordRepository(db *DB) *CaseRecordRepository {
	return &CaseRecordRepository{db: db}
}

const caseRecordColumns = `
	id, case_number, first_call_id,
	caller_name, deceased_name, date_of_birth, time_of_death,
	location_of_pickup, address, next_of_kin_name, next_of_kin_phone,
	weight, ready_time, has_stairs, is_family_present, is_verbal_release,
	created_at
`

// Create inserts a case record; case number and first call id are unique
func (r *CaseRecordRepository) Create(ctx context.Context, rec *caserecord.CaseRecord) error {
	query := `INSERT INTO case_records (` + caseRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.CaseNumber,
		rec.FirstCallID,
		rec.CallerName,
		rec.DeceasedName,
		rec.DateOfBirth,
		rec.TimeOfDeath,
		rec.LocationOfPickup,
		rec.Address,
		rec.NextOfKinName,
		rec.NextOfKinPhone,
		rec.Weight,
		rec.ReadyTime,
		rec.HasStairs,
		rec.IsFamilyPresent,
		rec.IsVerbalRelease,
		rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create case record: %w", err)
	}
	return nil
}

// Get retrieves a case record by ID
func (r *CaseRecordRepository) Get(ctx context.Context, id string) (*caserecord.CaseRecord, error) {
	return r.getBy(ctx, "id", id)
}

// GetByFirstCall retrieves the case record created from a First Call case
func (r *CaseRecordRepository) GetByFirstCall(ctx context.Context, firstCallID string) (*caserecord.CaseRecord, error) {
	return r.getBy(ctx, "first_call_id", firstCallID)
}

// ListCaseNumbers returns the case numbers starting with prefix
func (r *CaseRecordRepository) ListCaseNumbers(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT case_number FROM case_records WHERE substr(case_number, 1, ?) = ? ORDER BY case_number`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list case numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("failed to scan case number: %w", err)
		}
		numbers = append(numbers, number)
	}
	return numbers, rows.Err()
}

func (r *CaseRecordRepository) getBy(ctx context.Context, column, value string) (*caserecord.CaseRecord, error) {
	query := `SELECT ` + caseRecordColumns + ` FROM case_records WHERE ` + column + ` = ?`

	var rec caserecord.CaseRecord
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&rec.ID,
		&rec.CaseNumber,
		&rec.FirstCallID,
		&rec.CallerName,
		&rec.DeceasedName,
		&rec.DateOfBirth,
		&rec.TimeOfDeath,
		&rec.LocationOfPickup,
		&rec.Address,
		&rec.NextOfKinName,
		&rec.NextOfKinPhone,
		&rec.Weight,
		&rec.ReadyTime,
		&rec.HasStairs,
		&rec.IsFamilyPresent,
		&rec.IsVerbalRelease,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case record: %w", err)
	}
	return &rec, nil
}
