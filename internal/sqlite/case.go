package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/repository"
)

// CaseRepository implements firstcall.CaseRepository for SQLite
type CaseRepository struct {
	db *DB
}

// NewCaseRepository creates a new CaseRepository
func NewCaseRepository(db *DB) *CaseRepository {
	return &CaseRepository{db: db}
}

const caseColumns = `
	id, seq, version, details, is_verbal_release,
	signatures_received, signatures_total, faxes_sent, faxes_total,
	current_stage, completed_stages, release_form_sent_at, created_at, updated_at
`

// Insert creates a new case and assigns its insertion sequence
func (r *CaseRepository) Insert(ctx context.Context, c *firstcall.Case) error {
	if c == nil || c.ID == "" {
		return repository.ErrInvalidInput
	}
	details, stages, err := encodeCase(c)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx, `UPDATE registry_state SET next_seq = next_seq + 1 WHERE slot = 1 RETURNING next_seq`).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	query := `INSERT INTO cases (` + caseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		c.ID,
		seq,
		c.Version,
		details,
		c.IsVerbalRelease,
		c.SignaturesReceived,
		c.SignaturesTotal,
		c.FaxesSent,
		c.FaxesTotal,
		c.CurrentStage,
		stages,
		c.ReleaseFormSentAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to insert case: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit case: %w", err)
	}
	c.Seq = seq
	return nil
}

// Get retrieves a case by ID
func (r *CaseRepository) Get(ctx context.Context, id string) (*firstcall.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = ?`
	c, err := scanCase(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// Replace writes the whole case with optimistic concurrency control
func (r *CaseRepository) Replace(ctx context.Context, c *firstcall.Case, expectedVersion int64) error {
	if c == nil {
		return repository.ErrInvalidInput
	}
	details, stages, err := encodeCase(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE cases
		SET version = ?, details = ?, is_verbal_release = ?,
		    signatures_received = ?, signatures_total = ?, faxes_sent = ?, faxes_total = ?,
		    current_stage = ?, completed_stages = ?, release_form_sent_at = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		c.Version,
		details,
		c.IsVerbalRelease,
		c.SignaturesReceived,
		c.SignaturesTotal,
		c.FaxesSent,
		c.FaxesTotal,
		c.CurrentStage,
		stages,
		c.ReleaseFormSentAt,
		c.UpdatedAt,
		c.ID,
		expectedVersion,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to replace case: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM cases WHERE id = ?)`
		if err := r.db.QueryRowContext(ctx, checkQuery, c.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check case existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		// Case exists but version doesn't match - conflict
		return repository.ErrConflict
	}

	return nil
}

// Delete removes a case and clears the active pointer when it pointed at it
func (r *CaseRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `UPDATE registry_state SET active_case_id = NULL WHERE slot = 1 AND active_case_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear active case: %w", err)
	}

	return tx.Commit()
}

// List returns every case in insertion order
func (r *CaseRepository) List(ctx context.Context) ([]firstcall.Case, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+caseColumns+` FROM cases ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []firstcall.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, *c)
	}
	return cases, rows.Err()
}

// ActiveID returns the active case pointer
func (r *CaseRepository) ActiveID(ctx context.Context) (string, error) {
	var id sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT active_case_id FROM registry_state WHERE slot = 1`).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to read active case: %w", err)
	}
	return id.String, nil
}

// SetActive sets the active case pointer; an empty id clears it
func (r *CaseRepository) SetActive(ctx context.Context, id string) error {
	var value any
	if id != "" {
		value = id
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE registry_state SET active_case_id = ? WHERE slot = 1`, value); err != nil {
		return fmt.Errorf("failed to set active case: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*firstcall.Case, error) {
	var (
		c           firstcall.Case
		details     string
		stages      string
		releaseSent sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.Seq,
		&c.Version,
		&details,
		&c.IsVerbalRelease,
		&c.SignaturesReceived,
		&c.SignaturesTotal,
		&c.FaxesSent,
		&c.FaxesTotal,
		&c.CurrentStage,
		&stages,
		&releaseSent,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(details), &c.Details); err != nil {
		return nil, fmt.Errorf("failed to decode case details: %w", err)
	}
	if err := json.Unmarshal([]byte(stages), &c.CompletedStages); err != nil {
		return nil, fmt.Errorf("failed to decode completed stages: %w", err)
	}
	if c.CompletedStages == nil {
		c.CompletedStages = []firstcall.Stage{}
	}
	if releaseSent.Valid {
		t := releaseSent.Time
		c.ReleaseFormSentAt = &t
	}
	return &c, nil
}

func encodeCase(c *firstcall.Case) (string, string, error) {
	details, err := json.Marshal(c.Details)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode case details: %w", err)
	}
	stages := c.CompletedStages
	if stages == nil {
		stages = []firstcall.Stage{}
	}
	encoded, err := json.Marshal(stages)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode completed stages: %w", err)
	}
	return string(details), string(encoded), nil
}
