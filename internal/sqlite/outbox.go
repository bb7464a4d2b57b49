package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/firstcall/internal/outbox"
	"github.com/rpggio/firstcall/internal/repository"
)

// OutboxRepository implements outbox.Store for SQLite
type OutboxRepository struct {
	db *DB
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Add stores an event; one event per type and case
func (r *OutboxRepository) Add(ctx context.Context, rec outbox.Record) error {
	query := `
		INSERT INTO outbox (id, event_type, case_id, payload, created_at, attempts)
		VALUES (?, ?, ?, ?, ?, 0)
	`
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.Type, rec.CaseID, rec.Payload, createdAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to add outbox event: %w", err)
	}
	return nil
}

// Pending returns undelivered events under the attempt limit, oldest first
func (r *OutboxRepository) Pending(ctx context.Context, limit, maxAttempts int) ([]outbox.Record, error) {
	query := `
		SELECT id, event_type, case_id, payload, created_at, attempts, last_error
		FROM outbox
		WHERE delivered_at IS NULL AND attempts < ?
		ORDER BY created_at ASC, rowid ASC
	`
	args := []any{maxAttempts}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}
	defer rows.Close()

	var records []outbox.Record
	for rows.Next() {
		var rec outbox.Record
		var lastError sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.CaseID, &rec.Payload, &rec.CreatedAt, &rec.Attempts, &lastError); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		rec.LastError = lastError.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkDelivered stamps the event as delivered
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx,
		`UPDATE outbox SET delivered_at = ?, attempts = attempts + 1, last_error = NULL WHERE id = ?`,
		at, id,
	)
}

// MarkFailed records a failed delivery attempt
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		reason, id,
	)
}

func (r *OutboxRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
