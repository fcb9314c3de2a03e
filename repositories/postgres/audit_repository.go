package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/repositories"
)

// AuditRepository implements repositories.AuditSink on PostgreSQL
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditSink {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one audit record
func (r *AuditRepository) Append(ctx context.Context, record *models.AuditRecord) error {
	query := `
		INSERT INTO audit_records (id, correlation_id, phase, method, path,
			client_id, user_agent, username, action, outcome, status, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.CorrelationID,
		record.Phase,
		record.Method,
		record.Path,
		record.ClientID,
		record.UserAgent,
		record.Username,
		record.Action,
		record.Outcome,
		record.Status,
		record.ElapsedMs,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]*models.AuditRecord, error) {
	query := `
		SELECT id, correlation_id, phase, method, path, client_id, user_agent,
			username, action, outcome, status, elapsed_ms, created_at
		FROM audit_records
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []*models.AuditRecord
	for rows.Next() {
		record := &models.AuditRecord{}
		if err := rows.Scan(
			&record.ID,
			&record.CorrelationID,
			&record.Phase,
			&record.Method,
			&record.Path,
			&record.ClientID,
			&record.UserAgent,
			&record.Username,
			&record.Action,
			&record.Outcome,
			&record.Status,
			&record.ElapsedMs,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit records: %w", err)
	}
	return records, nil
}
