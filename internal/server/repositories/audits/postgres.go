// Package audits provides the append-only PostgreSQL ledger of external
// search attempts. Rows are created once and never updated or deleted;
// created_at descending is the canonical read order.
package audits

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/securematch/securematch/internal/dbx"
	"github.com/securematch/securematch/internal/server/models"
)

// PostgresRepository implements the audit ledger over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts one audit record. There is no update path.
func (r *PostgresRepository) Append(ctx context.Context, record *models.ExternalSearchAudit) error {
	query := `
		INSERT INTO external_search_audits
			(id, auditor_id, keyword_hash, total_matches, returned_count, truncated,
			 execution_time_ms, success, failure_reason, key_version, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	failureReason := sql.NullString{String: record.FailureReason, Valid: record.FailureReason != ""}
	ipAddress := sql.NullString{String: record.IPAddress, Valid: record.IPAddress != ""}

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.AuditorID, record.KeywordHash,
		record.TotalMatches, record.ReturnedCount, record.Truncated,
		record.ExecutionTimeMs, record.Success, failureReason,
		record.KeyVersion, ipAddress)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CountSince returns how many attempts an auditor has logged since the given
// time. Drives the rolling search-frequency count; a fresh range query per
// request keeps it correct across concurrent server instances.
func (r *PostgresRepository) CountSince(ctx context.Context, auditorID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM external_search_audits WHERE auditor_id=$1 AND created_at >= $2`
	var n int
	if err := r.db.QueryRowContext(ctx, query, auditorID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return n, nil
}

// SelectByAuditor returns the auditor's most recent ledger rows, newest first.
func (r *PostgresRepository) SelectByAuditor(ctx context.Context, auditorID string, limit int) ([]*models.ExternalSearchAudit, error) {
	query := `
		SELECT id, auditor_id, keyword_hash, total_matches, returned_count, truncated,
		       execution_time_ms, success, failure_reason, key_version, ip_address, created_at
		FROM external_search_audits
		WHERE auditor_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, auditorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit records: %w", err)
	}
	defer rows.Close()

	var result []*models.ExternalSearchAudit
	for rows.Next() {
		var item models.ExternalSearchAudit
		var failureReason, ipAddress sql.NullString
		if err := rows.Scan(
			&item.ID, &item.AuditorID, &item.KeywordHash,
			&item.TotalMatches, &item.ReturnedCount, &item.Truncated,
			&item.ExecutionTimeMs, &item.Success, &failureReason,
			&item.KeyVersion, &ipAddress, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.FailureReason = failureReason.String
		item.IPAddress = ipAddress.String
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
