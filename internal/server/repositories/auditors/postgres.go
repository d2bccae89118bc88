// Package auditors provides the PostgreSQL-backed auditor registry:
// registered third parties, their public keys, and key versions.
package auditors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/dbx"
	"github.com/securematch/securematch/internal/server/models"
)

// PostgresRepository implements auditor storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new auditor at key version 1.
func (r *PostgresRepository) Create(ctx context.Context, auditor *models.Auditor) error {
	query := `
		INSERT INTO auditors (id, name, public_key, key_version)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.db.ExecContext(ctx, query, auditor.ID, auditor.Name, auditor.PublicKey, auditor.KeyVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID fetches an auditor row, returning common.ErrorNotFound when absent.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Auditor, error) {
	query := `SELECT id, name, public_key, key_version, created_at FROM auditors WHERE id=$1`

	var a models.Auditor
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.PublicKey, &a.KeyVersion, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select auditor: %w", err)
	}
	return &a, nil
}

// RotateKey installs a new public key and bumps the key version atomically,
// returning the new version. Returns common.ErrorNotFound for an unknown id.
func (r *PostgresRepository) RotateKey(ctx context.Context, id string, publicKey string) (int, error) {
	query := `
		UPDATE auditors
		SET public_key=$2, key_version=key_version+1
		WHERE id=$1
		RETURNING key_version;
	`
	var version int
	err := r.db.QueryRowContext(ctx, query, id, publicKey).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("failed to rotate key: %w", err)
	}
	return version, nil
}
