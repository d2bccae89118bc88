// Package documents provides the PostgreSQL-backed repository for encrypted
// document blobs and their search index rows.
package documents

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/dbx"
	"github.com/securematch/securematch/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateDocument inserts a new encrypted document row.
func (r *PostgresRepository) CreateDocument(ctx context.Context, doc *models.EncryptedDocument) error {
	query := `
		INSERT INTO encrypted_documents (id, nonce, ciphertext)
		VALUES ($1, $2, $3);
	`
	_, err := r.db.ExecContext(ctx, query, doc.ID, doc.Nonce, doc.Ciphertext)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CreateIndexEntry inserts one search index row for a document. Callers run
// this inside the same transaction as CreateDocument so a document is never
// visible without its full index.
func (r *PostgresRepository) CreateIndexEntry(ctx context.Context, entry *models.SearchIndexEntry) error {
	query := `
		INSERT INTO search_token_index (token, external_token, document_id)
		VALUES ($1, $2, $3);
	`
	externalToken := sql.NullString{String: entry.ExternalToken, Valid: entry.ExternalToken != ""}
	_, err := r.db.ExecContext(ctx, query, entry.Token, externalToken, entry.DocumentID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SelectIDsByToken returns the ids of all documents whose index carries the
// exact token. Used by internal search to resolve one trapdoor.
func (r *PostgresRepository) SelectIDsByToken(ctx context.Context, token string) ([]string, error) {
	query := `SELECT document_id FROM search_token_index WHERE token=$1`
	rows, err := r.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to select document ids: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SelectByIDs returns the encrypted documents for the given ids.
func (r *PostgresRepository) SelectByIDs(ctx context.Context, ids []string) ([]*models.EncryptedDocument, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, nonce, ciphertext, created_at FROM encrypted_documents
		WHERE id IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// CountByExternalToken returns the full match count for a keyword hash,
// before any limiting.
func (r *PostgresRepository) CountByExternalToken(ctx context.Context, externalToken string) (int, error) {
	query := `SELECT COUNT(*) FROM search_token_index WHERE external_token=$1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, externalToken).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

// SelectByExternalToken returns up to limit documents whose index carries
// the keyword hash, joined to their blobs. No field constraint: the
// external token is field-independent.
func (r *PostgresRepository) SelectByExternalToken(ctx context.Context, externalToken string, limit int) ([]*models.EncryptedDocument, error) {
	query := `
		SELECT d.id, d.nonce, d.ciphertext, d.created_at
		FROM search_token_index i
		JOIN encrypted_documents d ON d.id = i.document_id
		WHERE i.external_token=$1
		ORDER BY i.id
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, externalToken, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SelectRecent returns the most recently ingested documents.
func (r *PostgresRepository) SelectRecent(ctx context.Context, limit int) ([]*models.EncryptedDocument, error) {
	query := `
		SELECT id, nonce, ciphertext, created_at FROM encrypted_documents
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Delete removes a document; the index rows cascade. Returns
// common.ErrorNotFound when no row matches.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM encrypted_documents WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func scanDocuments(rows *sql.Rows) ([]*models.EncryptedDocument, error) {
	var result []*models.EncryptedDocument
	for rows.Next() {
		var item models.EncryptedDocument
		if err := rows.Scan(&item.ID, &item.Nonce, &item.Ciphertext, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
