package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/server/models"
	"github.com/securematch/securematch/internal/server/repositories/repomanager"
)

// DocumentService exposes storage management over the encrypted document
// store: listing recent ciphertext metadata and deletion. Deletion cascades
// to the document's index rows.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager) *DocumentService {
	return &DocumentService{db: db, repomanager: m}
}

// ListRecent returns up to limit documents, newest first. Only ciphertext
// metadata leaves this method; nothing is decrypted.
func (s *DocumentService) ListRecent(ctx context.Context, limit int) ([]*models.EncryptedDocument, error) {
	docs, err := s.repomanager.Documents(s.db).SelectRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return docs, nil
}

// Delete removes a document and, by cascade, its index rows.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if err := s.repomanager.Documents(s.db).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return nil
}
