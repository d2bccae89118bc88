package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/dbx"
	"github.com/securematch/securematch/internal/server/models"
	"github.com/securematch/securematch/internal/server/repositories/repomanager"
)

// IngestService encrypts incoming documents and writes the document row plus
// all of its index rows in one transaction, so concurrent readers never see
// a partially indexed document.
type IngestService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	crypto           Collaborator
	searchableFields []string
}

// NewIngestService constructs an IngestService. searchableFields is the
// fixed configuration-time set of fields that get index rows when present.
func NewIngestService(db *sql.DB, m repomanager.RepositoryManager, crypto Collaborator, searchableFields []string) *IngestService {
	return &IngestService{
		db:               db,
		repomanager:      m,
		crypto:           crypto,
		searchableFields: searchableFields,
	}
}

// Ingest encrypts doc, persists it, and indexes every searchable field
// present with a non-empty trimmed value. Each indexed field yields one row
// carrying the field-scoped internal token and the field-independent
// keyword hash. Returns the new document id.
func (s *IngestService) Ingest(ctx context.Context, doc map[string]any) (string, error) {

	if len(doc) == 0 {
		return "", common.ErrInvalidInput
	}

	blob, err := s.crypto.EncryptDocument(doc)
	if err != nil {
		return "", fmt.Errorf("%w: encrypting document: %v", common.ErrIngestionFailed, err)
	}

	id := uuid.NewString()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)

		if err := repo.CreateDocument(ctx, &models.EncryptedDocument{
			ID:         id,
			Nonce:      blob.Nonce,
			Ciphertext: blob.Ciphertext,
		}); err != nil {
			return err
		}

		for _, field := range s.searchableFields {
			raw, ok := doc[field]
			if !ok || raw == nil {
				continue
			}
			value := strings.TrimSpace(fmt.Sprint(raw))
			if value == "" {
				continue
			}

			if err := repo.CreateIndexEntry(ctx, &models.SearchIndexEntry{
				Token:         s.crypto.DeriveToken(field, value),
				ExternalToken: s.crypto.HashKeyword(value),
				DocumentID:    id,
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrIngestionFailed, err)
	}

	return id, nil
}
