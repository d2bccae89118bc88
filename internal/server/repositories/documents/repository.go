package documents

import (
	"context"

	"github.com/securematch/securematch/internal/server/models"
)

type Repository interface {
	CreateDocument(ctx context.Context, doc *models.EncryptedDocument) error
	CreateIndexEntry(ctx context.Context, entry *models.SearchIndexEntry) error
	SelectByIDs(ctx context.Context, ids []string) ([]*models.EncryptedDocument, error)
	SelectIDsByToken(ctx context.Context, token string) ([]string, error)
	CountByExternalToken(ctx context.Context, externalToken string) (int, error)
	SelectByExternalToken(ctx context.Context, externalToken string, limit int) ([]*models.EncryptedDocument, error)
	SelectRecent(ctx context.Context, limit int) ([]*models.EncryptedDocument, error)
	Delete(ctx context.Context, id string) error
}
