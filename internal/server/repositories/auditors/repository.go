package auditors

import (
	"context"

	"github.com/securematch/securematch/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, auditor *models.Auditor) error
	GetByID(ctx context.Context, id string) (*models.Auditor, error)
	RotateKey(ctx context.Context, id string, publicKey string) (int, error)
}
