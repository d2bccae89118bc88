package audits

import (
	"context"
	"time"

	"github.com/securematch/securematch/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, record *models.ExternalSearchAudit) error
	CountSince(ctx context.Context, auditorID string, since time.Time) (int, error)
	SelectByAuditor(ctx context.Context, auditorID string, limit int) ([]*models.ExternalSearchAudit, error)
}
