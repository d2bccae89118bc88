package repomanager

import (
	"context"
	"database/sql"

	"github.com/securematch/securematch/internal/dbx"
	"github.com/securematch/securematch/internal/server/repositories/auditors"
	"github.com/securematch/securematch/internal/server/repositories/audits"
	"github.com/securematch/securematch/internal/server/repositories/documents"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Documents(db dbx.DBTX) documents.Repository
	Auditors(db dbx.DBTX) auditors.Repository
	Audits(db dbx.DBTX) audits.Repository
}
