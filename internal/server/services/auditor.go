package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/server/models"
	"github.com/securematch/securematch/internal/server/repositories/repomanager"
)

// AuditorService manages the auditor registry: registration with a fresh
// keypair, key rotation, and ledger history reads. Private keys are handed
// to the caller exactly once and never stored.
type AuditorService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	crypto      Collaborator
}

// NewAuditorService constructs an AuditorService.
func NewAuditorService(db *sql.DB, m repomanager.RepositoryManager, crypto Collaborator) *AuditorService {
	return &AuditorService{db: db, repomanager: m, crypto: crypto}
}

// Create registers a new auditor at key version 1 and returns it together
// with the generated private key.
func (s *AuditorService) Create(ctx context.Context, name string) (*models.Auditor, string, error) {

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", common.ErrInvalidInput
	}

	publicKey, privateKey, err := s.crypto.GenerateKeyPair()
	if err != nil {
		return nil, "", fmt.Errorf("%w: generating keypair: %v", common.ErrorInternal, err)
	}

	auditor := &models.Auditor{
		ID:         uuid.NewString(),
		Name:       name,
		PublicKey:  publicKey,
		KeyVersion: 1,
	}

	if err := s.repomanager.Auditors(s.db).Create(ctx, auditor); err != nil {
		return nil, "", fmt.Errorf("%w: creating auditor: %v", common.ErrorInternal, err)
	}

	return auditor, privateKey, nil
}

// RotateKey installs a fresh keypair for an existing auditor and bumps its
// key version. Signatures made with the old key stop verifying immediately;
// audit rows written from here on carry the new version.
func (s *AuditorService) RotateKey(ctx context.Context, id string) (*models.Auditor, string, error) {

	repo := s.repomanager.Auditors(s.db)

	auditor, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrAuditorNotFound
		}
		return nil, "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	publicKey, privateKey, err := s.crypto.GenerateKeyPair()
	if err != nil {
		return nil, "", fmt.Errorf("%w: generating keypair: %v", common.ErrorInternal, err)
	}

	version, err := repo.RotateKey(ctx, id, publicKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrAuditorNotFound
		}
		return nil, "", fmt.Errorf("%w: rotating key: %v", common.ErrorInternal, err)
	}

	auditor.PublicKey = publicKey
	auditor.KeyVersion = version

	return auditor, privateKey, nil
}

// ListAudits returns the auditor's most recent ledger rows, newest first.
func (s *AuditorService) ListAudits(ctx context.Context, id string, limit int) ([]*models.ExternalSearchAudit, error) {

	if _, err := s.repomanager.Auditors(s.db).GetByID(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAuditorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	records, err := s.repomanager.Audits(s.db).SelectByAuditor(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return records, nil
}
