package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/server/models"
	"github.com/securematch/securematch/internal/server/repositories/repomanager"
)

// ExternalSearchService serves signature-gated keyword search for registered
// auditors. Every attempt that reaches an identifiable auditor is logged to
// the append-only ledger, and every successful response is padded to a fixed
// length so its size reveals nothing about the true match count.
type ExternalSearchService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	crypto      Collaborator
}

// NewExternalSearchService constructs an ExternalSearchService.
func NewExternalSearchService(db *sql.DB, m repomanager.RepositoryManager, crypto Collaborator) *ExternalSearchService {
	return &ExternalSearchService{db: db, repomanager: m, crypto: crypto}
}

// ExternalSearchRequest is one auditor query. ClientIP is optional metadata
// recorded in the audit row.
type ExternalSearchRequest struct {
	AuditorID   string
	KeywordHash string
	Signature   string
	ClientIP    string
}

// ExternalResultEntry is one entry of the fixed-length response list: either
// a real encrypted blob or a synthetic placeholder with Padded set.
type ExternalResultEntry struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Padded     bool   `json:"padded,omitempty"`
}

// ExternalSearchResult carries the padded result list and the response
// metadata, including the ledger row id and the rolling-hour search count.
type ExternalSearchResult struct {
	Results                 []ExternalResultEntry
	TotalMatches            int
	ReturnedCount           int
	Truncated               bool
	ExecutionTimeMs         float64
	SignatureVerificationMs float64
	AuditLogID              string
	SearchesLastHour        int
	KeyVersionUsed          int
	ResponsePadded          bool
}

// Search runs one audited keyword query:
// lookup auditor, verify signature, resolve matches, pad, log.
//
// Missing fields and unknown auditors are rejected before any ledger write,
// since there is no auditor identity to attach evidence to. A failed signature is
// always logged against the auditor before the rejection is returned.
func (s *ExternalSearchService) Search(ctx context.Context, req ExternalSearchRequest) (*ExternalSearchResult, error) {

	totalStart := time.Now()

	if req.AuditorID == "" || req.KeywordHash == "" || req.Signature == "" {
		return nil, common.ErrMissingFields
	}

	auditor, err := s.repomanager.Auditors(s.db).GetByID(ctx, req.AuditorID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAuditorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	auditRepo := s.repomanager.Audits(s.db)

	verifyStart := time.Now()
	valid := s.crypto.VerifySignature(req.KeywordHash, req.Signature, auditor.PublicKey)
	verifyMs := roundMs(time.Since(verifyStart))

	if !valid {
		// credential-guessing evidence: the failure is durably logged, and
		// the response does not reveal whether the keyword would have matched
		record := &models.ExternalSearchAudit{
			ID:              uuid.NewString(),
			AuditorID:       auditor.ID,
			KeywordHash:     req.KeywordHash,
			ExecutionTimeMs: roundMs(time.Since(totalStart)),
			Success:         false,
			FailureReason:   "signature verification failed",
			KeyVersion:      auditor.KeyVersion,
			IPAddress:       req.ClientIP,
		}
		if err := auditRepo.Append(ctx, record); err != nil {
			return nil, fmt.Errorf("%w: logging failed attempt: %v", common.ErrorInternal, err)
		}
		return nil, common.ErrInvalidSignature
	}

	docRepo := s.repomanager.Documents(s.db)

	totalMatches, err := docRepo.CountByExternalToken(ctx, req.KeywordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	docs, err := docRepo.SelectByExternalToken(ctx, req.KeywordHash, MaxExternalResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	results := make([]ExternalResultEntry, 0, MaxExternalResults)
	for _, doc := range docs {
		results = append(results, ExternalResultEntry{Nonce: doc.Nonce, Ciphertext: doc.Ciphertext})
	}
	// fixed-size response: the list length is always exactly the cap,
	// whatever the true match count
	for len(results) < MaxExternalResults {
		results = append(results, paddingEntry())
	}

	// rolling count is read before the success row is appended, so it
	// reflects prior attempts only
	searchesLastHour, err := auditRepo.CountSince(ctx, auditor.ID, time.Now().Add(-AuditRateWindow))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	returnedCount := totalMatches
	if returnedCount > MaxExternalResults {
		returnedCount = MaxExternalResults
	}
	truncated := totalMatches > MaxExternalResults

	record := &models.ExternalSearchAudit{
		ID:              uuid.NewString(),
		AuditorID:       auditor.ID,
		KeywordHash:     req.KeywordHash,
		TotalMatches:    totalMatches,
		ReturnedCount:   returnedCount,
		Truncated:       truncated,
		ExecutionTimeMs: roundMs(time.Since(totalStart)),
		Success:         true,
		KeyVersion:      auditor.KeyVersion,
		IPAddress:       req.ClientIP,
	}
	if err := auditRepo.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: logging search: %v", common.ErrorInternal, err)
	}

	return &ExternalSearchResult{
		Results:                 results,
		TotalMatches:            totalMatches,
		ReturnedCount:           returnedCount,
		Truncated:               truncated,
		ExecutionTimeMs:         record.ExecutionTimeMs,
		SignatureVerificationMs: verifyMs,
		AuditLogID:              record.ID,
		SearchesLastHour:        searchesLastHour,
		KeyVersionUsed:          auditor.KeyVersion,
		ResponsePadded:          totalMatches < MaxExternalResults,
	}, nil
}
