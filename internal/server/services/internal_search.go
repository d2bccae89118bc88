package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/cryptox"
	"github.com/securematch/securematch/internal/server/repositories/repomanager"
)

// InternalSearchService resolves conjunctive multi-field queries over the
// encrypted index. Trapdoors are derived with the same deterministic
// function ingestion uses for tokens, so a trapdoor matches a token iff the
// original values were equal.
type InternalSearchService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	crypto      Collaborator
}

// NewInternalSearchService constructs an InternalSearchService.
func NewInternalSearchService(db *sql.DB, m repomanager.RepositoryManager, crypto Collaborator) *InternalSearchService {
	return &InternalSearchService{db: db, repomanager: m, crypto: crypto}
}

// InternalSearchResult carries decrypted matches plus the counters the
// response metadata reports. ExecutionTimeMs is observability only.
type InternalSearchResult struct {
	Results         []map[string]any
	TotalMatches    int
	ReturnedCount   int
	Truncated       bool
	ExecutionTimeMs float64
}

// Search resolves query as a pure conjunction: a document qualifies only if
// it matches every queried field. Results are capped at MaxInternalResults;
// the documents actually returned are decrypted via the collaborator.
func (s *InternalSearchService) Search(ctx context.Context, query map[string]string) (*InternalSearchResult, error) {

	if len(query) == 0 {
		return nil, common.ErrInvalidQuery
	}

	start := time.Now()
	repo := s.repomanager.Documents(s.db)

	var matchIDs []string
	first := true

	for field, value := range query {
		trapdoor := s.crypto.DeriveToken(field, value)

		ids, err := repo.SelectIDsByToken(ctx, trapdoor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrSearchFailed, err)
		}

		if first {
			matchIDs = dedupe(ids)
			first = false
		} else {
			matchIDs = intersect(matchIDs, ids)
		}

		// a conjunction can never recover from an empty field
		if len(matchIDs) == 0 {
			break
		}
	}

	if len(matchIDs) == 0 {
		return &InternalSearchResult{
			Results:         []map[string]any{},
			ExecutionTimeMs: roundMs(time.Since(start)),
		}, nil
	}

	totalMatches := len(matchIDs)
	truncated := totalMatches > MaxInternalResults
	if truncated {
		matchIDs = matchIDs[:MaxInternalResults]
	}

	docs, err := repo.SelectByIDs(ctx, matchIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSearchFailed, err)
	}

	results := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		plain, err := s.crypto.DecryptDocument(&cryptox.Blob{Nonce: doc.Nonce, Ciphertext: doc.Ciphertext})
		if err != nil {
			return nil, fmt.Errorf("%w: decrypting document %s: %v", common.ErrSearchFailed, doc.ID, err)
		}
		results = append(results, plain)
	}

	return &InternalSearchResult{
		Results:         results,
		TotalMatches:    totalMatches,
		ReturnedCount:   len(results),
		Truncated:       truncated,
		ExecutionTimeMs: roundMs(time.Since(start)),
	}, nil
}

// dedupe preserves first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// intersect keeps the elements of current that also appear in next,
// preserving current's order.
func intersect(current, next []string) []string {
	set := make(map[string]struct{}, len(next))
	for _, id := range next {
		set[id] = struct{}{}
	}
	result := current[:0]
	for _, id := range current {
		if _, ok := set[id]; ok {
			result = append(result, id)
		}
	}
	return result
}
