package models

import "time"

// ExternalSearchAudit is one append-only ledger row per external search
// attempt, successful or not. Rows are never updated or deleted; recency
// queries read them in created_at descending order.
type ExternalSearchAudit struct {
	ID              string
	AuditorID       string
	KeywordHash     string
	TotalMatches    int
	ReturnedCount   int
	Truncated       bool
	ExecutionTimeMs float64
	Success         bool
	FailureReason   string
	KeyVersion      int
	IPAddress       string
	CreatedAt       time.Time
}
