// Package common defines shared sentinel errors used across the SecureMatch
// server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Ingestion errors.
	ErrInvalidInput    = errors.New("invalid input")
	ErrIngestionFailed = errors.New("ingestion failed")

	// Internal search errors.
	ErrInvalidQuery = errors.New("invalid query")
	ErrSearchFailed = errors.New("search failed")

	// External (audited) search errors.
	ErrMissingFields    = errors.New("missing fields")
	ErrAuditorNotFound  = errors.New("auditor not found")
	ErrInvalidSignature = errors.New("invalid signature")
)
