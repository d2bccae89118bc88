// Package services contains the server-side protocol logic: document
// ingestion and indexing, internal conjunctive search, signature-gated
// external search with response padding, and auditor administration.
package services

import (
	"math"
	"strings"
	"time"

	"github.com/securematch/securematch/internal/cryptox"
)

// Result caps and the audit rate window. The external cap doubles as the
// padded response length: every external response carries exactly
// MaxExternalResults entries.
const (
	MaxInternalResults = 50
	MaxExternalResults = 50
	AuditRateWindow    = time.Hour
)

// Collaborator is the cryptographic contract the protocol core consumes as a
// black box. cryptox.Engine is the default implementation; the services
// never assume anything about the construction beyond determinism of
// DeriveToken and HashKeyword.
type Collaborator interface {
	EncryptDocument(doc map[string]any) (*cryptox.Blob, error)
	DecryptDocument(blob *cryptox.Blob) (map[string]any, error)
	DeriveToken(field, value string) string
	HashKeyword(value string) string
	VerifySignature(message, signature, publicKey string) bool
	GenerateKeyPair() (publicKey, privateKey string, err error)
}

var _ Collaborator = (*cryptox.Engine)(nil)

// roundMs converts a duration to milliseconds rounded to two decimal places,
// the precision recorded in audit rows and response metadata.
func roundMs(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*100) / 100
}

// paddingEntry is the synthetic placeholder appended until an external
// response reaches the fixed length: a 24-character zero nonce and a
// 64-character zero ciphertext, marked so clients can drop it.
func paddingEntry() ExternalResultEntry {
	return ExternalResultEntry{
		Nonce:      strings.Repeat("0", 24),
		Ciphertext: strings.Repeat("0", 64),
		Padded:     true,
	}
}
