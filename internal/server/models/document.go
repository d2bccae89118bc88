package models

import "time"

// EncryptedDocument is an ingested document stored only as ciphertext.
// Immutable after creation; deletion cascades to its index entries.
type EncryptedDocument struct {
	ID         string
	Nonce      string
	Ciphertext string
	CreatedAt  time.Time
}

// SearchIndexEntry is one index row per searchable field present at ingest.
// Token is the field-scoped internal index value; ExternalToken is the
// field-independent keyword hash (empty when hashing was not attempted).
type SearchIndexEntry struct {
	ID            int64
	Token         string
	ExternalToken string
	DocumentID    string
}
