package models

import "time"

// Auditor is a registered third party allowed to run signature-gated
// external searches. KeyVersion increases monotonically on every key
// rotation; audit rows record the version in force at verification time.
type Auditor struct {
	ID         string
	Name       string
	PublicKey  string
	KeyVersion int
	CreatedAt  time.Time
}
