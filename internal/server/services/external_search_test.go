package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registeredAuditor(m *fakeRepoManager) *models.Auditor {
	auditor := &models.Auditor{
		ID:         "aud-1",
		Name:       "Reserve Bank",
		PublicKey:  "pub-1",
		KeyVersion: 3,
	}
	m.auditorsRepo.auditors[auditor.ID] = auditor
	return auditor
}

func TestExternalSearch_MissingFieldsNotLogged(t *testing.T) {
	m := newFakeRepoManager()
	registeredAuditor(m)
	service := NewExternalSearchService(nil, m, &fakeCrypto{verifyOK: true})

	for _, req := range []ExternalSearchRequest{
		{KeywordHash: "kw:4111", Signature: "sig"},
		{AuditorID: "aud-1", Signature: "sig"},
		{AuditorID: "aud-1", KeywordHash: "kw:4111"},
	} {
		_, err := service.Search(context.Background(), req)
		assert.ErrorIs(t, err, common.ErrMissingFields)
	}
	assert.Empty(t, m.auditsRepo.appended)
}

func TestExternalSearch_UnknownAuditorNotLogged(t *testing.T) {
	m := newFakeRepoManager()
	service := NewExternalSearchService(nil, m, &fakeCrypto{verifyOK: true})

	_, err := service.Search(context.Background(), ExternalSearchRequest{
		AuditorID:   "no-such-auditor",
		KeywordHash: "kw:4111",
		Signature:   "sig",
	})
	assert.ErrorIs(t, err, common.ErrAuditorNotFound)
	assert.Empty(t, m.auditsRepo.appended)
}

func TestExternalSearch_InvalidSignatureLoggedAndRejected(t *testing.T) {
	m := newFakeRepoManager()
	auditor := registeredAuditor(m)
	service := NewExternalSearchService(nil, m, &fakeCrypto{verifyOK: false})

	_, err := service.Search(context.Background(), ExternalSearchRequest{
		AuditorID:   auditor.ID,
		KeywordHash: "kw:4111",
		Signature:   "bad-sig",
		ClientIP:    "203.0.113.9",
	})
	assert.ErrorIs(t, err, common.ErrInvalidSignature)

	require.Len(t, m.auditsRepo.appended, 1)
	record := m.auditsRepo.appended[0]
	assert.False(t, record.Success)
	assert.Equal(t, "signature verification failed", record.FailureReason)
	assert.Equal(t, auditor.ID, record.AuditorID)
	assert.Equal(t, "kw:4111", record.KeywordHash)
	assert.Equal(t, 3, record.KeyVersion)
	assert.Equal(t, "203.0.113.9", record.IPAddress)
	assert.Zero(t, record.TotalMatches)
	assert.Zero(t, record.ReturnedCount)
}

func TestExternalSearch_RepeatedFailuresEachAppendARow(t *testing.T) {
	m := newFakeRepoManager()
	auditor := registeredAuditor(m)
	service := NewExternalSearchService(nil, m, &fakeCrypto{verifyOK: false})

	for i := 0; i < 3; i++ {
		_, err := service.Search(context.Background(), ExternalSearchRequest{
			AuditorID:   auditor.ID,
			KeywordHash: fmt.Sprintf("kw:guess-%d", i),
			Signature:   "bad-sig",
		})
		assert.ErrorIs(t, err, common.ErrInvalidSignature)
	}
	assert.Len(t, m.auditsRepo.appended, 3)
}

func TestExternalSearch_ResponseIsAlwaysFixedLength(t *testing.T) {
	m := newFakeRepoManager()
	auditor := registeredAuditor(m)
	m.documentsRepo.externalCount = 3
	m.documentsRepo.externalDocs = []*models.EncryptedDocument{
		encryptedFixture("d1", `{"pan":"4111"}`),
		encryptedFixture("d2", `{"pan":"4111"}`),
		encryptedFixture("d3", `{"pan":"4111"}`),
	}
	m.auditsRepo.countSince = 7

	service := NewExternalSearchService(nil, m, &fakeCrypto{verifyOK: true})

	result, err := service.Search(context.Background(), ExternalSearchRequest{
		AuditorID:   auditor.ID,
		KeywordHash: "kw:4111",
		Signature:   "sig",
	})
	require.NoError(t, err)

	require.Len(t, result.Results, MaxExternalResults)
	for i, entry := range result.Results {
		if i < 3 {
			assert.False(t, entry.Padded)
			assert.Equal(t, "deadbeefdeadbeefdeadbeef", entry.Nonce)
		} else {
			assert.True(t, entry.Padded)
			assert.Equal(t, strings.Repeat("0", 24), entry.Nonce)
			assert.Equal(t, strings.Repeat("0", 64), entry.Ciphertext)
		}
	}

	assert.Equal(t, 3, result.TotalMatches)
	assert.Equal(t, 3, result.ReturnedCount)
	assert.False(t, result.Truncated)
	assert.True(t, result.ResponsePadded)
	assert.Equal(t, 7, result.SearchesLastHour)
	assert.Equal(t, 3, result.KeyVersionUsed)

	require.Len(t, m.auditsRepo.appended, 1)
	record := m.auditsRepo.appended[0]
	assert.True(t, record.Success)
	assert.Equal(t, record.ID, result.AuditLogID)
	assert.Equal(t, 3, record.TotalMatches)
	assert.Equal(t, 3, record.ReturnedCount)
}

func TestExternalSearch_ZeroMatchesStillFullLength(t *testing.T) {
	m := newFakeRepoManager()
	auditor := registeredAuditor(m)

	service := NewExternalSearchService(nil, m, &fakeCrypto{verifyOK: true})

	result, err := service.Search(context.Background(), ExternalSearchRequest{
		AuditorID:   auditor.ID,
		KeywordHash: "kw:nothing",
		Signature:   "sig",
	})
	require.NoError(t, err)

	require.Len(t, result.Results, MaxExternalResults)
	for _, entry := range result.Results {
		assert.True(t, entry.Padded)
	}
	assert.Equal(t, 0, result.TotalMatches)
	assert.Equal(t, 0, result.ReturnedCount)
	assert.True(t, result.ResponsePadded)
}

func TestExternalSearch_TruncatesAboveCap(t *testing.T) {
	m := newFakeRepoManager()
	auditor := registeredAuditor(m)
	m.documentsRepo.externalCount = 120
	for i := 0; i < 120; i++ {
		m.documentsRepo.externalDocs = append(m.documentsRepo.externalDocs,
			encryptedFixture(fmt.Sprintf("d%03d", i), `{"pan":"4111"}`))
	}

	service := NewExternalSearchService(nil, m, &fakeCrypto{verifyOK: true})

	result, err := service.Search(context.Background(), ExternalSearchRequest{
		AuditorID:   auditor.ID,
		KeywordHash: "kw:4111",
		Signature:   "sig",
	})
	require.NoError(t, err)

	require.Len(t, result.Results, MaxExternalResults)
	for _, entry := range result.Results {
		assert.False(t, entry.Padded)
	}
	assert.Equal(t, 120, result.TotalMatches)
	assert.Equal(t, MaxExternalResults, result.ReturnedCount)
	assert.True(t, result.Truncated)
	assert.False(t, result.ResponsePadded)
}

func TestExternalSearch_RollingCountReadBeforeSuccessRow(t *testing.T) {
	m := newFakeRepoManager()
	auditor := registeredAuditor(m)
	m.auditsRepo.countSince = 4

	service := NewExternalSearchService(nil, m, &fakeCrypto{verifyOK: true})

	result, err := service.Search(context.Background(), ExternalSearchRequest{
		AuditorID:   auditor.ID,
		KeywordHash: "kw:4111",
		Signature:   "sig",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.SearchesLastHour)
	require.Len(t, m.auditsRepo.appended, 1)
	assert.Zero(t, m.auditsRepo.appendedAtCount)
}
