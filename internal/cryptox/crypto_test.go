package cryptox

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, 32)
	e, err := NewEngine(key)
	require.NoError(t, err)
	return e
}

func TestNewEngine_RejectsShortKey(t *testing.T) {
	_, err := NewEngine([]byte("too short"))
	assert.ErrorIs(t, err, ErrInvalidMasterKey)
}

func TestNewEngineFromHex(t *testing.T) {
	e, err := NewEngineFromHex(strings.Repeat("42", 32))
	require.NoError(t, err)
	assert.NotNil(t, e)

	_, err = NewEngineFromHex("not-hex")
	assert.Error(t, err)
}

func TestKeySeparation(t *testing.T) {
	e := testEngine(t)
	// the three derived keys must differ from each other and the master key
	assert.NotEqual(t, e.docKey, e.tokenKey)
	assert.NotEqual(t, e.docKey, e.keywordKey)
	assert.NotEqual(t, e.tokenKey, e.keywordKey)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	e := testEngine(t)

	doc := map[string]any{"name": "Alice", "city": "Paris", "age": "30"}

	blob, err := e.EncryptDocument(doc)
	require.NoError(t, err)
	assert.Len(t, blob.Nonce, 24, "12-byte nonce hex-encodes to 24 chars")
	_, err = hex.DecodeString(blob.Ciphertext)
	require.NoError(t, err)

	got, err := e.DecryptDocument(blob)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestEncryptDocument_FreshNoncePerCall(t *testing.T) {
	e := testEngine(t)
	doc := map[string]any{"k": "v"}

	b1, err := e.EncryptDocument(doc)
	require.NoError(t, err)
	b2, err := e.EncryptDocument(doc)
	require.NoError(t, err)

	assert.NotEqual(t, b1.Nonce, b2.Nonce)
	assert.NotEqual(t, b1.Ciphertext, b2.Ciphertext)
}

func TestDecryptDocument_TamperDetected(t *testing.T) {
	e := testEngine(t)

	blob, err := e.EncryptDocument(map[string]any{"k": "v"})
	require.NoError(t, err)

	raw, err := hex.DecodeString(blob.Ciphertext)
	require.NoError(t, err)
	raw[0] ^= 0xff
	blob.Ciphertext = hex.EncodeToString(raw)

	_, err = e.DecryptDocument(blob)
	assert.Error(t, err)
}

func TestDecryptDocument_WrongKeyFails(t *testing.T) {
	e := testEngine(t)
	other, err := NewEngine(bytes.Repeat([]byte{0x43}, 32))
	require.NoError(t, err)

	blob, err := e.EncryptDocument(map[string]any{"k": "v"})
	require.NoError(t, err)

	_, err = other.DecryptDocument(blob)
	assert.Error(t, err)
}

func TestDeriveToken_Deterministic(t *testing.T) {
	e := testEngine(t)

	t1 := e.DeriveToken("name", "Alice")
	t2 := e.DeriveToken("name", "Alice")
	assert.Equal(t, t1, t2, "same inputs must yield the same token")
	assert.Len(t, t1, 64)
}

func TestDeriveToken_FieldScoped(t *testing.T) {
	e := testEngine(t)

	assert.NotEqual(t, e.DeriveToken("name", "Alice"), e.DeriveToken("city", "Alice"),
		"the same value in different fields must produce different tokens")
	assert.NotEqual(t, e.DeriveToken("name", "Alice"), e.DeriveToken("name", "Bob"))
}

func TestHashKeyword_FieldIndependent(t *testing.T) {
	e := testEngine(t)

	h1 := e.HashKeyword("Alice")
	h2 := e.HashKeyword("Alice")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// keyword hash is deliberately not scoped to a field, and differs from
	// every field-scoped token for the same value
	assert.NotEqual(t, h1, e.DeriveToken("name", "Alice"))
	assert.NotEqual(t, h1, e.DeriveToken("city", "Alice"))
}

func TestSignVerify(t *testing.T) {
	e := testEngine(t)

	pub, priv, err := e.GenerateKeyPair()
	require.NoError(t, err)

	msg := e.HashKeyword("Alice")
	sig, err := SignMessage(msg, priv)
	require.NoError(t, err)

	assert.True(t, e.VerifySignature(msg, sig, pub))
	assert.False(t, e.VerifySignature(msg+"x", sig, pub), "different message must not verify")
	assert.False(t, e.VerifySignature(msg, sig, "bm90IGEga2V5"), "wrong key must not verify")
}

func TestVerifySignature_MalformedInputs(t *testing.T) {
	e := testEngine(t)

	pub, priv, err := e.GenerateKeyPair()
	require.NoError(t, err)
	sig, err := SignMessage("msg", priv)
	require.NoError(t, err)

	assert.False(t, e.VerifySignature("msg", "%%%not-base64%%%", pub))
	assert.False(t, e.VerifySignature("msg", sig, "%%%not-base64%%%"))
	assert.False(t, e.VerifySignature("msg", "dG9vc2hvcnQ=", pub), "short signature")
}

func TestSignMessage_InvalidKey(t *testing.T) {
	_, err := SignMessage("msg", "%%%not-base64%%%")
	assert.Error(t, err)

	_, err = SignMessage("msg", "dG9vc2hvcnQ=")
	assert.Error(t, err)
}
