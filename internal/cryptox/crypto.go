// Package cryptox implements the cryptographic primitives consumed by the
// SecureMatch search protocol: AES-GCM document encryption, deterministic
// HMAC index tokens and keyword hashes, and ed25519 signature handling for
// auditor authentication.
//
// The three symmetric keys (document encryption, index tokens, keyword
// hashes) are derived from a single 32-byte master key via HKDF-SHA256, so
// learning one does not expose the others.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	masterKeySize = 32
	nonceSize     = 12
)

// HKDF info labels. Changing any of these rewires the whole index, so they
// are part of the on-disk format.
const (
	infoDocumentKey = "securematch/document-encryption/v1"
	infoTokenKey    = "securematch/index-token/v1"
	infoKeywordKey  = "securematch/keyword-hash/v1"
)

var ErrInvalidMasterKey = errors.New("master key must be 32 bytes")

// Blob is an encrypted document payload. Both fields are hex-encoded; the
// nonce is always 12 bytes (24 hex characters).
type Blob struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Engine holds the derived key material and implements the collaborator
// contract used by the ingestion and search services.
type Engine struct {
	docKey     []byte
	tokenKey   []byte
	keywordKey []byte
}

// NewEngine derives the document, token and keyword keys from masterKey.
func NewEngine(masterKey []byte) (*Engine, error) {
	if len(masterKey) != masterKeySize {
		return nil, ErrInvalidMasterKey
	}

	docKey, err := deriveKey(masterKey, infoDocumentKey)
	if err != nil {
		return nil, err
	}
	tokenKey, err := deriveKey(masterKey, infoTokenKey)
	if err != nil {
		return nil, err
	}
	keywordKey, err := deriveKey(masterKey, infoKeywordKey)
	if err != nil {
		return nil, err
	}

	return &Engine{docKey: docKey, tokenKey: tokenKey, keywordKey: keywordKey}, nil
}

// NewEngineFromHex is NewEngine for a hex-encoded master key, as carried in
// configuration.
func NewEngineFromHex(masterKeyHex string) (*Engine, error) {
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	return NewEngine(key)
}

func deriveKey(masterKey []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncryptDocument serializes doc to JSON and encrypts it with AES-256-GCM
// under a fresh random nonce.
func (e *Engine) EncryptDocument(doc map[string]any) (*Blob, error) {

	plaintext, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(e.docKey)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	return &Blob{
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ciphertext),
	}, nil
}

// DecryptDocument inverts EncryptDocument. It fails if the blob was tampered
// with or encrypted under a different key.
func (e *Engine) DecryptDocument(blob *Blob) (map[string]any, error) {

	nonce, err := hex.DecodeString(blob.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}
	ciphertext, err := hex.DecodeString(blob.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(e.docKey)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeriveToken returns the deterministic index token for a (field, value)
// pair. The same function produces write-time tokens and query-time
// trapdoors: equal inputs always yield equal tokens.
func (e *Engine) DeriveToken(field, value string) string {
	mac := hmac.New(sha256.New, e.tokenKey)
	mac.Write([]byte(field))
	mac.Write([]byte{0})
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashKeyword returns the field-independent keyword hash used by external
// auditor search. Intentionally broader than DeriveToken: one keyword
// matches the value in any indexed field.
func (e *Engine) HashKeyword(value string) string {
	mac := hmac.New(sha256.New, e.keywordKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an ed25519 signature over message. Signature and
// public key are base64-encoded. Malformed inputs verify as false rather
// than erroring: an unparseable signature is just an invalid one.
func (e *Engine) VerifySignature(message, signature, publicKey string) bool {
	pub, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig)
}

// GenerateKeyPair creates a fresh ed25519 keypair for a new or rotated
// auditor key. Both halves are base64-encoded; the private key is returned
// to the caller exactly once and never persisted.
func (e *Engine) GenerateKeyPair() (publicKey, privateKey string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(pub), base64.StdEncoding.EncodeToString(priv), nil
}

// SignMessage signs message with a base64-encoded ed25519 private key.
// Auditors run this on their side; the server only needs it in tests and
// tooling.
func SignMessage(message, privateKey string) (string, error) {
	priv, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("decoding private key: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return "", errors.New("invalid private key size")
	}
	sig := ed25519.Sign(ed25519.PrivateKey(priv), []byte(message))
	return base64.StdEncoding.EncodeToString(sig), nil
}
