// Package cipher implements field-level encryption at rest for session
// descriptors and event payloads. It is constructor-injected and held
// by reference by the store — never a package-level singleton.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"

	"golang.org/x/crypto/pbkdf2"
)

// pbkdf2Iterations matches the minimum iteration count the external
// interface requires for a password-derived key.
const pbkdf2Iterations = 100_000

// KeySource selects how the symmetric key is obtained: either a direct
// key or a password+salt pair run through a KDF.
type KeySource struct {
	// Key, if non-empty, is hashed with SHA-256 to produce the 32-byte
	// AES key, so an operator-supplied secret of any length is accepted.
	Key string
	// Password and Salt derive a key via PBKDF2-HMAC-SHA256 when Key is
	// empty.
	Password string
	Salt     string
}

// PayloadCipher encrypts and decrypts sensitive string values with an
// AEAD scheme (AES-256-GCM), serialized as URL-safe base64. Encrypt and
// Decrypt never return an error to the caller: on any failure the value
// is logged and passed through unchanged, matching the store's
// soft-fail-through contract for cipher errors.
type PayloadCipher struct {
	gcm     cipher.AEAD
	enabled bool
}

// New builds a PayloadCipher from a key source. enabled controls whether
// Encrypt/Decrypt are no-ops (ENABLE_DATA_ENCRYPTION=false): when
// disabled, values pass through unchanged.
func New(source KeySource, enabled bool) (*PayloadCipher, error) {
	key := deriveKey(source)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &PayloadCipher{gcm: gcm, enabled: enabled}, nil
}

func deriveKey(source KeySource) []byte {
	if source.Key != "" {
		sum := sha256.Sum256([]byte(source.Key))
		return sum[:]
	}
	password := source.Password
	if password == "" {
		password = "default-password-change-in-production"
	}
	salt := source.Salt
	if salt == "" {
		salt = "default-salt-change-in-production"
	}
	return pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, 32, sha256.New)
}

// Encrypt returns data unchanged if the cipher is disabled or the input
// is empty, otherwise its AEAD-sealed, URL-safe-base64-encoded form.
func (c *PayloadCipher) Encrypt(data string) string {
	if !c.enabled || data == "" {
		return data
	}

	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		slog.Warn("encryption failed, returning unencrypted data", "error", err)
		return data
	}

	sealed := c.gcm.Seal(nonce, nonce, []byte(data), nil)
	return base64.URLEncoding.EncodeToString(sealed)
}

// Decrypt is the symmetric inverse of Encrypt. A disabled cipher or an
// empty input returns the input unchanged. Any decryption failure
// (malformed ciphertext, or a value that was never encrypted) is logged
// and returns the input unchanged for backward compatibility.
func (c *PayloadCipher) Decrypt(encoded string) string {
	if !c.enabled || encoded == "" {
		return encoded
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		slog.Warn("decryption failed, returning value unchanged", "error", err)
		return encoded
	}

	nonceSize := c.gcm.NonceSize()
	if len(raw) < nonceSize {
		slog.Warn("decryption failed, returning value unchanged", "error", "ciphertext shorter than nonce")
		return encoded
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plain, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		slog.Warn("decryption failed, returning value unchanged", "error", err)
		return encoded
	}
	return string(plain)
}

// Enabled reports whether encryption is active for this cipher instance.
func (c *PayloadCipher) Enabled() bool {
	return c.enabled
}
