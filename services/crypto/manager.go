// Package crypto provides the symmetric encryption and hashing primitives
// shared by the security core.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Manager holds the derived encryption key and hashing salt.
// Construct once from config and inject where needed.
type Manager struct {
	key  []byte // 32 bytes, AES-256
	salt []byte
}

// NewManager derives a fixed-size key from the configured secret.
func NewManager(secret string) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret must not be empty")
	}
	key := sha256.Sum256([]byte(secret))
	salt := sha256.Sum256([]byte("complycore:" + secret))
	return &Manager{
		key:  key[:],
		salt: salt[:16],
	}, nil
}

// Encrypt encrypts plaintext with AES-256-GCM. The random nonce is prepended
// to the ciphertext and the whole value is base64 encoded.
func (m *Manager) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Fails on tampered or truncated input.
func (m *Manager) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// HashPassword hashes a password with bcrypt at the default cost
func (m *Manager) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the bcrypt hash
func (m *Manager) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashIdentifier produces a one-way salted hash of the joined parts, hex
// encoded. Used to derive correlation ids without exposing the inputs.
func (m *Manager) HashIdentifier(parts ...string) string {
	h := sha256.New()
	h.Write(m.salt)
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
