// Package secret seals credentials at rest with AES-GCM.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Sealer encrypts and decrypts short secrets bound to a purpose label.
type Sealer struct {
	aead    cipher.AEAD
	purpose []byte
}

// NewSealer derives a 256-bit key from passphrase and binds every payload
// to purpose as additional authenticated data.
func NewSealer(passphrase string, purpose string) (*Sealer, error) {
	passphrase = strings.TrimSpace(passphrase)
	if len(passphrase) < 16 {
		return nil, fmt.Errorf("seal key must be at least 16 characters")
	}
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Sealer{aead: aead, purpose: []byte(purpose)}, nil
}

// Seal encrypts value and returns base64(nonce || ciphertext).
func (s *Sealer) Seal(value string) (string, error) {
	if s == nil || s.aead == nil {
		return "", fmt.Errorf("sealer is not configured")
	}
	if value == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	payload := s.aead.Seal(nonce, nonce, []byte(value), s.purpose)
	return base64.RawStdEncoding.EncodeToString(payload), nil
}

// Open reverses Seal. An empty input opens to an empty value.
func (s *Sealer) Open(sealed string) (string, error) {
	if s == nil || s.aead == nil {
		return "", fmt.Errorf("sealer is not configured")
	}
	if sealed == "" {
		return "", nil
	}

	payload, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	nonceSize := s.aead.NonceSize()
	if len(payload) < nonceSize {
		return "", fmt.Errorf("sealed value is too short")
	}
	plaintext, err := s.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], s.purpose)
	if err != nil {
		return "", fmt.Errorf("decrypt sealed value: %w", err)
	}
	return string(plaintext), nil
}
