// Package crypto seals small at-rest secrets (the cached OAuth credential)
// with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
)

var (
	ErrInvalidKey  = errors.New("crypto: key must be 32 bytes (64 hex chars)")
	ErrShortCipher = errors.New("crypto: ciphertext too short")
)

// Sealer encrypts and decrypts with a fixed 32-byte key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer from a hex-encoded 32-byte key.
func NewSealer(keyHex string) (*Sealer, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext. Output format: [nonce(12) | ciphertext+tag].
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(data) < n {
		return nil, ErrShortCipher
	}
	return s.aead.Open(nil, data[:n], data[n:], nil)
}
