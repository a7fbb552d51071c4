// Package apikey gates the HTTP surface behind static bearer keys.
package apikey

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Set holds the sha256 digests of the accepted keys and their caller labels.
type Set struct {
	digests map[string]string // hex digest -> label
}

// NewSet builds a Set from label -> raw key pairs.
func NewSet(keys map[string]string) *Set {
	s := &Set{digests: make(map[string]string, len(keys))}
	for label, raw := range keys {
		s.digests[hashKey(raw)] = label
	}
	return s
}

// Enabled is false when no keys are configured.
func (s *Set) Enabled() bool {
	return s != nil && len(s.digests) > 0
}

// Lookup resolves a raw key to its caller label.
func (s *Set) Lookup(rawKey string) (string, bool) {
	if !s.Enabled() || rawKey == "" {
		return "", false
	}
	got := []byte(hashKey(rawKey))
	label, found := "", false
	for digest, l := range s.digests {
		if subtle.ConstantTimeCompare(got, []byte(digest)) == 1 {
			label, found = l, true
		}
	}
	return label, found
}

func hashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
