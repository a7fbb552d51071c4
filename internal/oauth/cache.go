package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/gsarma/mailgate/internal/crypto"
)

// Credential is the persisted form of a login. oauth2.Token drops its extra
// fields when marshalled, so id_token and scope are kept alongside.
type Credential struct {
	Token   *oauth2.Token `json:"token"`
	IDToken string        `json:"id_token,omitempty"`
	Scope   string        `json:"scope,omitempty"`
}

// FileCache stores a single Credential on disk, optionally sealed.
type FileCache struct {
	path   string
	sealer *crypto.Sealer
}

// NewFileCache returns a cache at path. A nil sealer stores plain JSON.
func NewFileCache(path string, sealer *crypto.Sealer) *FileCache {
	return &FileCache{path: path, sealer: sealer}
}

// Path is the cache file location.
func (c *FileCache) Path() string { return c.path }

// Load reads the cached credential. A missing file is ErrNoCredential.
func (c *FileCache) Load() (*Credential, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("read token cache: %w", err)
	}
	if c.sealer != nil {
		if data, err = c.sealer.Open(data); err != nil {
			return nil, fmt.Errorf("open token cache: %w", err)
		}
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decode token cache: %w", err)
	}
	if cred.Token == nil {
		return nil, ErrNoCredential
	}
	return &cred, nil
}

// Save writes cred with 0600 permissions, replacing the file atomically.
func (c *FileCache) Save(cred *Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode token cache: %w", err)
	}
	if c.sealer != nil {
		if data, err = c.sealer.Seal(data); err != nil {
			return fmt.Errorf("seal token cache: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".token-cache-*")
	if err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}
