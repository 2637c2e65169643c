package identity

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/and161185/forever-vivid/internal/model"
)

// SessionStore persists the credential between runs.
type SessionStore interface {
	Load() (*model.Credential, error) // nil, nil when nothing is stored
	Save(model.Credential) error
	Clear() error
}

// FileStore keeps the credential as JSON in a 0600 file.
type FileStore struct {
	Path string
}

var _ SessionStore = (*FileStore)(nil)

// Load reads the stored credential. A missing file is not an error.
func (f *FileStore) Load() (*model.Credential, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c model.Credential
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if c.UID == "" || c.AccessToken == "" {
		return nil, errors.New("session file: empty uid or token")
	}
	return &c, nil
}

// Save writes c atomically.
func (f *FileStore) Save(c model.Credential) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

// Clear removes the file.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
