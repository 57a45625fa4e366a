package keyring

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	keyFileName = "state.key"
	keyFileMode = 0600
)

// FileKeyStore keeps the hex-encoded key in <dir>/state.key with 0600
// permissions.
type FileKeyStore struct {
	fs  afero.Fs
	dir string
}

func NewFileKeyStore(fs afero.Fs, dir string) *FileKeyStore {
	return &FileKeyStore{fs: fs, dir: dir}
}

func (f *FileKeyStore) keyPath() string {
	return filepath.Join(f.dir, keyFileName)
}

// SetKey writes a fresh key via a temp file and rename.
func (f *FileKeyStore) SetKey() ([]byte, error) {
	if err := f.fs.MkdirAll(f.dir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	key := make([]byte, 32)
	if _, err := randRead(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	tmp, err := afero.TempFile(f.fs, f.dir, ".state.key.tmp.*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(hex.EncodeToString(key)); err != nil {
		tmp.Close()
		f.fs.Remove(tmpPath)
		return nil, fmt.Errorf("write key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(tmpPath)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := f.fs.Chmod(tmpPath, keyFileMode); err != nil {
		f.fs.Remove(tmpPath)
		return nil, fmt.Errorf("set permissions: %w", err)
	}
	if err := f.fs.Rename(tmpPath, f.keyPath()); err != nil {
		f.fs.Remove(tmpPath)
		return nil, fmt.Errorf("rename key file: %w", err)
	}
	return key, nil
}

func (f *FileKeyStore) GetKey() ([]byte, error) {
	data, err := afero.ReadFile(f.fs, f.keyPath())
	if err != nil {
		return nil, err
	}
	return decodeKey(string(data))
}
