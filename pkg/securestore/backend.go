package securestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
)

var ErrInvalidKey = errors.New("invalid storage key")

// Backend is a byte-string store. A missing key is not an error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// fileStore maps keys to files under dir.
type fileStore struct {
	fs   afero.Fs
	dir  string
	ext  string
	mode fs.FileMode
}

func (s fileStore) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key+s.ext), nil
}

func (s fileStore) read(key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// write replaces the file contents through a temp file and rename.
func (s fileStore) write(key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	tmp, err := afero.TempFile(s.fs, s.dir, "."+key+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return err
	}
	if err := s.fs.Chmod(tmpPath, s.mode); err != nil {
		s.fs.Remove(tmpPath)
		return err
	}
	if err := s.fs.Rename(tmpPath, p); err != nil {
		s.fs.Remove(tmpPath)
		return err
	}
	return nil
}

func (s fileStore) remove(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
