// Package securestore persists small string values, encrypted at rest when
// possible.
//
// Storage starts on the encrypted backend. The first failure of any
// operation there switches it to the plain backend for the rest of the
// process, and the failed operation is replayed on the plain backend.
// Errors never reach callers: they are logged and the zero value returned.
package securestore

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/waqtapp/waqt/pkg/logger"
	"github.com/waqtapp/waqt/pkg/securestore/keyring"
)

type Storage struct {
	mu       sync.Mutex
	primary  Backend
	fallback Backend
	degraded bool
	log      logger.Logger
}

func New(primary, fallback Backend, l logger.Logger) *Storage {
	return &Storage{primary: primary, fallback: fallback, log: logger.OrNop(l)}
}

// Open wires the default backends under dir: sealed values in dir/secure
// keyed from the OS keyring (or dir/state.key), plain values in dir/plain.
func Open(fs afero.Fs, dir string, l logger.Logger) *Storage {
	files := keyring.NewFileKeyStore(fs, dir)
	primary := NewEncryptedBackend(fs, filepath.Join(dir, "secure"), func() ([]byte, error) {
		return keyring.LoadOrCreate(keyring.NewKeyring(), files)
	})
	return New(primary, NewPlainBackend(fs, filepath.Join(dir, "plain")), l)
}

// Degraded reports whether the plain fallback is in use.
func (s *Storage) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// run executes op on the active backend, degrading on primary failure.
// Callers hold s.mu.
func (s *Storage) run(op string, key string, fn func(Backend) error) {
	if !s.degraded {
		err := fn(s.primary)
		if err == nil {
			return
		}
		s.degraded = true
		s.log.Warning("securestore: encrypted storage unavailable, falling back to plain storage: %s %q: %v", op, key, err)
	}
	if err := fn(s.fallback); err != nil {
		s.log.Error("securestore: failed to %s %q: %v", op, key, err)
	}
}

// Get returns the stored value and whether it exists.
func (s *Storage) Get(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		value string
		found bool
	)
	s.run("read", key, func(b Backend) error {
		v, ok, err := b.Get(ctx, key)
		if err != nil {
			return err
		}
		value, found = v, ok
		return nil
	})
	return value, found
}

func (s *Storage) Set(ctx context.Context, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run("persist", key, func(b Backend) error {
		return b.Set(ctx, key, value)
	})
}

func (s *Storage) Remove(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run("delete", key, func(b Backend) error {
		return b.Remove(ctx, key)
	})
}
