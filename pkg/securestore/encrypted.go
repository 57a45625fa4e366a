package securestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"github.com/waqtapp/waqt/pkg/securestore/encryption"
)

// EncryptedBackend seals every value with a per-key subkey of the master key.
type EncryptedBackend struct {
	files fileStore

	keyOnce   sync.Once
	masterKey func() ([]byte, error)
	master    []byte
	keyErr    error
}

// NewEncryptedBackend stores sealed values in dir. masterKey is called once,
// on first use; its error fails that and every later operation.
func NewEncryptedBackend(fs afero.Fs, dir string, masterKey func() ([]byte, error)) *EncryptedBackend {
	return &EncryptedBackend{
		files:     fileStore{fs: fs, dir: dir, ext: ".enc", mode: 0600},
		masterKey: masterKey,
	}
}

func (b *EncryptedBackend) subkey(key string) ([]byte, error) {
	b.keyOnce.Do(func() {
		b.master, b.keyErr = b.masterKey()
	})
	if b.keyErr != nil {
		return nil, fmt.Errorf("master key: %w", b.keyErr)
	}
	return encryption.DeriveKey(b.master, "waqt/state/"+key)
}

func (b *EncryptedBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	k, err := b.subkey(key)
	if err != nil {
		return "", false, err
	}
	data, ok, err := b.files.read(key)
	if err != nil || !ok {
		return "", false, err
	}
	plain, err := encryption.Open(data, k, key)
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", key, err)
	}
	return string(plain), true, nil
}

func (b *EncryptedBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := b.subkey(key)
	if err != nil {
		return err
	}
	sealed, err := encryption.Seal([]byte(value), k, key)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return b.files.write(key, sealed)
}

func (b *EncryptedBackend) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.subkey(key); err != nil {
		return err
	}
	return b.files.remove(key)
}
