// Package keyring keeps the storage master key in the operating system
// keyring, with a file-based fallback for headless hosts.
package keyring

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"

	"github.com/zalando/go-keyring"
)

// KeyStore hands out a 32-byte master key.
type KeyStore interface {
	GetKey() ([]byte, error)
	SetKey() ([]byte, error)
}

// Keyring stores the key in the OS keyring under AppName/KeyField.
type Keyring struct {
	AppName  string
	KeyField string
}

var (
	keyringSet = keyring.Set
	keyringGet = keyring.Get
	randRead   = rand.Read
)

func NewKeyring() *Keyring {
	return &Keyring{
		AppName:  "waqt",
		KeyField: "state",
	}
}

func (k *Keyring) SetKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := randRead(key); err != nil {
		return nil, err
	}
	if err := keyringSet(k.AppName, k.KeyField, hex.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}

func (k *Keyring) GetKey() ([]byte, error) {
	s, err := keyringGet(k.AppName, k.KeyField)
	if err != nil {
		return nil, err
	}
	return decodeKey(s)
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid key length: expected 32, got %d", len(key))
	}
	return key, nil
}

func notFound(err error) bool {
	return errors.Is(err, keyring.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// LoadOrCreate returns the master key. An existing key in primary wins, then
// one in fallback. When neither exists a key is created in primary, or in
// fallback if primary is unusable.
func LoadOrCreate(primary, fallback KeyStore) ([]byte, error) {
	key, perr := primary.GetKey()
	if perr == nil {
		return key, nil
	}
	key, ferr := fallback.GetKey()
	if ferr == nil {
		return key, nil
	}
	if !notFound(ferr) {
		return nil, fmt.Errorf("read fallback key: %w", ferr)
	}
	if notFound(perr) {
		if key, err := primary.SetKey(); err == nil {
			return key, nil
		}
	}
	key, err := fallback.SetKey()
	if err != nil {
		return nil, fmt.Errorf("create fallback key: %w", err)
	}
	return key, nil
}
