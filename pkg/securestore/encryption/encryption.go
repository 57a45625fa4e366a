// Package encryption seals values with AES-256-GCM under keys derived from a
// single master key.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// sealPrefix versions the sealed layout: prefix || nonce || ciphertext.
const sealPrefix = "gcm1"

// KeySize is the length of master and derived keys.
const KeySize = 32

var ErrMalformed = errors.New("malformed sealed value")

var randReader io.Reader = rand.Reader

// DeriveKey expands master into a purpose-bound key with HKDF-SHA256.
func DeriveKey(master []byte, purpose string) ([]byte, error) {
	if len(master) != KeySize {
		return nil, fmt.Errorf("invalid master key length: expected %d, got %d", KeySize, len(master))
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext. The key name is bound as additional data so a
// value copied under another name fails to open.
func Seal(plaintext []byte, key []byte, name string) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(sealPrefix)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, sealPrefix...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, []byte(name)), nil
}

// Open reverses Seal.
func Open(sealed []byte, key []byte, name string) ([]byte, error) {
	if len(sealed) < len(sealPrefix) || string(sealed[:len(sealPrefix)]) != sealPrefix {
		return nil, fmt.Errorf("%w: unknown prefix", ErrMalformed)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	body := sealed[len(sealPrefix):]
	if len(body) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: too short", ErrMalformed)
	}
	return gcm.Open(nil, body[:gcm.NonceSize()], body[gcm.NonceSize():], []byte(name))
}
