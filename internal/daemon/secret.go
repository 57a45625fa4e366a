package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/waqtapp/waqt/config"
)

var ErrNoSecret = errors.New("no RPC secret configured")

// EnsureSecret returns the configured RPC secret, or the one stored in the
// secret file, generating and storing a new one on first run.
func EnsureSecret(fsys afero.Fs, cfg *config.Config) (string, error) {
	if cfg.RPCSecret != "" {
		return cfg.RPCSecret, nil
	}
	secret, err := ReadSecret(fsys, cfg)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, ErrNoSecret) {
		return "", err
	}
	secret = uuid.NewString()
	if err := afero.WriteFile(fsys, cfg.SecretFile(), []byte(secret+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write rpc secret: %w", err)
	}
	return secret, nil
}

// ReadSecret is EnsureSecret without the generation step, for clients.
func ReadSecret(fsys afero.Fs, cfg *config.Config) (string, error) {
	if cfg.RPCSecret != "" {
		return cfg.RPCSecret, nil
	}
	data, err := afero.ReadFile(fsys, cfg.SecretFile())
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoSecret
	}
	if err != nil {
		return "", fmt.Errorf("read rpc secret: %w", err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", ErrNoSecret
	}
	return secret, nil
}
