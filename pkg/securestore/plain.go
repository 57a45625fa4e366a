package securestore

import (
	"context"

	"github.com/spf13/afero"
)

// PlainBackend keeps values unencrypted. It is the degraded fallback.
type PlainBackend struct {
	files fileStore
}

func NewPlainBackend(fs afero.Fs, dir string) *PlainBackend {
	return &PlainBackend{files: fileStore{fs: fs, dir: dir, ext: ".json", mode: 0600}}
}

func (b *PlainBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	data, ok, err := b.files.read(key)
	return string(data), ok, err
}

func (b *PlainBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.files.write(key, []byte(value))
}

func (b *PlainBackend) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.files.remove(key)
}
