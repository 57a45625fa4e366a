package keyring

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
)

// stubKeyring swaps the OS keyring for an in-memory map for the test.
func stubKeyring(t *testing.T, getErr, setErr error) map[string]string {
	t.Helper()
	origSet, origGet := keyringSet, keyringGet
	t.Cleanup(func() {
		keyringSet, keyringGet = origSet, origGet
	})
	stored := map[string]string{}
	keyringSet = func(app, field, value string) error {
		if setErr != nil {
			return setErr
		}
		stored[app+"/"+field] = value
		return nil
	}
	keyringGet = func(app, field string) (string, error) {
		if getErr != nil {
			return "", getErr
		}
		v, ok := stored[app+"/"+field]
		if !ok {
			return "", keyring.ErrNotFound
		}
		return v, nil
	}
	return stored
}

func TestKeyring_SetGet(t *testing.T) {
	stored := stubKeyring(t, nil, nil)
	kr := NewKeyring()
	key, err := kr.SetKey()
	if err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if stored["waqt/state"] != hex.EncodeToString(key) {
		t.Fatalf("unexpected stored value %q", stored["waqt/state"])
	}
	got, err := kr.GetKey()
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatal("roundtrip mismatch")
	}
}

func TestKeyring_GetInvalid(t *testing.T) {
	stored := stubKeyring(t, nil, nil)
	stored["waqt/state"] = "zz"
	if _, err := NewKeyring().GetKey(); err == nil {
		t.Fatal("expected invalid hex error")
	}
	stored["waqt/state"] = "aabb"
	if _, err := NewKeyring().GetKey(); err == nil {
		t.Fatal("expected invalid length error")
	}
}

func TestFileKeyStore_SetGet(t *testing.T) {
	dir := t.TempDir()
	store := NewFileKeyStore(afero.NewOsFs(), dir)
	key, err := store.SetKey()
	if err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, keyFileName))
	if err != nil {
		t.Fatalf("key file not created: %v", err)
	}
	if info.Mode().Perm() != keyFileMode {
		t.Fatalf("expected permissions %o, got %o", keyFileMode, info.Mode().Perm())
	}
	got, err := store.GetKey()
	if err != nil || !bytes.Equal(got, key) {
		t.Fatalf("GetKey: %v", err)
	}
}

func TestFileKeyStore_GetMissing(t *testing.T) {
	_, err := NewFileKeyStore(afero.NewMemMapFs(), "/cfg").GetKey()
	if !notFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestFileKeyStore_ReadOnly(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	if _, err := NewFileKeyStore(fs, "/cfg").SetKey(); err == nil {
		t.Fatal("expected error on read-only filesystem")
	}
}

func TestLoadOrCreate(t *testing.T) {
	t.Run("creates in keyring", func(t *testing.T) {
		stored := stubKeyring(t, nil, nil)
		file := NewFileKeyStore(afero.NewMemMapFs(), "/cfg")
		key, err := LoadOrCreate(NewKeyring(), file)
		if err != nil {
			t.Fatal(err)
		}
		if stored["waqt/state"] != hex.EncodeToString(key) {
			t.Fatal("key should live in the keyring")
		}
		if _, err := file.GetKey(); err == nil {
			t.Fatal("file key should not be written")
		}
		again, err := LoadOrCreate(NewKeyring(), file)
		if err != nil || !bytes.Equal(again, key) {
			t.Fatalf("second load returned a different key: %v", err)
		}
	})

	t.Run("keyring unavailable", func(t *testing.T) {
		stubKeyring(t, errors.New("dbus: no session bus"), errors.New("dbus: no session bus"))
		file := NewFileKeyStore(afero.NewMemMapFs(), "/cfg")
		key, err := LoadOrCreate(NewKeyring(), file)
		if err != nil {
			t.Fatal(err)
		}
		got, err := file.GetKey()
		if err != nil || !bytes.Equal(got, key) {
			t.Fatalf("expected fallback key file: %v", err)
		}
	})

	t.Run("existing file key wins over empty keyring", func(t *testing.T) {
		stubKeyring(t, nil, nil)
		file := NewFileKeyStore(afero.NewMemMapFs(), "/cfg")
		existing, err := file.SetKey()
		if err != nil {
			t.Fatal(err)
		}
		key, err := LoadOrCreate(NewKeyring(), file)
		if err != nil || !bytes.Equal(key, existing) {
			t.Fatalf("expected the file key, err=%v", err)
		}
	})

	t.Run("nothing writable", func(t *testing.T) {
		stubKeyring(t, errors.New("locked"), errors.New("locked"))
		file := NewFileKeyStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/cfg")
		if _, err := LoadOrCreate(NewKeyring(), file); err == nil {
			t.Fatal("expected error")
		}
	})
}
