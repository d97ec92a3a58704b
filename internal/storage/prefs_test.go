package storage

import (
	"context"
	"path/filepath"
	"testing"
)

type prefStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

func TestPrefStores(t *testing.T) {
	stores := map[string]func(t *testing.T) prefStore{
		"sqlite": func(t *testing.T) prefStore {
			p, err := NewSQLitePrefs(filepath.Join(t.TempDir(), "nested", "prefs.db"))
			if err != nil {
				t.Fatalf("NewSQLitePrefs: %v", err)
			}
			return p
		},
		"memory": func(t *testing.T) prefStore { return NewMemoryPrefs() },
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := open(t)
			defer p.Close()

			if _, ok, err := p.Get(ctx, "privacy_mode"); err != nil || ok {
				t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
			}
			if err := p.Set(ctx, "privacy_mode", "true"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := p.Set(ctx, "privacy_mode", "false"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			v, ok, err := p.Get(ctx, "privacy_mode")
			if err != nil || !ok || v != "false" {
				t.Fatalf("Get = %q ok=%v err=%v", v, ok, err)
			}
		})
	}
}

func TestSQLitePrefsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")
	p, err := NewSQLitePrefs(path)
	if err != nil {
		t.Fatalf("NewSQLitePrefs: %v", err)
	}
	if err := p.Set(ctx, "privacy_mode", "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	p.Close()

	p, err = NewSQLitePrefs(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer p.Close()
	if v, ok, _ := p.Get(ctx, "privacy_mode"); !ok || v != "true" {
		t.Fatalf("value lost across reopen: %q ok=%v", v, ok)
	}
}
