package backend

import (
	"context"
	"testing"
	"time"

	"dompet/internal/config"
	"dompet/internal/render"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		Backend:      "remote",
		APIURL:       "https://dompet.example.com",
		InitData:     "signed",
		PrefsBackend: "memory",
		AMQPURL:      "amqp://localhost",
	}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if bc.Type != RemoteBackend || bc.Prefs != MemoryPrefs || bc.AMQPAttempts != 3 {
		t.Fatalf("config = %+v", bc)
	}

	if _, err := FromAppConfig(&config.Config{Backend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, Prefs: MemoryPrefs}, false},
		{"remote without url", Config{Type: RemoteBackend, Prefs: MemoryPrefs, InitData: "x"}, true},
		{"remote without init data", Config{Type: RemoteBackend, Prefs: MemoryPrefs, APIURL: "https://x"}, true},
		{"sqlite without path", Config{Type: MemoryBackend, Prefs: SQLitePrefs}, true},
		{"unknown prefs", Config{Type: MemoryBackend, Prefs: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemoryBackendApp(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, Prefs: MemoryPrefs})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Notifier != nil {
		t.Fatal("notifier should be nil without AMQP")
	}

	app, err := NewApp(ctx, res, AppOptions{RevealDuration: time.Second, CacheSize: 8, CacheTTL: time.Minute}, nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	fr, err := app.Session.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !fr.Views.Dashboard.Loaded || len(fr.Views.History.Rows) == 0 {
		t.Fatalf("demo data not loaded: %+v", fr.Views.Dashboard)
	}
	out, err := app.Session.Markdown(render.Dashboard)
	if err != nil || out == "" {
		t.Fatalf("Markdown: %q %v", out, err)
	}
}

func TestSQLitePrefsBackend(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/prefs.db"
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, Prefs: SQLitePrefs, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	app, err := NewApp(ctx, res, AppOptions{}, nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if _, err := app.Session.TogglePrivacy(ctx); err != nil {
		t.Fatalf("TogglePrivacy: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	res, err = NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, Prefs: SQLitePrefs, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	app, err = NewApp(ctx, res, AppOptions{}, nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()
	if !app.Session.Privacy() {
		t.Fatal("privacy mode should survive a restart")
	}
}
