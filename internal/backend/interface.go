package backend

import (
	"context"
	"time"

	"dompet/internal/gateway"
	"dompet/internal/privacy"
	"dompet/internal/services"
)

// PrefStore is a preference store that owns a resource.
type PrefStore interface {
	privacy.PrefStore
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired adapters and a cleanup function that
// releases all of them.
type BackendResult struct {
	Gateway  gateway.Gateway
	Prefs    PrefStore
	Notifier services.UpgradeNotifier
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Remote ledger service
	APIURL      string
	InitData    string
	HTTPTimeout time.Duration

	// Preferences
	Prefs        PrefsType
	SQLiteDBPath string

	// Optional upgrade request relay
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	AMQPAttempts int
}

// BackendType represents the ledger gateway implementation.
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// PrefsType selects where client preferences are kept.
type PrefsType string

const (
	SQLitePrefs PrefsType = "sqlite"
	MemoryPrefs PrefsType = "memory"
)

func (pt PrefsType) IsValid() bool {
	return pt == SQLitePrefs || pt == MemoryPrefs
}
