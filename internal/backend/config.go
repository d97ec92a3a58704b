package backend

import (
	"fmt"

	"dompet/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.Backend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.Backend)
	}

	return Config{
		Type: backendType,

		APIURL:      appConfig.APIURL,
		InitData:    appConfig.InitData,
		HTTPTimeout: appConfig.HTTPTimeout,

		Prefs:        PrefsType(appConfig.PrefsBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		AMQPAttempts: 3,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.Prefs.IsValid() {
		return fmt.Errorf("invalid preferences type: %s", c.Prefs)
	}

	switch c.Type {
	case RemoteBackend:
		if c.APIURL == "" {
			return fmt.Errorf("API URL is required for remote backend")
		}
		if c.InitData == "" {
			return fmt.Errorf("init data is required for remote backend")
		}
	case MemoryBackend:
		// seeded demo data, nothing to check
	}

	if c.Prefs == SQLitePrefs && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite preferences")
	}
	// AMQP is optional, so we don't validate it
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{RemoteBackend.String(), MemoryBackend.String()}
}
