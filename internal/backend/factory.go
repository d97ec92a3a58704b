package backend

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/gateway"
	"dompet/internal/gateway/memory"
	"dompet/internal/gateway/remote"
	"dompet/internal/log"
	"dompet/internal/services"
	"dompet/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend. The notifier is optional:
// an unreachable broker is logged and upgrade requests are disabled.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	gw, err := f.createGateway(ctx, config)
	if err != nil {
		return nil, err
	}

	prefs, err := f.createPrefs(config)
	if err != nil {
		return nil, err
	}

	var notifier services.UpgradeNotifier
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue, config.AMQPAttempts, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, upgrade requests disabled", log.FieldError, err)
			amqpClient = nil
		} else {
			notifier = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"prefs", string(config.Prefs),
		"amqp_enabled", notifier != nil)

	return &BackendResult{
		Gateway:  gw,
		Prefs:    prefs,
		Notifier: notifier,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				errs = append(errs, amqpClient.Close())
			}
			errs = append(errs, prefs.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createGateway(ctx context.Context, config Config) (gateway.Gateway, error) {
	switch config.Type {
	case RemoteBackend:
		cli, err := remote.New(remote.Config{
			BaseURL:  config.APIURL,
			InitData: config.InitData,
			Timeout:  config.HTTPTimeout,
			Logger:   f.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ledger client: %w", err)
		}
		if err := cli.Connect(ctx); err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		f.logger.Info("Initialized remote backend", "api_url", config.APIURL)
		return cli, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend with demo data")
		return memory.NewDemo(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createPrefs(config Config) (PrefStore, error) {
	if config.Prefs == MemoryPrefs {
		return storage.NewMemoryPrefs(), nil
	}
	prefs, err := storage.NewSQLitePrefs(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite preferences: %w", err)
	}
	f.logger.Info("Initialized SQLite preferences", "db_path", config.SQLiteDBPath)
	return prefs, nil
}
