package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/source"
	"fintrack/internal/source/memory"
	"fintrack/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:         t,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedFile:     appConfig.SeedFile,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentStorage)}
}

// Create builds the store for cfg. When AMQP is configured the store
// publishes change events; a broker that cannot be reached is logged and
// the store runs without them.
func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	var (
		store   source.Store
		cleanup []func() error
	)
	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		cleanup = append(cleanup, repo.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case Memory:
		s, err := f.memoryStore(cfg)
		if err != nil {
			return nil, err
		}
		store = s
		f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", cfg.SeedFile)
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			store = source.NewNotifying(store, client, f.logger)
			// Close the publisher before the store it reports on.
			cleanup = append([]func() error{client.Close}, cleanup...)
		}
	}

	return &Result{
		Store: store,
		Cleanup: func() error {
			var errs []error
			for _, c := range cleanup {
				errs = append(errs, c())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) memoryStore(cfg Config) (*memory.Store, error) {
	if cfg.SeedFile == "" {
		return memory.New(), nil
	}
	s, err := memory.NewFromFile(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	return s, nil
}
