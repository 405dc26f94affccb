package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetboard/internal/amqp"
	"budgetboard/internal/store"
	"budgetboard/internal/store/memory"
	"budgetboard/internal/store/sqlite"
	"budgetboard/internal/worker"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	st, err := memory.NewFromFile(ctx, config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{
		Store:   st,
		Base:    st,
		Cleanup: func() error { return nil },
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	var opts []sqlite.Option
	if config.CacheSize > 0 && config.CacheTTL > 0 {
		opts = append(opts, sqlite.WithCache(config.CacheSize, config.CacheTTL))
	}
	st, err := sqlite.Open(config.SQLiteDBPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	if config.SeedFile != "" {
		seed, err := store.LoadSeed(config.SeedFile)
		if err == nil {
			err = seed.Apply(ctx, st, nil)
		}
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to seed SQLite store: %w", err)
		}
		f.logger.Info("Seeded SQLite store", "seed_file", config.SeedFile, "records", len(seed.Records))
	}

	result := &BackendResult{
		Store: st,
		Base:  st,
		Runners: []Runner{{
			Name: "sqlite-watch",
			Run:  func(ctx context.Context) error { return st.Watch(ctx, config.WatchInterval) },
		}},
	}

	// Change notifications are optional; without them the watcher still
	// notices external commits.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change notifications", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange)
			refresher := worker.NewRefreshWorker(st, worker.DefaultConfig(), f.logger)
			result.Notifier = amqpClient
			result.Store = NewNotifyingStore(st, amqpClient, f.logger)
			result.Runners = append(result.Runners,
				Runner{Name: "refresh-worker", Run: refresher.Run},
				Runner{
					Name: "amqp-consumer",
					Run: func(ctx context.Context) error {
						return amqpClient.ConsumeRecordsChanged(ctx, refresher.HandleRecordsChanged)
					},
				})
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, st.Close())
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"watch_interval", config.WatchInterval.String(),
		"amqp_enabled", amqpClient != nil)

	return result, nil
}
