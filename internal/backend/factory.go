package backend

import (
	"context"
	"fmt"
	"time"

	"homeledger/internal/cache"
	"homeledger/internal/core"
	"homeledger/internal/log"
	"homeledger/internal/storage"
	"homeledger/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		store, err = storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
	case MemoryBackend:
		store = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	props, err := NewProperties(store, config.PropertyCacheTTL, f.logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &BackendResult{
		Store:      store,
		Properties: props,
		Cleanup: func() error {
			props.Close()
			return store.Close()
		},
	}, nil
}

// Properties resolves properties through a cache and keeps that cache in
// step with property administration.
type Properties struct {
	*cache.PropertyCache
	store Store
}

func NewProperties(store Store, ttl time.Duration, logger *log.Logger) (*Properties, error) {
	c, err := cache.NewPropertyCache(store, ttl, logger)
	if err != nil {
		return nil, err
	}
	return &Properties{PropertyCache: c, store: store}, nil
}

// Create stores a new property.
func (p *Properties) Create(ctx context.Context, prop core.Property) (core.Property, error) {
	created, err := p.store.CreateProperty(ctx, prop)
	if err != nil {
		return core.Property{}, err
	}
	p.Invalidate(created)
	return created, nil
}

// Delete removes prop with its ledger records and evicts it from the cache.
func (p *Properties) Delete(ctx context.Context, prop core.Property) error {
	if err := p.store.DeleteProperty(ctx, prop.ID); err != nil {
		return err
	}
	p.Invalidate(prop)
	return nil
}
