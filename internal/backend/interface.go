package backend

import (
	"context"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
)

// Store is what every data backend provides: the ledger store, property
// lookups for authorization, and property administration for seeding.
type Store interface {
	ledger.Store
	ledger.PropertyResolver
	CreateProperty(ctx context.Context, p core.Property) (core.Property, error)
	DeleteProperty(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened backend and its cleanup function.
// Properties resolves through the property cache and should be handed to
// the services instead of Store.
type BackendResult struct {
	Store      Store
	Properties *Properties
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
