package backend

import (
	"context"

	"eventbudget/internal/amqp"
	"eventbudget/internal/services"
	"eventbudget/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the optional broker client and a
// cleanup function releasing both.
type BackendResult struct {
	Store   storage.Store
	Broker  *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the broker as a services.Publisher, or nil when no
// broker is connected.
func (r *BackendResult) Publisher() services.Publisher {
	if r.Broker == nil {
		return nil
	}
	return r.Broker
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Broker; an empty URL disables it
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
