// Package backend builds the storage and event publishing stack selected by
// configuration.
package backend

import (
	"context"

	"budget/internal/services"
	"budget/internal/storage"
)

type CleanupFunc func() error

// Result holds the constructed store and optional publisher. Publisher is
// nil when event publishing is disabled or unavailable.
type Result struct {
	Store     storage.KV
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	// sqlite
	SQLiteDBPath string

	// memory: directory of <key>.json seed files
	DataDirectory string

	// Event publishing, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
