// Package backend builds the configured store together with the background
// loops that keep its live queries current.
package backend

import (
	"context"
	"time"

	"budgetboard/internal/amqp"
	"budgetboard/internal/store"
)

// CleanupFunc releases backend resources
type CleanupFunc func() error

// Runner is a loop that runs until ctx is done.
type Runner struct {
	Name string
	Run  func(ctx context.Context) error
}

// Notifier announces record writes to other processes.
type Notifier interface {
	PublishRecordsChanged(ctx context.Context, msg *amqp.RecordsChangedMessage) error
}

// BackendResult is a ready backend.
type BackendResult struct {
	Store store.ReadWriter
	// Base is Store without write announcements, for bulk loads that
	// announce once at the end.
	Base store.ReadWriter
	// Notifier is nil when change notifications are off.
	Notifier Notifier
	Runners  []Runner
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// Seed data applied at startup, optional for both backends
	SeedFile string

	// SQLite specific
	SQLiteDBPath  string
	WatchInterval time.Duration
	CacheSize     int
	CacheTTL      time.Duration

	// Change notifications, SQLite only
	AMQPURL      string
	AMQPExchange string
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
