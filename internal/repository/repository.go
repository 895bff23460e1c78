// Package repository provides the record store for users.
//
// Three backends share one contract: MySQL (database/sql), PostgreSQL
// (pgxpool) and an in-process memory store. Every operation is a single
// atomic statement against the backend.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apiproject/userapi/internal/model"
)

// Common errors for user store operations.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrValueTooLong     = errors.New("value too long for column")
)

// Driver names a store backend.
type Driver string

const (
	// DriverMySQL stores users in MySQL.
	DriverMySQL Driver = "mysql"
	// DriverPostgres stores users in PostgreSQL.
	DriverPostgres Driver = "postgres"
	// DriverMemory keeps users in process memory.
	DriverMemory Driver = "memory"
)

// DefaultOpTimeout bounds a single store statement when Options leaves it unset.
const DefaultOpTimeout = 5 * time.Second

// Store is the record store contract.
type Store interface {
	Create(ctx context.Context, name, email string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Options configures Open.
type Options struct {
	Driver Driver
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// OpTimeout bounds each statement, including mutations that outlive
	// their caller's context.
	OpTimeout time.Duration
}

// Open connects to the configured backend and verifies connectivity.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}

	switch opts.Driver {
	case DriverMySQL:
		return OpenMySQL(ctx, opts)
	case DriverPostgres:
		return OpenPostgres(ctx, opts)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
}

// unavailable wraps a transport failure so callers can match ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrStoreUnavailable, err)
}

// readContext bounds a read by the store timeout; it still honours caller cancellation.
func readContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

// mutationContext refuses to start when the caller is already gone. Once
// started, the statement runs detached from caller cancellation so a client
// disconnect cannot interrupt a write halfway; the store timeout still applies.
func mutationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	return detached, cancel, nil
}

// storeTime normalizes timestamps to what every backend can round-trip.
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
