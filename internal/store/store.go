// Package store is the key/value and list storage the ledger runs on.
//
// Scalar keys may carry an expiry. An expired key is invisible to Get and Take
// even before Purge removes the row. List keys are append-only and are read back
// in insertion order.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps every failure of the underlying database.
var ErrUnavailable = errors.New("ledger store unavailable")

// Store is implemented by Postgres and SQLite.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// SetWithExpiry overwrites key. A ttl <= 0 means the key never expires.
	SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take returns the value and deletes the key in one statement. Of several
	// concurrent callers at most one gets ok == true.
	Take(ctx context.Context, key string) ([]byte, bool, error)

	Append(ctx context.Context, key string, value []byte) error
	Range(ctx context.Context, key string) ([][]byte, error)

	// Purge deletes expired scalar keys and reports how many were removed.
	Purge(ctx context.Context) (int64, error)
}

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type options struct {
	logger Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger. Queries are logged at debug level, failures at error level.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: nopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func expiresAt(now time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := now.Add(ttl).UTC()
	return &t
}

func unavailable(err error) error {
	return errors.Join(ErrUnavailable, err)
}

const (
	tableKV   = "kv"
	tableList = "kv_list"

	colKey       = "key"
	colValue     = "value"
	colExpiresAt = "expires_at"
	colID        = "id"
	colCreatedAt = "created_at"

	logMsgQueryFailed = "store query failed"
	logMsgExecuted    = "store executed"
	logAttrError      = "error"
	logAttrOp         = "op"
	logAttrKey        = "key"
	logAttrDurationMS = "duration_ms"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
