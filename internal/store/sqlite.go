package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLite is the single-file backend used for local runs and tests.
// Expiry is stored as unix nanoseconds. The schema comes from db.OpenSQLite.
type SQLite struct {
	db   *sqlx.DB
	opts options
}

var _ Store = (*SQLite)(nil)

func NewSQLite(db *sqlx.DB, opts ...Option) *SQLite {
	return &SQLite{db: db, opts: buildOptions(opts)}
}

func (s *SQLite) nowNano() int64 {
	return s.opts.now().UnixNano()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.getValue(ctx, "get", key, `
		SELECT value FROM kv
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, key, s.nowNano())
}

func (s *SQLite) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires sql.NullInt64
	if e := expiresAt(s.opts.now(), ttl); e != nil {
		expires = sql.NullInt64{Int64: e.UnixNano(), Valid: true}
	}
	_, err := s.exec(ctx, "set", key, `
		INSERT INTO kv(key, value, expires_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expires)
	return err
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.exec(ctx, "delete", key, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *SQLite) Take(ctx context.Context, key string) ([]byte, bool, error) {
	return s.getValue(ctx, "take", key, `
		DELETE FROM kv
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
		RETURNING value
	`, key, s.nowNano())
}

func (s *SQLite) Append(ctx context.Context, key string, value []byte) error {
	_, err := s.exec(ctx, "append", key, `
		INSERT INTO kv_list(key, value, created_at) VALUES(?, ?, ?)
	`, key, value, s.nowNano())
	return err
}

func (s *SQLite) Range(ctx context.Context, key string) ([][]byte, error) {
	start := time.Now()
	out := make([][]byte, 0, 16)
	if err := s.db.SelectContext(ctx, &out, `SELECT value FROM kv_list WHERE key = ? ORDER BY id`, key); err != nil {
		return nil, s.fail("range", key, err)
	}
	s.logExecuted("range", key, start)
	return out, nil
}

func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	return s.exec(ctx, "purge", "", `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.nowNano())
}

func (s *SQLite) getValue(ctx context.Context, op, key, query string, args ...any) ([]byte, bool, error) {
	start := time.Now()
	var v []byte
	err := s.db.GetContext(ctx, &v, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		s.logExecuted(op, key, start)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail(op, key, err)
	}
	s.logExecuted(op, key, start)
	return v, true, nil
}

func (s *SQLite) exec(ctx context.Context, op, key, query string, args ...any) (int64, error) {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.fail(op, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail(op, key, err)
	}
	s.logExecuted(op, key, start)
	return n, nil
}

func (s *SQLite) fail(op, key string, err error) error {
	s.opts.logger.Error(logMsgQueryFailed, logAttrOp, op, logAttrKey, key, logAttrError, err.Error())
	return unavailable(err)
}

func (s *SQLite) logExecuted(op, key string, start time.Time) {
	s.opts.logger.Debug(logMsgExecuted, logAttrOp, op, logAttrKey, key, logAttrDurationMS, time.Since(start).Milliseconds())
}
