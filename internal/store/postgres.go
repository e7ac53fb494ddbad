package store

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dialectPostgres = "postgres"

// Postgres keeps scalar keys in "kv" and list items in "kv_list".
// Tables come from db.ApplyMigrations.
type Postgres struct {
	pool *pgxpool.Pool
	opts options
	sql  goqu.DialectWrapper
}

var _ Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool, opts ...Option) *Postgres {
	return &Postgres{
		pool: pool,
		opts: buildOptions(opts),
		sql:  goqu.Dialect(dialectPostgres),
	}
}

func (s *Postgres) notExpired() exp.Expression {
	return goqu.Or(
		goqu.C(colExpiresAt).IsNull(),
		goqu.C(colExpiresAt).Gt(s.opts.now().UTC()),
	)
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := s.sql.From(tableKV).
		Select(colValue).
		Where(goqu.C(colKey).Eq(key), s.notExpired()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, false, err
	}
	return s.queryValue(ctx, "get", key, query, args)
}

func (s *Postgres) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires any
	if e := expiresAt(s.opts.now(), ttl); e != nil {
		expires = *e
	}
	query, args, err := s.sql.Insert(tableKV).
		Rows(goqu.Record{colKey: key, colValue: value, colExpiresAt: expires}).
		OnConflict(goqu.DoUpdate(colKey, goqu.Record{
			colValue:     goqu.L("EXCLUDED." + colValue),
			colExpiresAt: goqu.L("EXCLUDED." + colExpiresAt),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, "set", key, query, args)
	return err
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	query, args, err := s.sql.Delete(tableKV).
		Where(goqu.C(colKey).Eq(key)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, "delete", key, query, args)
	return err
}

func (s *Postgres) Take(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := s.sql.Delete(tableKV).
		Where(goqu.C(colKey).Eq(key), s.notExpired()).
		Returning(colValue).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, false, err
	}
	return s.queryValue(ctx, "take", key, query, args)
}

func (s *Postgres) Append(ctx context.Context, key string, value []byte) error {
	query, args, err := s.sql.Insert(tableList).
		Rows(goqu.Record{colKey: key, colValue: value, colCreatedAt: s.opts.now().UTC()}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, "append", key, query, args)
	return err
}

func (s *Postgres) Range(ctx context.Context, key string) ([][]byte, error) {
	query, args, err := s.sql.From(tableList).
		Select(colValue).
		Where(goqu.C(colKey).Eq(key)).
		Order(goqu.C(colID).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.fail("range", key, err)
	}
	defer rows.Close()

	out := make([][]byte, 0, 16)
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, s.fail("range", key, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("range", key, err)
	}
	s.logExecuted("range", key, start)
	return out, nil
}

func (s *Postgres) Purge(ctx context.Context) (int64, error) {
	query, args, err := s.sql.Delete(tableKV).
		Where(goqu.C(colExpiresAt).Lte(s.opts.now().UTC())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, "purge", "", query, args)
}

func (s *Postgres) queryValue(ctx context.Context, op, key, query string, args []any) ([]byte, bool, error) {
	start := time.Now()
	var v []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logExecuted(op, key, start)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail(op, key, err)
	}
	s.logExecuted(op, key, start)
	return v, true, nil
}

func (s *Postgres) exec(ctx context.Context, op, key, query string, args []any) (int64, error) {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, s.fail(op, key, err)
	}
	s.logExecuted(op, key, start)
	return tag.RowsAffected(), nil
}

func (s *Postgres) fail(op, key string, err error) error {
	s.opts.logger.Error(logMsgQueryFailed, logAttrOp, op, logAttrKey, key, logAttrError, err.Error())
	return unavailable(err)
}

func (s *Postgres) logExecuted(op, key string, start time.Time) {
	s.opts.logger.Debug(logMsgExecuted, logAttrOp, op, logAttrKey, key, logAttrDurationMS, time.Since(start).Milliseconds())
}
