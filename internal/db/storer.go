package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX abstracts pgxpool so the store can run against a pool or a tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Row is one flat result row with prefixed column names
// (jobs_*, jobstates_*, files_*, components_*, ...).
type Row map[string]any

// PostgresStore reads CI job and component pages from PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool DBTX) *PostgresStore {
	return &PostgresStore{
		db: pool,
	}
}

// CreatePostgresPool creates and pings a PostgreSQL connection pool.
func CreatePostgresPool(parentCtx context.Context, dburl string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(parentCtx, time.Second*3)
	defer cancel()

	pool, err := pgxpool.New(ctx, dburl)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// collectRows materializes pgx rows into prefixed-column maps.
func collectRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var res []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		res = append(res, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
