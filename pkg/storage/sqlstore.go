package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// SQLStore implements Storage on database/sql. The dialect decides the
// placeholder format and the schema.
type SQLStore struct {
	db      *sql.DB
	sb      sq.StatementBuilderType
	dialect dialect
}

type dialect struct {
	name        string
	placeholder sq.PlaceholderFormat
	migrations  [][]string
}

var _ Storage = (*SQLStore)(nil)

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		dialect: d,
	}
}

// Dialect returns the SQL dialect name ("sqlite" or "postgres").
func (s *SQLStore) Dialect() string { return s.dialect.name }

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

type sqlizer interface {
	ToSql() (string, []any, error)
}

func (s *SQLStore) exec(ctx context.Context, q sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *SQLStore) query(ctx context.Context, q sqlizer) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *SQLStore) queryRow(ctx context.Context, q sqlizer) (*sql.Row, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryRowContext(ctx, query, args...), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func limitOr(limit, fallback int) uint64 {
	if limit <= 0 {
		return uint64(fallback)
	}
	return uint64(limit)
}
