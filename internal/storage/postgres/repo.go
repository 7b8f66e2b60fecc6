// Package postgres is the PostgreSQL backend built on pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gridetl/internal/storage"
	"gridetl/internal/storage/sqlstore"
)

const (
	// Postgres accepts up to 65535 bind parameters per statement.
	maxParams = 60000
	maxRows   = 500
)

func init() {
	storage.Register("postgres", New)
}

// Repo implements storage.Repository on a pgx connection pool.
type Repo struct {
	pool  *pgxpool.Pool
	types *storage.Registry
}

// New creates a pool for cfg.DSN and checks connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repo{pool: pool, types: storage.NewRegistry()}, nil
}

func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureTables creates missing tables and indexes. It is idempotent.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	d := Dialect{}
	for _, t := range tables {
		stmts, err := d.CreateTable(t)
		if err != nil {
			return err
		}
		for _, s := range stmts {
			if _, err := r.pool.Exec(ctx, s); err != nil {
				return fmt.Errorf("create table %s: %w", t.Name, err)
			}
		}
		r.types.Add(t)
	}
	return nil
}

func (r *Repo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (r *Repo) Select(ctx context.Context, q storage.Query) (*storage.Result, error) {
	query, args, err := sqlstore.BuildSelect(Dialect{}, q)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: select %s: %w", q.Table, err)
	}
	defer rows.Close()

	res := &storage.Result{Columns: q.Columns}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(vals))
		for i, v := range vals {
			dv, err := storage.Decode(r.types.Type(q.Table, q.Columns[i]), v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", q.Table, q.Columns[i], err)
			}
			out[i] = dv
		}
		res.Rows = append(res.Rows, out)
	}
	return res, rows.Err()
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflict []string) (int64, error) {
	var total int64
	d := Dialect{}
	for _, chunk := range sqlstore.Chunks(d, columns, rows) {
		sql, args := buildInsertSQL(table, columns, chunk, conflict)
		cmd, err := t.tx.Exec(ctx, sql, args...)
		if err != nil {
			return total, fmt.Errorf("postgres: insert %s: %w", table, err)
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

func (t *Tx) InsertReturningID(ctx context.Context, table, idColumn string, columns []string, values []any) (int64, error) {
	var id int64
	q := sqlstore.BuildInsertReturning(Dialect{}, table, idColumn, columns)
	if err := t.tx.QueryRow(ctx, q, values...).Scan(&id); err != nil {
		return 0, fmt.Errorf("postgres: insert %s: %w", table, err)
	}
	return id, nil
}

func (t *Tx) Update(ctx context.Context, table, idColumn string, id int64, columns []string, values []any) error {
	q, args, err := sqlstore.BuildUpdate(Dialect{}, table, idColumn, id, columns, values)
	if err != nil {
		return err
	}
	cmd, err := t.tx.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", table, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s=%d", storage.ErrNotFound, table, idColumn, id)
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Rollback after Commit returns pgx.ErrTxClosed, which is swallowed.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return err
	}
	return nil
}

// buildInsertSQL constructs a single multi-row INSERT. With conflict columns
// it appends ON CONFLICT (...) DO NOTHING, which also collapses duplicate
// keys within the statement.
func buildInsertSQL(table string, columns []string, rows [][]any, conflict []string) (string, []any) {
	d := Dialect{}
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Ident(table))
	b.WriteString(" (")
	b.WriteString(sqlstore.IdentList(d, columns))
	b.WriteString(") VALUES ")
	args := sqlstore.ValuesList(d, &b, columns, rows)

	if len(conflict) > 0 {
		b.WriteString(" ON CONFLICT (")
		b.WriteString(sqlstore.IdentList(d, conflict))
		b.WriteString(") DO NOTHING")
	}
	return b.String(), args
}

// Dialect implements sqlstore.Dialect for PostgreSQL.
type Dialect struct{}

var _ sqlstore.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

// Ident quotes a (possibly schema-qualified) identifier.
func (Dialect) Ident(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgx.Identifier{strings.TrimSpace(p)}.Sanitize()
	}
	return strings.Join(parts, ".")
}

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (d Dialect) ColumnDef(c storage.ColumnSpec) string {
	var typ string
	switch c.Type {
	case storage.TypeID:
		return d.Ident(c.Name) + " BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	case storage.TypeInt:
		typ = "BIGINT"
	case storage.TypeFloat:
		typ = "DOUBLE PRECISION"
	case storage.TypeBool:
		typ = "BOOLEAN"
	case storage.TypeTime:
		typ = "TIMESTAMPTZ"
	default:
		if c.Size > 0 {
			typ = fmt.Sprintf("VARCHAR(%d)", c.Size)
		} else {
			typ = "TEXT"
		}
	}
	def := d.Ident(c.Name) + " " + typ
	if !c.Nullable {
		def += " NOT NULL"
	}
	return def
}

func (d Dialect) CreateTable(t storage.TableSpec) ([]string, error) {
	parts, err := sqlstore.ColumnDefs(d, t)
	if err != nil {
		return nil, err
	}
	var stmts []string
	if schema, _, ok := strings.Cut(t.Name, "."); ok {
		stmts = append(stmts, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", d.Ident(schema)))
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", d.Ident(t.Name), strings.Join(parts, ", ")))
	for _, ix := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
			d.Ident(storage.IndexName("ix", t.Name, ix)), d.Ident(t.Name), sqlstore.IdentList(d, ix)))
	}
	return stmts, nil
}

func (Dialect) Insert(table string, columns []string, rows [][]any, conflict []string) (string, []any) {
	return buildInsertSQL(table, columns, rows, conflict)
}

func (d Dialect) InsertReturning(table, idColumn string, columns []string) string {
	return sqlstore.BuildInsertReturning(d, table, idColumn, columns)
}

func (Dialect) RowsPerStatement(ncols int) int {
	if ncols <= 0 {
		return maxRows
	}
	return max(1, min(maxRows, maxParams/ncols))
}

func (Dialect) RandomOrder() string { return "random()" }

func (Dialect) TopLimit() bool { return false }

func (Dialect) Encode(v any) any { return v }
