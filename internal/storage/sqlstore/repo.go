package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"gridetl/internal/storage"
)

// Repo implements storage.Repository over database/sql.
type Repo struct {
	db      *sql.DB
	dialect Dialect
	types   *storage.Registry
}

// New wraps an open handle. The handle is owned by Repo from here on.
func New(db *sql.DB, d Dialect) *Repo {
	return &Repo{db: db, dialect: d, types: storage.NewRegistry()}
}

// Open opens driverName with dsn, pings it, and wraps it.
func Open(ctx context.Context, driverName, dsn string, d Dialect, tune func(*sql.DB)) (*Repo, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name(), err)
	}
	if tune != nil {
		tune(db)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name(), err)
	}
	return New(db, d), nil
}

func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// DB exposes the underlying handle for backend-specific setup.
func (r *Repo) DB() *sql.DB { return r.db }

// EnsureTables runs the dialect's DDL for each table and remembers the
// specs for decoding.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		stmts, err := r.dialect.CreateTable(t)
		if err != nil {
			return err
		}
		for _, s := range stmts {
			if _, err := r.db.ExecContext(ctx, s); err != nil {
				return fmt.Errorf("%s: create %s: %w", r.dialect.Name(), t.Name, err)
			}
		}
		r.types.Add(t)
	}
	return nil
}

func (r *Repo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, dialect: r.dialect}, nil
}

func (r *Repo) Select(ctx context.Context, q storage.Query) (*storage.Result, error) {
	query, args, err := BuildSelect(r.dialect, q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: select %s: %w", r.dialect.Name(), q.Table, err)
	}
	defer rows.Close()

	return ScanAll(rows, q, r.types)
}

// ScanAll reads every row and decodes values by the registered column types.
func ScanAll(rows *sql.Rows, q storage.Query, types *storage.Registry) (*storage.Result, error) {
	res := &storage.Result{Columns: q.Columns}
	colTypes := make([]storage.ColumnType, len(q.Columns))
	for i, c := range q.Columns {
		colTypes[i] = types.Type(q.Table, c)
	}

	for rows.Next() {
		raw := make([]any, len(q.Columns))
		ptrs := make([]any, len(q.Columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out := make([]any, len(raw))
		for i, v := range raw {
			dv, err := storage.Decode(colTypes[i], v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", q.Table, q.Columns[i], err)
			}
			out[i] = dv
		}
		res.Rows = append(res.Rows, out)
	}
	return res, rows.Err()
}

// Tx is a database/sql transaction.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
	done    bool
}

func (t *Tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflict []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var total int64
	for _, chunk := range Chunks(t.dialect, columns, rows) {
		query, args := t.dialect.Insert(table, columns, chunk, conflict)
		if query == "" {
			continue
		}
		res, err := t.tx.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("%s: insert %s: %w", t.dialect.Name(), table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *Tx) InsertReturningID(ctx context.Context, table, idColumn string, columns []string, values []any) (int64, error) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = t.dialect.Encode(v)
	}
	var id int64
	q := t.dialect.InsertReturning(table, idColumn, columns)
	if err := t.tx.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: insert %s: %w", t.dialect.Name(), table, err)
	}
	return id, nil
}

func (t *Tx) Update(ctx context.Context, table, idColumn string, id int64, columns []string, values []any) error {
	q, args, err := BuildUpdate(t.dialect, table, idColumn, id, columns, values)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: update %s: %w", t.dialect.Name(), table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s %s=%d", storage.ErrNotFound, table, idColumn, id)
	}
	return nil
}

func (t *Tx) Commit(context.Context) error {
	t.done = true
	return t.tx.Commit()
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
