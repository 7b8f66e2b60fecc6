// Package storage is the backend-agnostic persistence layer.
//
// Backends (postgres, sqlite, mssql) register a factory under their kind from
// an init function; callers pick one at runtime with New. Every backend
// implements the same small contract: idempotent DDL, transactional
// insert-or-ignore on a natural key, single-row insert returning the
// generated id, update by id, and filtered selects.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnsupportedKind is returned by New for an unregistered backend kind.
var ErrUnsupportedKind = errors.New("storage: unsupported kind")

// ErrNotFound is returned by GetByID when no row matches.
var ErrNotFound = errors.New("storage: not found")

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Repository is a connected backend.
type Repository interface {
	// Close releases backend resources. Call once.
	Close()

	// EnsureTables creates missing tables and indexes. Safe on every start.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// Begin opens a transaction.
	Begin(ctx context.Context) (Tx, error)

	// Select runs a filtered read outside any transaction.
	Select(ctx context.Context, q Query) (*Result, error)
}

// Tx is one database transaction. Either Commit or Rollback must be called;
// Rollback after Commit is a no-op.
type Tx interface {
	// InsertRows bulk-inserts rows. When conflictColumns is non-empty, rows
	// whose key already exists (in the table or earlier in rows) are skipped
	// silently. Returns the number of rows written.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error)

	// InsertReturningID inserts one row and returns the generated id column.
	InsertReturningID(ctx context.Context, table, idColumn string, columns []string, values []any) (int64, error)

	// Update sets columns on the row with idColumn = id.
	Update(ctx context.Context, table, idColumn string, id int64, columns []string, values []any) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Query is a filtered select over a single table.
type Query struct {
	Table   string
	Columns []string

	// Eq adds column = value conditions, ANDed.
	Eq []Cond

	// In restricts InColumn to the listed values; empty In means no filter.
	InColumn string
	In       []any

	// TimeColumn with From/To adds an inclusive time range. Nil bounds are open.
	TimeColumn string
	From, To   *time.Time

	// NotNull lists columns that must be non-null.
	NotNull []string

	// OrderBy sorts by a column; Random overrides it with a random order.
	OrderBy string
	Desc    bool
	Random  bool

	// Limit caps the number of rows; 0 means unlimited.
	Limit int
}

// Cond is a single equality condition.
type Cond struct {
	Column string
	Value  any
}

// Result holds rows in Columns order. Values are decoded to nil, bool, int64,
// float64, string or time.Time (UTC).
type Result struct {
	Columns []string
	Rows    [][]any
}

// Index returns the position of column c in the result, or -1.
func (r *Result) Index(c string) int {
	for i, n := range r.Columns {
		if n == c {
			return i
		}
	}
	return -1
}

// Factory constructs a backend.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a backend under kind. It panics on an empty kind, a nil
// factory or a duplicate registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds lists registered backend kinds.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}

// New connects to the backend selected by cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}
	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, cfg.Kind)
	}
	return f(ctx, cfg)
}

// WithTx runs fn inside a transaction, committing on success and rolling back
// on error or panic.
func WithTx(ctx context.Context, repo Repository, fn func(tx Tx) error) (err error) {
	tx, err := repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// GetByID selects a single row by its id column.
func GetByID(ctx context.Context, repo Repository, table, idColumn string, id int64, columns []string) ([]any, error) {
	res, err := repo.Select(ctx, Query{
		Table:   table,
		Columns: columns,
		Eq:      []Cond{{Column: idColumn, Value: id}},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s %s=%d", ErrNotFound, table, idColumn, id)
	}
	return res.Rows[0], nil
}
