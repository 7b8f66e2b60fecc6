// Package sqlite is the modernc.org/sqlite backend.
//
// SQLite has no timestamp type, so times are stored as fixed-width UTC text
// (storage.TextTimeLayout); range filters then compare lexically in time order.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"gridetl/internal/storage"
	"gridetl/internal/storage/sqlstore"
)

// maxVariables stays under SQLITE_MAX_VARIABLE_NUMBER on every build.
const (
	maxVariables = 32000
	maxRows      = 500
)

func init() {
	storage.Register("sqlite", New)
}

// New opens a SQLite database. A single connection serialises writers,
// which avoids SQLITE_BUSY under concurrent batches.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, err := sqlstore.Open(ctx, "sqlite", cfg.DSN, Dialect{}, func(db *sql.DB) {
		db.SetMaxOpenConns(1)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Dialect implements sqlstore.Dialect for SQLite.
type Dialect struct{}

var _ sqlstore.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Ident(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func (Dialect) Placeholder(int) string { return "?" }

func (d Dialect) ColumnDef(c storage.ColumnSpec) string {
	var typ string
	switch c.Type {
	case storage.TypeID:
		return d.Ident(c.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT"
	case storage.TypeInt, storage.TypeBool:
		typ = "INTEGER"
	case storage.TypeFloat:
		typ = "REAL"
	default:
		typ = "TEXT"
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
	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", d.Ident(t.Name), strings.Join(parts, ",\n  "))}
	for _, ix := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
			d.Ident(storage.IndexName("ix", t.Name, ix)), d.Ident(t.Name), sqlstore.IdentList(d, ix)))
	}
	return stmts, nil
}

// Insert uses INSERT OR IGNORE when conflict columns are given; the table
// must carry a UNIQUE constraint on them.
func (d Dialect) Insert(table string, columns []string, rows [][]any, conflict []string) (string, []any) {
	var b strings.Builder
	if len(conflict) > 0 {
		b.WriteString("INSERT OR IGNORE INTO ")
	} else {
		b.WriteString("INSERT INTO ")
	}
	b.WriteString(d.Ident(table))
	b.WriteString(" (")
	b.WriteString(sqlstore.IdentList(d, columns))
	b.WriteString(") VALUES ")
	args := sqlstore.ValuesList(d, &b, columns, rows)
	return b.String(), args
}

func (d Dialect) InsertReturning(table, idColumn string, columns []string) string {
	return sqlstore.BuildInsertReturning(d, table, idColumn, columns)
}

func (Dialect) RowsPerStatement(ncols int) int {
	if ncols <= 0 {
		return maxRows
	}
	return max(1, min(maxRows, maxVariables/ncols))
}

func (Dialect) RandomOrder() string { return "RANDOM()" }

func (Dialect) TopLimit() bool { return false }

func (Dialect) Encode(v any) any {
	v = sqlstore.EncodeTimeAsText(v)
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}
