// Package mssql is the Microsoft SQL Server backend (go-mssqldb, "sqlserver"
// driver).
//
// SQL Server has no INSERT ... ON CONFLICT. Idempotent inserts are written as
// INSERT ... SELECT FROM (VALUES ...) WHERE NOT EXISTS, and each chunk is
// deduplicated first because NOT EXISTS does not see rows from the same
// statement.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"gridetl/internal/storage"
	"gridetl/internal/storage/sqlstore"
)

const (
	// SQL Server allows 2100 parameters per request.
	maxParams = 2000
	// A table value constructor is limited to 1000 rows.
	maxRows = 1000
)

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, err := sqlstore.Open(ctx, "sqlserver", cfg.DSN, Dialect{}, func(db *sql.DB) {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(16)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Dialect implements sqlstore.Dialect for SQL Server.
type Dialect struct{}

var _ sqlstore.Dialect = Dialect{}

func (Dialect) Name() string { return "mssql" }

// Ident bracket-quotes name; dotted names are quoted per part.
func (Dialect) Ident(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = "[" + strings.ReplaceAll(strings.TrimSpace(parts[i]), "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

func (d Dialect) ColumnDef(c storage.ColumnSpec) string {
	var typ string
	switch c.Type {
	case storage.TypeID:
		return d.Ident(c.Name) + " BIGINT IDENTITY(1,1) PRIMARY KEY"
	case storage.TypeInt:
		typ = "BIGINT"
	case storage.TypeFloat:
		typ = "FLOAT"
	case storage.TypeBool:
		typ = "BIT"
	case storage.TypeTime:
		typ = "DATETIME2(7)"
	default:
		if c.Size > 0 {
			typ = fmt.Sprintf("NVARCHAR(%d)", c.Size)
		} else {
			typ = "NVARCHAR(MAX)"
		}
	}
	def := d.Ident(c.Name) + " " + typ
	if !c.Nullable {
		def += " NOT NULL"
	}
	return def
}

// CreateTable guards each statement with an existence check, since SQL
// Server has no CREATE TABLE IF NOT EXISTS.
func (d Dialect) CreateTable(t storage.TableSpec) ([]string, error) {
	parts, err := sqlstore.ColumnDefs(d, t)
	if err != nil {
		return nil, err
	}
	stmts := []string{fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		t.Name, d.Ident(t.Name), strings.Join(parts, ", "),
	)}
	for _, ix := range t.Indexes {
		name := storage.IndexName("ix", t.Name, ix)
		stmts = append(stmts, fmt.Sprintf(
			"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'%s' AND object_id = OBJECT_ID(N'%s')) CREATE INDEX %s ON %s (%s);",
			name, t.Name, d.Ident(name), d.Ident(t.Name), sqlstore.IdentList(d, ix),
		))
	}
	return stmts, nil
}

// Insert returns "" when nothing is left after in-chunk dedupe.
func (d Dialect) Insert(table string, columns []string, rows [][]any, conflict []string) (string, []any) {
	if len(conflict) == 0 {
		return buildBulkInsertSQL(d, table, columns, rows)
	}
	deduped, err := storage.DedupeRows(columns, rows, conflict)
	if err != nil || len(deduped) == 0 {
		// Unknown conflict columns: let the server reject the statement.
		deduped = rows
	}
	return buildInsertNotExistsSQL(d, table, columns, deduped, conflict)
}

func buildBulkInsertSQL(d Dialect, table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Ident(table))
	b.WriteString(" (")
	b.WriteString(sqlstore.IdentList(d, columns))
	b.WriteString(") VALUES ")
	args := sqlstore.ValuesList(d, &b, columns, rows)
	return b.String(), args
}

// buildInsertNotExistsSQL materializes rows as v via VALUES and inserts those
// that do not match an existing row on conflict.
func buildInsertNotExistsSQL(d Dialect, table string, columns []string, rows [][]any, conflict []string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Ident(table))
	b.WriteString(" (")
	b.WriteString(sqlstore.IdentList(d, columns))
	b.WriteString(") SELECT ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("v.")
		b.WriteString(d.Ident(c))
	}
	b.WriteString(" FROM (VALUES ")
	args := sqlstore.ValuesList(d, &b, columns, rows)
	b.WriteString(") AS v(")
	b.WriteString(sqlstore.IdentList(d, columns))
	b.WriteString(") WHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(d.Ident(table))
	b.WriteString(" t WHERE ")
	for i, c := range conflict {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("t.")
		b.WriteString(d.Ident(c))
		b.WriteString(" = v.")
		b.WriteString(d.Ident(c))
	}
	b.WriteString(")")
	return b.String(), args
}

func (d Dialect) InsertReturning(table, idColumn string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) OUTPUT INSERTED.%s VALUES (", d.Ident(table), sqlstore.IdentList(d, columns), d.Ident(idColumn))
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Placeholder(i + 1))
	}
	b.WriteString(")")
	return b.String()
}

func (Dialect) RowsPerStatement(ncols int) int {
	if ncols <= 0 {
		return maxRows
	}
	return max(1, min(maxRows, maxParams/ncols))
}

func (Dialect) RandomOrder() string { return "NEWID()" }

func (Dialect) TopLimit() bool { return true }

func (Dialect) Encode(v any) any { return v }
