// Package sqlstore holds the SQL text builders shared by every backend and a
// database/sql implementation of storage.Repository used by the sqlite and
// mssql backends.
//
// Builders are pure so their output can be checked without a database.
package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"gridetl/internal/storage"
)

// Dialect captures what differs between SQL engines.
type Dialect interface {
	// Name is the storage kind, used in error messages.
	Name() string

	// Ident quotes an identifier.
	Ident(name string) string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string

	// ColumnDef renders a column definition for CREATE TABLE.
	ColumnDef(c storage.ColumnSpec) string

	// CreateTable returns idempotent DDL statements for t, indexes included.
	CreateTable(t storage.TableSpec) ([]string, error)

	// Insert builds one multi-row insert. With conflict columns the
	// statement skips rows whose key already exists.
	Insert(table string, columns []string, rows [][]any, conflict []string) (string, []any)

	// InsertReturning builds a single-row insert that yields idColumn.
	InsertReturning(table, idColumn string, columns []string) string

	// RowsPerStatement caps how many rows of ncols columns go in one insert.
	RowsPerStatement(ncols int) int

	// RandomOrder is the ORDER BY expression for a random sample.
	RandomOrder() string

	// TopLimit reports whether the row cap is written as TOP (n) after SELECT
	// rather than LIMIT n at the end.
	TopLimit() bool

	// Encode converts a Go value into what the driver should bind.
	Encode(v any) any
}

// Chunks splits rows so each statement stays within the dialect's limits.
func Chunks(d Dialect, columns []string, rows [][]any) [][][]any {
	return storage.ChunkRows(rows, d.RowsPerStatement(len(columns)))
}

// ValuesList writes "(p1, p2), (p3, p4)" for rows and returns the encoded args.
func ValuesList(d Dialect, b *strings.Builder, columns []string, rows [][]any) []any {
	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(p))
			args = append(args, d.Encode(row[j]))
			p++
		}
		b.WriteString(")")
	}
	return args
}

// IdentList quotes and comma-joins names.
func IdentList(d Dialect, names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = d.Ident(n)
	}
	return strings.Join(q, ", ")
}

// ColumnDefs renders the column list and table-level UNIQUE constraints of t.
func ColumnDefs(d Dialect, t storage.TableSpec) ([]string, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(t.Columns)+len(t.Unique))
	for _, c := range t.Columns {
		parts = append(parts, d.ColumnDef(c))
	}
	for _, u := range t.Unique {
		parts = append(parts, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)",
			d.Ident(storage.IndexName("uq", t.Name, u)), IdentList(d, u)))
	}
	return parts, nil
}

// BuildInsertReturning is the common "INSERT ... VALUES (...) RETURNING id" form.
func BuildInsertReturning(d Dialect, table, idColumn string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (", d.Ident(table), IdentList(d, columns))
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Placeholder(i + 1))
	}
	fmt.Fprintf(&b, ") RETURNING %s", d.Ident(idColumn))
	return b.String()
}

// BuildUpdate renders UPDATE table SET ... WHERE idColumn = ?.
func BuildUpdate(d Dialect, table, idColumn string, id int64, columns []string, values []any) (string, []any, error) {
	if len(columns) == 0 || len(columns) != len(values) {
		return "", nil, fmt.Errorf("%s: update %s: %d columns for %d values", d.Name(), table, len(columns), len(values))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", d.Ident(table))
	args := make([]any, 0, len(values)+1)
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s", d.Ident(c), d.Placeholder(i+1))
		args = append(args, d.Encode(values[i]))
	}
	fmt.Fprintf(&b, " WHERE %s = %s", d.Ident(idColumn), d.Placeholder(len(columns)+1))
	args = append(args, id)
	return b.String(), args, nil
}

// BuildSelect renders q for d.
func BuildSelect(d Dialect, q storage.Query) (string, []any, error) {
	if q.Table == "" || len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("%s: select needs a table and columns", d.Name())
	}

	var (
		b     strings.Builder
		where []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, d.Encode(v))
		return d.Placeholder(len(args))
	}

	for _, c := range q.Eq {
		if c.Value == nil {
			where = append(where, d.Ident(c.Column)+" IS NULL")
			continue
		}
		where = append(where, d.Ident(c.Column)+" = "+bind(c.Value))
	}
	if q.InColumn != "" && len(q.In) > 0 {
		marks := make([]string, len(q.In))
		for i, v := range q.In {
			marks[i] = bind(v)
		}
		where = append(where, fmt.Sprintf("%s IN (%s)", d.Ident(q.InColumn), strings.Join(marks, ", ")))
	}
	if q.TimeColumn != "" {
		if q.From != nil {
			where = append(where, d.Ident(q.TimeColumn)+" >= "+bind(q.From.UTC()))
		}
		if q.To != nil {
			where = append(where, d.Ident(q.TimeColumn)+" <= "+bind(q.To.UTC()))
		}
	}
	for _, c := range q.NotNull {
		where = append(where, d.Ident(c)+" IS NOT NULL")
	}

	b.WriteString("SELECT ")
	if q.Limit > 0 && d.TopLimit() {
		fmt.Fprintf(&b, "TOP (%d) ", q.Limit)
	}
	b.WriteString(IdentList(d, q.Columns))
	b.WriteString(" FROM ")
	b.WriteString(d.Ident(q.Table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	switch {
	case q.Random:
		b.WriteString(" ORDER BY ")
		b.WriteString(d.RandomOrder())
	case q.OrderBy != "":
		b.WriteString(" ORDER BY ")
		b.WriteString(d.Ident(q.OrderBy))
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 && !d.TopLimit() {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args, nil
}

// EncodeTimeAsText binds times as fixed-width UTC text; other values pass
// through. Backends without a native timestamp type use it as Encode.
func EncodeTimeAsText(v any) any {
	switch t := v.(type) {
	case time.Time:
		return storage.FormatTextTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return storage.FormatTextTime(*t)
	}
	return v
}
