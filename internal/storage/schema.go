package storage

import (
	"fmt"
	"strings"
	"sync"
)

// ColumnType is a logical column type; each backend maps it to a native type.
type ColumnType string

const (
	TypeID    ColumnType = "id" // auto-generated bigint primary key
	TypeInt   ColumnType = "int"
	TypeFloat ColumnType = "float"
	TypeText  ColumnType = "text"
	TypeBool  ColumnType = "bool"
	TypeTime  ColumnType = "time"
)

// ColumnSpec describes one column.
type ColumnSpec struct {
	Name     string
	Type     ColumnType
	Size     int // max length for short text columns; 0 means unbounded
	Nullable bool
}

// TableSpec describes a table and its unique keys.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
	Unique  [][]string // each entry becomes a UNIQUE constraint
	Indexes [][]string // plain secondary indexes
}

// PrimaryKey returns the TypeID column name, or "".
func (t TableSpec) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.Type == TypeID {
			return c.Name
		}
	}
	return ""
}

// Column returns the named column spec.
func (t TableSpec) Column(name string) (ColumnSpec, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// Validate checks that the spec is usable for DDL.
func (t TableSpec) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("storage: table name is empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("storage: table %s has no columns", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	ids := 0
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("storage: table %s has a column with no name", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("storage: table %s: duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = true
		switch c.Type {
		case TypeID:
			ids++
		case TypeInt, TypeFloat, TypeText, TypeBool, TypeTime:
		default:
			return fmt.Errorf("storage: table %s column %s: unknown type %q", t.Name, c.Name, c.Type)
		}
	}
	if ids > 1 {
		return fmt.Errorf("storage: table %s has more than one id column", t.Name)
	}
	for _, group := range append(append([][]string{}, t.Unique...), t.Indexes...) {
		for _, c := range group {
			if !seen[c] {
				return fmt.Errorf("storage: table %s: key column %s not defined", t.Name, c)
			}
		}
	}
	return nil
}

// IndexName builds a deterministic index/constraint name.
func IndexName(prefix, table string, cols []string) string {
	return prefix + "_" + strings.ReplaceAll(table, ".", "_") + "_" + strings.Join(cols, "_")
}

// Registry remembers table specs so backends can decode stored values by
// logical type.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]TableSpec
}

func NewRegistry() *Registry {
	return &Registry{tables: map[string]TableSpec{}}
}

func (r *Registry) Add(t TableSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[t.Name] = t
}

// Type returns the logical type of table.column, or "" when unknown.
func (r *Registry) Type(table, column string) ColumnType {
	r.mu.RLock()
	t, ok := r.tables[table]
	r.mu.RUnlock()
	if !ok {
		return ""
	}
	c, ok := t.Column(column)
	if !ok {
		return ""
	}
	return c.Type
}
