// Package frame is a small column-oriented table keyed by (timestamp,
// country_code), enough to pivot the generation series, left-join the
// energy domains and compute derived features for profiling.
package frame

import (
	"sort"
	"time"
)

// Key column names.
const (
	TimeColumn    = "timestamp"
	CountryColumn = "country_code"
)

// Kind is the logical type of a column.
type Kind int

const (
	Float Kind = iota
	Int
	Bool
	Text
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Text:
		return "text"
	default:
		return "float"
	}
}

// Column holds one named series. Numeric kinds (Float, Int, Bool) use Num,
// Text uses Str. Valid[i] is false for a null cell.
type Column struct {
	Name  string
	Kind  Kind
	Num   []float64
	Str   []string
	Valid []bool
}

func newColumn(name string, kind Kind, n int) *Column {
	c := &Column{Name: name, Kind: kind, Valid: make([]bool, n)}
	if kind == Text {
		c.Str = make([]string, n)
	} else {
		c.Num = make([]float64, n)
	}
	return c
}

// Len is the number of cells.
func (c *Column) Len() int { return len(c.Valid) }

// Numeric reports whether the column stores numbers.
func (c *Column) Numeric() bool { return c.Kind != Text }

// At returns cell i of a numeric column.
func (c *Column) At(i int) (float64, bool) {
	if c.Kind == Text || !c.Valid[i] {
		return 0, false
	}
	return c.Num[i], true
}

// Set stores v in cell i of a numeric column.
func (c *Column) Set(i int, v float64) {
	c.Num[i] = v
	c.Valid[i] = true
}

// SetPtr stores *v, or null when v is nil.
func (c *Column) SetPtr(i int, v *float64) {
	if v == nil {
		c.Valid[i] = false
		return
	}
	c.Set(i, *v)
}

// SetText stores s in cell i of a text column; "" is null.
func (c *Column) SetText(i int, s string) {
	c.Str[i] = s
	c.Valid[i] = s != ""
}

// Nulls counts the null cells.
func (c *Column) Nulls() int {
	n := 0
	for _, ok := range c.Valid {
		if !ok {
			n++
		}
	}
	return n
}

func (c *Column) grow() {
	c.Valid = append(c.Valid, false)
	if c.Kind == Text {
		c.Str = append(c.Str, "")
	} else {
		c.Num = append(c.Num, 0)
	}
}

// copyCell copies cell j of src into cell i of c. Both share a kind.
func (c *Column) copyCell(i int, src *Column, j int) {
	if !src.Valid[j] {
		return
	}
	c.Valid[i] = true
	if c.Kind == Text {
		c.Str[i] = src.Str[j]
	} else {
		c.Num[i] = src.Num[j]
	}
}

// Key identifies a row for joins.
type Key struct {
	Unix    int64
	Country string
}

// KeyOf builds the join key of an observation.
func KeyOf(t time.Time, country string) Key {
	return Key{Unix: t.UnixNano(), Country: country}
}

// Frame is a table with a timestamp and a country key plus named columns.
type Frame struct {
	Time    []time.Time
	Country []string
	cols    []*Column
	index   map[string]int
}

func New() *Frame {
	return &Frame{index: map[string]int{}}
}

// Len is the number of rows.
func (f *Frame) Len() int { return len(f.Time) }

// Append adds a row whose columns are all null and returns its index.
func (f *Frame) Append(t time.Time, country string) int {
	f.Time = append(f.Time, t.UTC())
	f.Country = append(f.Country, country)
	for _, c := range f.cols {
		c.grow()
	}
	return len(f.Time) - 1
}

// Key returns the join key of row i.
func (f *Frame) Key(i int) Key { return KeyOf(f.Time[i], f.Country[i]) }

// Column returns the named column or nil.
func (f *Frame) Column(name string) *Column {
	if i, ok := f.index[name]; ok {
		return f.cols[i]
	}
	return nil
}

// Has reports whether name is a key or value column.
func (f *Frame) Has(name string) bool {
	if name == TimeColumn || name == CountryColumn {
		return true
	}
	_, ok := f.index[name]
	return ok
}

// AddColumn returns the named column, creating an all-null one of the
// given kind when absent.
func (f *Frame) AddColumn(name string, kind Kind) *Column {
	if c := f.Column(name); c != nil {
		return c
	}
	c := newColumn(name, kind, f.Len())
	f.index[name] = len(f.cols)
	f.cols = append(f.cols, c)
	return c
}

// Columns returns the value columns in insertion order.
func (f *Frame) Columns() []*Column { return f.cols }

// Names returns every column name, keys first.
func (f *Frame) Names() []string {
	out := make([]string, 0, len(f.cols)+2)
	out = append(out, TimeColumn, CountryColumn)
	for _, c := range f.cols {
		out = append(out, c.Name)
	}
	return out
}

// Long is one observation of a long-format table: a key, a category and one
// value per pivoted metric.
type Long struct {
	Time     time.Time
	Country  string
	Category string
	Values   []*float64
}

// Pivot turns long observations into one row per key with a column
// "<category>_<metric>" for every category and metric seen. When a key has
// several observations of a category, the first non-null value wins. Rows
// come out sorted by timestamp, then country; columns by metric, then
// category.
func Pivot(rows []Long, metrics []string) *Frame {
	f := New()
	pos := map[Key]int{}
	var cats []string
	seenCat := map[string]bool{}
	for _, r := range rows {
		if !seenCat[r.Category] {
			seenCat[r.Category] = true
			cats = append(cats, r.Category)
		}
	}
	sort.Strings(cats)

	keys := make([]Long, 0, len(rows))
	for _, r := range rows {
		k := KeyOf(r.Time, r.Country)
		if _, ok := pos[k]; !ok {
			pos[k] = -1
			keys = append(keys, r)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if !keys[i].Time.Equal(keys[j].Time) {
			return keys[i].Time.Before(keys[j].Time)
		}
		return keys[i].Country < keys[j].Country
	})
	for _, r := range keys {
		pos[KeyOf(r.Time, r.Country)] = f.Append(r.Time, r.Country)
	}

	for _, m := range metrics {
		for _, c := range cats {
			f.AddColumn(c+"_"+m, Float)
		}
	}
	for _, r := range rows {
		i := pos[KeyOf(r.Time, r.Country)]
		for mi, m := range metrics {
			if mi >= len(r.Values) || r.Values[mi] == nil {
				continue
			}
			col := f.Column(r.Category + "_" + m)
			if !col.Valid[i] {
				col.Set(i, *r.Values[mi])
			}
		}
	}
	return f
}

// LeftJoin adds every value column of right to left, matching rows on
// (timestamp, country_code). Every left row is kept; rows without a match
// get nulls, and when right repeats a key its first row wins. A right
// column whose name already exists in left is added with a "_right" suffix.
// left is modified in place and returned.
func LeftJoin(left, right *Frame) *Frame {
	if right == nil || len(right.cols) == 0 {
		return left
	}
	first := make(map[Key]int, right.Len())
	for j := 0; j < right.Len(); j++ {
		k := right.Key(j)
		if _, ok := first[k]; !ok {
			first[k] = j
		}
	}

	targets := make([]*Column, len(right.cols))
	for ci, rc := range right.cols {
		name := rc.Name
		if left.Has(name) {
			name += "_right"
		}
		targets[ci] = left.AddColumn(name, rc.Kind)
	}
	for i := 0; i < left.Len(); i++ {
		j, ok := first[left.Key(i)]
		if !ok {
			continue
		}
		for ci, rc := range right.cols {
			targets[ci].copyCell(i, rc, j)
		}
	}
	return left
}
