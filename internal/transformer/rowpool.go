// Package transformer holds the row type shared by the CSV parser and the
// importers, plus cell coercion helpers.
package transformer

import "sync"

// Row is a pooled positional row. V is aligned to the column projection the
// parser was asked for; a nil element means the cell was empty or absent.
//
// Ownership: exactly one goroutine owns a Row at a time. Passing it over a
// channel transfers ownership. The final consumer calls Free once it no longer
// reads r.V; cancellation paths call Drop instead so a row still visible to a
// draining consumer is never handed back to the parser.
type Row struct {
	V    []any
	Line int // 1-based physical record number in the source
}

var rowPool sync.Pool

// GetRow returns a zeroed Row with len(V) == colCount.
func GetRow(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]any, colCount)
		}
		r.V = r.V[:colCount]
		clear(r.V)
		r.Line = 0
		return r
	}
	return &Row{V: make([]any, colCount)}
}

// Free returns the Row to the pool.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop releases the Row without re-pooling it.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}

// String returns cell i as a string, or "" when nil or out of range.
func (r *Row) String(i int) string {
	if i < 0 || i >= len(r.V) || r.V[i] == nil {
		return ""
	}
	if s, ok := r.V[i].(string); ok {
		return s
	}
	return ""
}
