package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeKey converts a key value to a canonical string so the same key
// compares equal regardless of its Go type (string "7" vs int64 7 is not
// unified; time values are compared as UTC instants).
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00"
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return "\x00"
		}
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

const keySep = "\x1f"

// CompositeKey joins the normalized values at idx into one key.
func CompositeKey(row []any, idx []int) string {
	var b strings.Builder
	for i, j := range idx {
		if i > 0 {
			b.WriteString(keySep)
		}
		b.WriteString(NormalizeKey(row[j]))
	}
	return b.String()
}

// ColumnIndexes resolves names against columns.
func ColumnIndexes(columns, names []string) ([]int, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	out := make([]int, len(names))
	for i, n := range names {
		j, ok := pos[n]
		if !ok {
			return nil, fmt.Errorf("storage: key column %q not present in columns", n)
		}
		out[i] = j
	}
	return out, nil
}

// DedupeRows keeps the first row for each key formed by keyColumns.
func DedupeRows(columns []string, rows [][]any, keyColumns []string) ([][]any, error) {
	if len(keyColumns) == 0 || len(rows) < 2 {
		return rows, nil
	}
	idx, err := ColumnIndexes(columns, keyColumns)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rows))
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		k := CompositeKey(r, idx)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

// ChunkRows splits rows into chunks of at most size rows.
func ChunkRows(rows [][]any, size int) [][][]any {
	if size <= 0 || len(rows) <= size {
		if len(rows) == 0 {
			return nil
		}
		return [][][]any{rows}
	}
	out := make([][][]any, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}
