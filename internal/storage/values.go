package storage

import (
	"fmt"
	"strconv"
	"time"
)

// TextTimeLayout is the fixed-width UTC layout used by backends that store
// times as text. Fixed width keeps lexical order equal to time order.
const TextTimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTextTime renders t in TextTimeLayout.
func FormatTextTime(t time.Time) string {
	return t.UTC().Format(TextTimeLayout)
}

// Decode converts a driver value to the canonical Go type for typ.
// An empty typ leaves the value as the driver returned it, apart from []byte
// which becomes string.
func Decode(typ ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch typ {
	case TypeTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			for _, layout := range []string{TextTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02 15:04:05", time.DateOnly} {
				if ts, err := time.Parse(layout, t); err == nil {
					return ts.UTC(), nil
				}
			}
			return nil, fmt.Errorf("storage: decode time %q", t)
		}
	case TypeFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case float32:
			return float64(t), nil
		case int64:
			return float64(t), nil
		case string:
			return strconv.ParseFloat(t, 64)
		}
	case TypeInt, TypeID:
		switch t := v.(type) {
		case int64:
			return t, nil
		case int32:
			return int64(t), nil
		case int:
			return int64(t), nil
		case float64:
			return int64(t), nil
		case string:
			return strconv.ParseInt(t, 10, 64)
		}
	case TypeBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case int64:
			return t != 0, nil
		case string:
			return strconv.ParseBool(t)
		}
	case TypeText:
		switch t := v.(type) {
		case string:
			return t, nil
		default:
			return fmt.Sprint(t), nil
		}
	case "":
		return v, nil
	}
	return nil, fmt.Errorf("storage: cannot decode %T as %s", v, typ)
}
