package pipeline

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Coerce applies each column's target type to every row, in place. Every
// coercion is total: unparsable input becomes null, never an error, and
// re-applying a coercion to already-coerced output is a no-op.
func Coerce(rows []Row, table Table) {
	for _, row := range rows {
		for _, col := range table.Columns {
			switch col.Kind {
			case Int:
				row[col.Name] = CoerceInt(row[col.Name])
			case Bool:
				row[col.Name] = CoerceBool(row[col.Name])
			case Timestamp:
				row[col.Name] = CoerceTimestamp(row[col.Name])
			}
		}
	}
}

// CoerceInt converts a value to a nullable integer. Numeric strings and
// floats are accepted (floats are rounded to the nearest integer, so the
// store never observes "2.0" where an integer is expected); anything
// non-numeric, non-finite, or already null becomes nil.
func CoerceInt(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		return int64(math.Round(n))
	case float32:
		return CoerceInt(float64(n))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return int64(math.Round(f))
	default:
		return nil
	}
}

// CoerceBool converts a value to a nullable boolean. Recognized inputs
// are true, false and the numeric markers 1 and 0; everything else maps
// to nil, a tri-state result distinct from both true and false.
func CoerceBool(v any) any {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		if b == 1 {
			return true
		}
		if b == 0 {
			return false
		}
		return nil
	case int:
		return CoerceBool(float64(b))
	case int64:
		return CoerceBool(float64(b))
	default:
		return nil
	}
}

// timestampLayouts are the accepted source timestamp representations, in
// the order they are tried. The first is also the output layout, so
// coercing twice is a no-op.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CoerceTimestamp converts a value to an ISO-8601 UTC timestamp string
// (YYYY-MM-DDTHH:MM:SSZ). Unparsable or missing input yields nil, never a
// partially formatted string.
func CoerceTimestamp(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02T15:04:05Z")
	case string:
		for _, layout := range timestampLayouts {
			parsed, err := time.Parse(layout, t)
			if err == nil {
				return parsed.UTC().Format("2006-01-02T15:04:05Z")
			}
		}
		return nil
	default:
		return nil
	}
}
