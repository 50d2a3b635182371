package pipeline

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Sanitize replaces every non-finite numeric value (NaN, ±Inf) in the row
// set with an explicit null, in place, descending into any nested arrays
// the normalizer preserved. After Sanitize the row set is guaranteed
// encodable as strict JSON.
func Sanitize(rows []Row) {
	for _, row := range rows {
		for key, value := range row {
			row[key] = sanitizeValue(value)
		}
	}
}

func sanitizeValue(v any) any {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		return n
	case float32:
		return sanitizeValue(float64(n))
	case []any:
		for i, elem := range n {
			n[i] = sanitizeValue(elem)
		}
		return n
	case map[string]any:
		for k, elem := range n {
			n[k] = sanitizeValue(elem)
		}
		return n
	default:
		return v
	}
}

// EncodeRows serializes a sanitized row set to a JSON array of objects.
// The encoder rejects non-finite values, so a payload that slipped past
// sanitization fails loudly here instead of reaching the store.
func EncodeRows(rows []Row) ([]byte, error) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row payload: %w", err)
	}
	return payload, nil
}
