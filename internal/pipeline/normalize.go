package pipeline

// Row is one flat record headed for the store, keyed by column name.
type Row = map[string]any

// Flatten turns a sequence of decoded JSON objects into one flat row per
// object. Nested objects are flattened into dotted column names
// ("stats.minutes"); arrays are preserved as-is. Input order is kept and
// no row is dropped.
func Flatten(objects []map[string]any) []Row {
	rows := make([]Row, 0, len(objects))
	for _, obj := range objects {
		row := make(Row, len(obj))
		flattenInto("", obj, row)
		rows = append(rows, row)
	}
	return rows
}

func flattenInto(prefix string, obj map[string]any, row Row) {
	for key, value := range obj {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(name, nested, row)
			continue
		}
		row[name] = value
	}
}

// StripFields removes the named fields from each source object before
// normalization. Used for the fixtures' nested stats array, which is
// large, unstable, and deliberately kept out of the store.
func StripFields(objects []map[string]any, fields []string) {
	if len(fields) == 0 {
		return
	}
	for _, obj := range objects {
		for _, f := range fields {
			delete(obj, f)
		}
	}
}
