package pipeline

// Project restricts each row to exactly the table's allow-listed column
// set. Allow-listed columns absent from a row are materialized with an
// explicit null; source columns outside the allow-list are dropped. This
// is the seam that isolates the store schema from upstream churn: new
// upstream fields are a no-op, removed ones degrade to nulls.
func Project(rows []Row, table Table) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		projected := make(Row, len(table.Columns))
		for _, col := range table.Columns {
			value, ok := row[col.Name]
			if !ok {
				projected[col.Name] = nil
				continue
			}
			projected[col.Name] = value
		}
		out = append(out, projected)
	}
	return out
}
