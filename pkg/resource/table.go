package resource

// Table is the column-ordered tabular value type.
// It is the weft analogue of a dataframe: a fixed column list and
// row-major cells. Cells hold normalized scalar values.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable builds a Table from a column list and row-major cell data.
// Rows shorter than the column list are padded with nil; longer rows
// are truncated.
func NewTable(columns []string, rows ...[]any) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	for _, row := range rows {
		cells := make([]any, len(columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = normalizeValue(row[i])
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.Columns) }

// Append adds one row, padding or truncating to the column count.
func (t *Table) Append(row ...any) {
	cells := make([]any, len(t.Columns))
	for i := range cells {
		if i < len(row) {
			cells[i] = normalizeValue(row[i])
		}
	}
	t.Rows = append(t.Rows, cells)
}

// Column returns the index of the named column, or -1 if absent.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Records converts the table to a slice of column-keyed maps.
func (t *Table) Records() []map[string]any {
	recs := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = deepCopyValue(row[i])
		}
		recs = append(recs, rec)
	}
	return recs
}

func (t *Table) clone() *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = deepCopyValue(c)
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}
