package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one data row. Cells are usually strings; spreadsheet readers may
// surface native bools and numbers.
type Row []any

// Table is a header row plus data rows. The zero value is an empty table and
// is what callers pass for an export that was not provided.
type Table struct {
	Name    string // Source file name, informational only
	Headers []string
	Rows    []Row
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Resolve resolves candidates against the table headers. See [Resolve].
func (t Table) Resolve(candidates Candidates) (string, int, bool) {
	return Resolve(t.Headers, candidates)
}

// Cell returns the raw value at (row, col), or nil when the row is short.
func (t Table) Cell(row, col int) any {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return nil
	}
	r := t.Rows[row]
	if col >= len(r) {
		return nil
	}
	return r[col]
}

// Text returns the trimmed string form of the cell at (row, col).
func (t Table) Text(row, col int) string {
	return strings.TrimSpace(Text(t.Cell(row, col)))
}

// Column returns the trimmed, non-empty string values of column col in row
// order. Duplicates are kept.
func (t Table) Column(col int) []string {
	if col < 0 {
		return nil
	}
	var out []string
	for i := range t.Rows {
		if v := t.Text(i, col); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Text coerces a cell value to a string. nil becomes "", bools render as
// "True"/"False" and whole floats drop their fractional part.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
