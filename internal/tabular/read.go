package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for spreadsheet formats that cannot be
// read (legacy binary .xls).
var ErrUnsupportedFormat = errors.New("unsupported file format")

// utf8BOM is prepended by Excel and most Windows tools when saving CSV.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read parses r according to the extension of name. An empty input yields
// an empty table, not an error.
func Read(name string, r io.Reader) (Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		t, err := ReadXLSX(r)
		t.Name = name
		return t, err
	case ".xls":
		return Table{Name: name}, fmt.Errorf("%s: %w (save as .xlsx or .csv)", name, ErrUnsupportedFormat)
	default:
		t, err := ReadCSV(r)
		t.Name = name
		return t, err
	}
}

// ReadCSV parses delimited text. The delimiter is sniffed from the first
// non-empty line among ',', ';' and tab. A UTF-8 BOM is skipped and invalid
// UTF-8 bytes are replaced with '?'.
func ReadCSV(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	data = sanitize(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, nil
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("invalid csv: %w", err)
	}

	return fromRecords(records, nil), nil
}

// ReadXLSX parses the first worksheet of an Office Open XML workbook.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, nil
	}

	sheet := sheets[0]
	records, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	// GetRows formats booleans as TRUE/FALSE; only those cells are worth a
	// type lookup.
	boolCell := func(row, col int, v string) any {
		if !strings.EqualFold(v, "true") && !strings.EqualFold(v, "false") {
			return v
		}
		axis, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return v
		}
		if typ, err := f.GetCellType(sheet, axis); err == nil && typ == excelize.CellTypeBool {
			return strings.EqualFold(v, "true")
		}
		return v
	}

	return fromRecords(records, boolCell), nil
}

// fromRecords turns raw string records into a Table. Leading blank rows are
// skipped, the first non-blank row becomes the header and blank data rows are
// dropped. convert, when set, maps a cell at its zero-based sheet position to
// the value stored in the row.
func fromRecords(records [][]string, convert func(row, col int, v string) any) Table {
	var t Table
	start := -1
	for i, rec := range records {
		if !blank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return t
	}

	t.Headers = make([]string, len(records[start]))
	for i, h := range records[start] {
		t.Headers[i] = cleanHeader(h)
	}

	for r := start + 1; r < len(records); r++ {
		rec := records[r]
		if blank(rec) {
			continue
		}
		row := make(Row, len(rec))
		for i, v := range rec {
			if convert != nil {
				row[i] = convert(r, i, v)
			} else {
				row[i] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// cleanHeader strips whitespace, surrounding quotes and the Excel formula
// wrapper (="Header") some exports emit.
func cleanHeader(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// sanitize drops a leading BOM and replaces invalid UTF-8 sequences.
func sanitize(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("?"))
}

// sniffDelimiter picks the candidate delimiter that occurs most often outside
// quotes on the first non-empty line. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	var line []byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}

	counts := map[rune]int{}
	inQuotes := false
	for _, r := range string(line) {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ',' || r == ';' || r == '\t'):
			counts[r]++
		}
	}

	best := ','
	for _, d := range []rune{';', '\t'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
