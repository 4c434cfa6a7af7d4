package core

import (
	"sort"
	"strings"

	"github.com/JonMunkholm/deprov/internal/tabular"
)

// Extraction is the result of pulling one identity's values out of a table.
type Extraction struct {
	Values      []string // deduplicated, case-insensitively sorted
	KeyColumn   string   // resolved key header, empty if unresolved
	ValueColumn string   // resolved value header, empty if unresolved
	Missing     []string // logical names of fields that did not resolve
	Fallback    bool     // matched through a free-text member list
}

// Resolved reports whether both the key and value columns were found.
func (e Extraction) Resolved() bool {
	return len(e.Missing) == 0
}

// Extract returns the value column of every row whose key column equals the
// identity (bare handle or handle@domain, case-insensitive). An unresolved
// column yields an empty result with Missing set; whether that deserves a
// warning is the caller's decision.
func Extract(t tabular.Table, key, value Field, id Identity) Extraction {
	keyCol, keyIdx, keyOK := t.Resolve(key.Candidates)
	valCol, valIdx, valOK := t.Resolve(value.Candidates)

	ex := Extraction{KeyColumn: keyCol, ValueColumn: valCol}
	if !keyOK {
		ex.Missing = append(ex.Missing, key.Name)
	}
	if !valOK {
		ex.Missing = append(ex.Missing, value.Name)
	}
	if !ex.Resolved() {
		return ex
	}

	var values []string
	for i := range t.Rows {
		if !id.Matches(t.Text(i, keyIdx)) {
			continue
		}
		if v := t.Text(i, valIdx); v != "" {
			values = append(values, v)
		}
	}
	ex.Values = uniqueSorted(values)
	return ex
}

// ExtractWithMemberList behaves like Extract, but when the key column does not
// resolve and the value column does, it falls back to a free-text member-list
// column: a row matches when any token of that cell names the identity.
func ExtractWithMemberList(t tabular.Table, key, value, list Field, id Identity) Extraction {
	ex := Extract(t, key, value, id)
	if ex.KeyColumn != "" || ex.ValueColumn == "" {
		return ex
	}

	listCol, listIdx, ok := t.Resolve(list.Candidates)
	if !ok {
		return ex
	}
	_, valIdx, _ := t.Resolve(value.Candidates)

	var values []string
	for i := range t.Rows {
		if !memberListContains(t.Text(i, listIdx), id) {
			continue
		}
		if v := t.Text(i, valIdx); v != "" {
			values = append(values, v)
		}
	}

	return Extraction{
		Values:      uniqueSorted(values),
		KeyColumn:   listCol,
		ValueColumn: ex.ValueColumn,
		Fallback:    true,
	}
}

// memberListContains splits a free-text member list on ';', ',', '|' and
// whitespace and reports whether any token names the identity.
func memberListContains(cell string, id Identity) bool {
	tokens := strings.FieldsFunc(cell, func(r rune) bool {
		switch r {
		case ';', ',', '|', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	for _, tok := range tokens {
		if id.Matches(tok) {
			return true
		}
	}
	return false
}

// columnValues returns every distinct non-empty value of the first column
// matching field, or nil when none resolves.
func columnValues(t tabular.Table, field Field) []string {
	_, idx, ok := t.Resolve(field.Candidates)
	if !ok {
		return nil
	}
	return uniqueSorted(t.Column(idx))
}

// uniqueSorted drops exact duplicates and sorts case-insensitively. Values
// equal ignoring case are ordered by their original bytes so the result is
// fully deterministic.
func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sortFold(out)
	return out
}

// sortFold sorts in place by lowercase form, then by original bytes.
func sortFold(values []string) {
	sort.Slice(values, func(i, j int) bool {
		li, lj := strings.ToLower(values[i]), strings.ToLower(values[j])
		if li != lj {
			return li < lj
		}
		return values[i] < values[j]
	})
}
