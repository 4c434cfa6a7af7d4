package tabular

import "strings"

// Candidates is an ordered list of acceptable header spellings for one
// logical field, most specific first.
type Candidates []string

// With returns a new list with more appended. The receiver is not modified.
func (c Candidates) With(more ...string) Candidates {
	out := make(Candidates, 0, len(c)+len(more))
	out = append(out, c...)
	return append(out, more...)
}

// Resolve maps candidates onto headers and returns the matching header, its
// index and true. It returns ("", -1, false) when nothing matches.
//
// An exact normalized match for any candidate always beats a containment
// match, so "Name" resolves to a "Name" column even when "GroupName" comes
// first in the table.
func Resolve(headers []string, candidates Candidates) (string, int, bool) {
	if len(headers) == 0 || len(candidates) == 0 {
		return "", -1, false
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = Normalize(h)
	}

	for _, cand := range candidates {
		ck := Normalize(cand)
		if ck == "" {
			continue
		}
		for i, k := range keys {
			if k == ck {
				return headers[i], i, true
			}
		}
	}

	for _, cand := range candidates {
		ck := Normalize(cand)
		if ck == "" {
			continue
		}
		for i, k := range keys {
			if strings.Contains(k, ck) {
				return headers[i], i, true
			}
		}
	}

	return "", -1, false
}
