package core

import (
	"strings"

	"github.com/JonMunkholm/deprov/internal/tabular"
)

// Exclusions is a case-insensitive list of group names and name prefixes
// that must never be proposed for removal.
type Exclusions struct {
	Names    []string
	Prefixes []string
}

// Excluded reports whether group matches a name or starts with a prefix,
// ignoring case and surrounding whitespace.
func (e Exclusions) Excluded(group string) bool {
	g := strings.ToLower(strings.TrimSpace(group))
	for _, n := range e.Names {
		if g == strings.ToLower(strings.TrimSpace(n)) {
			return true
		}
	}
	for _, p := range e.Prefixes {
		if p != "" && strings.HasPrefix(g, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// WithPrefixes returns a copy of e with extra prefixes.
func (e Exclusions) WithPrefixes(prefixes ...string) Exclusions {
	return Exclusions{
		Names:    append([]string(nil), e.Names...),
		Prefixes: append(append([]string(nil), e.Prefixes...), prefixes...),
	}
}

// Reconcile returns the federated groups that are not already covered by a
// canonical source and are not excluded. The result keeps the federated
// casing and is sorted case-insensitively.
//
// It is a deduplicating delta, not a membership computation: a group that a
// DL, SM or AD removal step already handles must not show up again in the
// generic "remove remaining groups" step.
func Reconcile(entra, canonical []string, ex Exclusions) []string {
	covered := make(map[string]struct{}, len(canonical))
	for _, g := range canonical {
		if g = strings.TrimSpace(g); g != "" {
			covered[strings.ToLower(g)] = struct{}{}
		}
	}

	var subset []string
	for _, g := range entra {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := covered[strings.ToLower(g)]; ok {
			continue
		}
		if ex.Excluded(g) {
			continue
		}
		subset = append(subset, g)
	}
	return uniqueSorted(subset)
}

// CanonicalGroups collects every group name present in the AD membership,
// distribution list and shared mailbox exports, regardless of member. It is
// the surface Reconcile subtracts from the federated groups.
func CanonicalGroups(mg, dl, sm tabular.Table, cat Catalog) []string {
	var all []string
	all = append(all, columnValues(mg, cat.MGGroup)...)
	all = append(all, groupNames(dl, cat)...)
	all = append(all, groupNames(sm, cat)...)
	return uniqueSorted(all)
}

// groupNames reads the group column of a DL or SM export, falling back to a
// generic name column.
func groupNames(t tabular.Table, cat Catalog) []string {
	if vals := columnValues(t, cat.canonicalGroupField()); vals != nil {
		return vals
	}
	return columnValues(t, cat.GenericName)
}
