package core

import (
	"regexp"

	"github.com/JonMunkholm/deprov/internal/tabular"
)

// DeviceMatch is the computer assigned to an identity and the attributes
// that must be cleared from it.
type DeviceMatch struct {
	Computer     string
	RemoveMail   bool
	RemoveMobile bool
	RemoveUPN    bool
}

// Any reports whether at least one attribute needs clearing.
func (d DeviceMatch) Any() bool {
	return d.RemoveMail || d.RemoveMobile || d.RemoveUPN
}

// ParseEnabled evaluates an "enabled" cell. Native bools are taken as is;
// text accepts true, 1, yes, si and sì in any case.
func ParseEnabled(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case nil:
		return false
	}

	switch tabular.Fold(tabular.Text(v)) {
	case "true", "1", "yes", "si", "sì":
		return true
	default:
		return false
	}
}

// devicePattern matches descriptions of the form "... - <handle> - ...".
func devicePattern(id Identity) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s-\s` + regexp.QuoteMeta(id.Handle) + `\s-\s`)
}

// SelectDevice finds the first enabled computer whose description names the
// identity. ok is false when the table lacks the enabled, description or
// name column, when nothing matches, or when the matched row has no mail,
// mobile or principal name to clear.
func SelectDevice(t tabular.Table, cat Catalog, id Identity) (DeviceMatch, bool) {
	if t.Empty() || id.Handle == "" {
		return DeviceMatch{}, false
	}

	_, enabledIdx, ok := t.Resolve(cat.DeviceEnabled.Candidates)
	if !ok {
		return DeviceMatch{}, false
	}
	_, descIdx, descOK := t.Resolve(cat.DeviceDescription.Candidates)
	_, nameIdx, nameOK := t.Resolve(cat.DeviceName.Candidates)
	if !descOK || !nameOK {
		return DeviceMatch{}, false
	}
	_, mailIdx, _ := t.Resolve(cat.DeviceMail.Candidates)
	_, mobileIdx, _ := t.Resolve(cat.DeviceMobile.Candidates)
	_, upnIdx, _ := t.Resolve(cat.DeviceUPN.Candidates)

	pattern := devicePattern(id)
	for i := range t.Rows {
		if !ParseEnabled(t.Cell(i, enabledIdx)) {
			continue
		}
		if !pattern.MatchString(tabular.Text(t.Cell(i, descIdx))) {
			continue
		}

		// The first matching row decides, even when it has nothing to clear.
		m := DeviceMatch{
			Computer:     t.Text(i, nameIdx),
			RemoveMail:   t.Text(i, mailIdx) != "",
			RemoveMobile: t.Text(i, mobileIdx) != "",
			RemoveUPN:    t.Text(i, upnIdx) != "",
		}
		return m, m.Any()
	}
	return DeviceMatch{}, false
}

// flag renders a presence flag as it appears in exported records.
func flag(b bool) string {
	if b {
		return Affirmative
	}
	return ""
}

