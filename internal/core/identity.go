package core

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/deprov/internal/tabular"
)

// ExternalSuffix marks contractor accounts, e.g. "mario.rossi.ext".
const ExternalSuffix = ".ext"

// Identity is the account being deprovisioned.
type Identity struct {
	Handle string // sAMAccountName, lowercased and trimmed
	Domain string // mail domain, lowercased
}

// NewIdentity normalizes a raw account name. A domain part typed by the
// operator ("mario.rossi@consip.it") is dropped in favor of domain.
func NewIdentity(raw, domain string) Identity {
	handle := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(handle, '@'); i >= 0 {
		handle = handle[:i]
	}
	return Identity{
		Handle: handle,
		Domain: strings.ToLower(strings.TrimSpace(domain)),
	}
}

// Email returns handle@domain, or the bare handle when no domain is set.
func (id Identity) Email() string {
	if id.Domain == "" {
		return id.Handle
	}
	return id.Handle + "@" + id.Domain
}

// External reports whether the handle carries the contractor marker.
func (id Identity) External() bool {
	return strings.HasSuffix(id.Handle, ExternalSuffix)
}

// base is the handle without the contractor marker.
func (id Identity) base() string {
	return strings.TrimSuffix(id.Handle, ExternalSuffix)
}

// Names splits the handle on its first '.' into given and family name.
// ok is false when the handle has no separator or either part is empty.
func (id Identity) Names() (given, family string, ok bool) {
	given, family, found := strings.Cut(id.base(), ".")
	if !found || given == "" || family == "" {
		return "", "", false
	}
	return given, family, true
}

// DisplayName renders "Family Given" with capitalized parts, or the
// capitalized handle when it cannot be split.
func (id Identity) DisplayName() string {
	given, family, ok := id.Names()
	if !ok {
		return capitalize(id.base())
	}
	return capitalize(family) + " " + capitalize(given)
}

// Surname is the capitalized family part used in file names: the first
// dot-separated segment after the given name.
func (id Identity) Surname() string {
	_, family, ok := id.Names()
	if !ok {
		return capitalize(id.base())
	}
	first, _, _ := strings.Cut(family, ".")
	return capitalize(first)
}

// Matches reports whether a key cell refers to this identity, either as the
// bare handle or as handle@domain.
func (id Identity) Matches(key string) bool {
	k := tabular.Fold(key)
	if k == "" {
		return false
	}
	return k == id.Handle || k == id.Email()
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
