package core

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Affirmative is the flag value the provisioning scripts expect.
const Affirmative = "SI"

// DeviceSentinel is written after the device row. Operators check for it to
// confirm no computer was moved to the decommissioned OU by mistake.
const DeviceSentinel = "EOF-riga lasciata appositamente scritta così per verificare che nessun PC sia andato nella OU/dismessi/computer"

// IdentityHeader is the column order of the identity modification record.
var IdentityHeader = []string{
	"sAMAccountName", "Creation", "OU", "Name", "DisplayName", "cn",
	"GivenName", "Surname", "employeeNumber", "employeeID", "department",
	"Description", "passwordNeverExpired", "ExpireDate", "userprincipalname",
	"mail", "mobile", "RimozioneGruppo", "InserimentoGruppo", "disable",
	"moveToOU", "telephoneNumber", "company",
}

// DeviceHeader is the column order of the computer reference record.
var DeviceHeader = []string{
	"Computer", "OU", "add_mail", "remove_mail", "add_mobile", "remove_mobile",
	"add_userprincipalname", "remove_userprincipalname", "disable", "moveToOU",
}

// Record is a fixed-schema row. Every slot starts empty.
type Record struct {
	header []string
	values []string
}

func newRecord(header []string) Record {
	return Record{header: header, values: make([]string, len(header))}
}

// NewIdentityRecord returns an empty record with IdentityHeader.
func NewIdentityRecord() Record { return newRecord(IdentityHeader) }

// NewDeviceRecord returns an empty record with DeviceHeader.
func NewDeviceRecord() Record { return newRecord(DeviceHeader) }

func (r Record) index(field string) int {
	for i, h := range r.header {
		if h == field {
			return i
		}
	}
	return -1
}

// Set assigns a slot. It panics on a field outside the schema, which is
// always a programming error.
func (r Record) Set(field, value string) {
	i := r.index(field)
	if i < 0 {
		panic(fmt.Sprintf("core: record has no field %q", field))
	}
	r.values[i] = value
}

// Get returns a slot, or "" for an unknown field.
func (r Record) Get(field string) string {
	if i := r.index(field); i >= 0 {
		return r.values[i]
	}
	return ""
}

// Header returns a copy of the schema.
func (r Record) Header() []string { return append([]string(nil), r.header...) }

// Values returns a copy of the slot values in schema order.
func (r Record) Values() []string { return append([]string(nil), r.values...) }

// Map returns the record keyed by field name.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.header))
	for i, h := range r.header {
		m[h] = r.values[i]
	}
	return m
}

// Export is a generated file: its record, encoded bytes and download name.
type Export struct {
	FileName string
	Record   Record
	CSV      []byte
}

// RemovalField joins groups with ';'. When any group contains a space the
// whole string is wrapped in double quotes so downstream field splitting
// keeps it together.
func RemovalField(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	joined := strings.Join(groups, ";")
	for _, g := range groups {
		if strings.Contains(g, " ") {
			return `"` + joined + `"`
		}
	}
	return joined
}

// IdentityRemovals filters the identity's AD groups for the identity record:
// exclusions and bulk entitlement prefixes are dropped.
func IdentityRemovals(groups []string, ex Exclusions, entitlementPrefixes []string) []string {
	filter := ex.WithPrefixes(entitlementPrefixes...)
	var out []string
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" && !filter.Excluded(g) {
			out = append(out, g)
		}
	}
	return uniqueSorted(out)
}

// buildIdentityExport fills the identity record and encodes it.
func buildIdentityExport(id Identity, removals []string) Export {
	rec := NewIdentityRecord()
	rec.Set("sAMAccountName", id.Handle)
	rec.Set("RimozioneGruppo", RemovalField(removals))
	rec.Set("disable", Affirmative)
	rec.Set("moveToOU", Affirmative)

	return Export{
		FileName: IdentityFileName(id),
		Record:   rec,
		CSV:      EncodeCSV(rec.Header(), rec.Values()),
	}
}

// buildDeviceExport fills the device record and appends the sentinel line.
func buildDeviceExport(id Identity, m DeviceMatch, now time.Time) Export {
	rec := NewDeviceRecord()
	rec.Set("Computer", m.Computer)
	rec.Set("remove_mail", flag(m.RemoveMail))
	rec.Set("remove_mobile", flag(m.RemoveMobile))
	rec.Set("remove_userprincipalname", flag(m.RemoveUPN))

	return Export{
		FileName: DeviceFileName(id, now),
		Record:   rec,
		CSV:      EncodeCSV(rec.Header(), rec.Values(), []string{DeviceSentinel}),
	}
}

// IdentityFileName is "Deprovisioning_<Family>_<G>.csv" for a two-part
// handle and "Deprovisioning_<handle>.csv" otherwise.
func IdentityFileName(id Identity) string {
	parts := strings.Split(id.base(), ".")
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		initial := strings.ToUpper(string([]rune(parts[0])[0]))
		return "Deprovisioning_" + capitalize(parts[1]) + "_" + initial + ".csv"
	}
	return "Deprovisioning_" + id.base() + ".csv"
}

// DeviceFileName is "YYYYMMDD_Computer_riferimenti_remove[Surname].csv".
func DeviceFileName(id Identity, now time.Time) string {
	return now.Format("20060102") + "_Computer_riferimenti_remove[" + id.Surname() + "].csv"
}

// EncodeCSV writes comma-separated rows without quoting. Commas, double
// quotes, backslashes and line breaks inside a field are prefixed with a
// backslash. Rows end with CRLF.
func EncodeCSV(rows ...[]string) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		for i, field := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeEscaped(&buf, field)
		}
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func writeEscaped(buf *bytes.Buffer, field string) {
	for _, r := range field {
		switch r {
		case ',', '"', '\\', '\r', '\n':
			buf.WriteByte('\\')
		}
		buf.WriteRune(r)
	}
}
