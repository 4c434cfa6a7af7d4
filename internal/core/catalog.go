package core

import (
	"github.com/JonMunkholm/deprov/internal/tabular"
)

// SourceKind identifies one of the five exports the tool consumes.
type SourceKind string

const (
	SourceDL     SourceKind = "dl"     // Distribution list membership
	SourceSM     SourceKind = "sm"     // Shared mailbox permissions
	SourceMG     SourceKind = "mg"     // AD group membership (Estr_MembriGruppi)
	SourceEntra  SourceKind = "entra"  // Entra ID group membership
	SourceDevice SourceKind = "device" // Computer inventory (Estr_Device)
)

// SourceKinds lists every source in the order forms and reports show them.
var SourceKinds = []SourceKind{SourceDL, SourceSM, SourceMG, SourceEntra, SourceDevice}

// Label returns the name operators know the export by.
func (k SourceKind) Label() string {
	switch k {
	case SourceDL:
		return "DL"
	case SourceSM:
		return "SM"
	case SourceMG:
		return "Estr_MembriGruppi"
	case SourceEntra:
		return "Entra"
	case SourceDevice:
		return "Estr_Device"
	default:
		return string(k)
	}
}

// ParseSourceKind maps a user-supplied kind name to a SourceKind.
func ParseSourceKind(s string) (SourceKind, bool) {
	for _, k := range SourceKinds {
		if string(k) == tabular.Fold(s) {
			return k, true
		}
	}
	return "", false
}

// Field is one logical column of a source: a stable name used in warnings
// and the header spellings that may carry it.
type Field struct {
	Name       string
	Candidates tabular.Candidates
}

// Catalog holds every candidate list and exclusion rule the engine uses.
// It is plain data: build one with DefaultCatalog, adjust it, and hand it to
// NewEngine. The engine keeps its own copy.
type Catalog struct {
	MGMember Field
	MGGroup  Field

	DLGroup Field
	DLEmail Field

	SMMember     Field
	SMGroup      Field
	SMMemberList Field // free-text member lists, used when SMMember is absent

	EntraMember Field
	EntraGroup  Field

	DeviceEnabled     Field
	DeviceDescription Field
	DeviceName        Field
	DeviceMail        Field
	DeviceMobile      Field
	DeviceUPN         Field

	// GenericName is the last-resort group column for DL/SM tables.
	GenericName Field

	// Exclusions never appear in any removal list.
	Exclusions Exclusions

	// EntitlementPrefixes additionally filter the identity record removal
	// field (bulk licensing groups handled by their own process).
	EntitlementPrefixes []string
}

// DefaultCatalog returns the EN/IT candidate lists for the standard exports.
// Each call returns a fresh value.
func DefaultCatalog() Catalog {
	return Catalog{
		MGMember: Field{Name: "member", Candidates: tabular.Candidates{
			"Member", "Membro",
			"MemberSamAccountName", "MembroSamAccountName",
			"SamAccountName", "sAMAccountName",
			"MemberUserPrincipalName", "UserPrincipalNameMembro",
			"userPrincipalName", "UPN",
		}},
		MGGroup: Field{Name: "group", Candidates: tabular.Candidates{
			"Group", "Gruppo",
			"GroupName", "NomeGruppo",
			"DisplayName", "NomeVisualizzato",
			"cn", "CN", "Name", "Nome",
		}},

		DLGroup: Field{Name: "group", Candidates: tabular.Candidates{
			"Distribution Group", "Gruppo di distribuzione",
			"Group", "Gruppo",
			"GroupName", "NomeGruppo",
			"DisplayName", "Nome", "NomeVisualizzato",
		}},
		DLEmail: Field{Name: "email", Candidates: tabular.Candidates{
			"SMTP", "PrimarySmtpAddress",
			"Email", "E-mail", "Mail", "Posta", "Indirizzo email", "Indirizzo SMTP",
		}},

		SMMember: Field{Name: "member", Candidates: tabular.Candidates{
			"MemberUserPrincipalName", "UserPrincipalNameMembro",
			"userPrincipalName", "UPN",
			"MemberEmail", "EmailMembro", "Member Mail", "Email",
		}},
		SMGroup: Field{Name: "mailbox", Candidates: tabular.Candidates{
			"Group", "Gruppo",
			"DisplayName", "Nome", "NomeVisualizzato",
			"Mailbox", "SharedMailbox", "Cassetta postale", "Casella condivisa",
			"PrimarySmtpAddress", "SMTP", "Email",
		}},
		SMMemberList: Field{Name: "members", Candidates: tabular.Candidates{
			"Members", "Membri",
			"MemberList", "ListaMembri",
			"Users", "Utenti",
			"FullAccess", "AccessoCompleto",
		}},

		EntraMember: Field{Name: "member_upn", Candidates: tabular.Candidates{
			"MemberUserPrincipalName", "UserPrincipalNameMembro",
			"userPrincipalName", "UPN",
			"Email", "E-mail",
		}},
		EntraGroup: Field{Name: "group_name", Candidates: tabular.Candidates{
			"GroupName", "NomeGruppo",
			"DisplayName", "Nome", "NomeVisualizzato",
			"Group", "Gruppo",
		}},

		DeviceEnabled:     Field{Name: "enabled", Candidates: tabular.Candidates{"Enabled", "Abilitato"}},
		DeviceDescription: Field{Name: "description", Candidates: tabular.Candidates{"Description", "Descrizione"}},
		DeviceName:        Field{Name: "name", Candidates: tabular.Candidates{"Name", "Nome", "Computer", "NomeComputer"}},
		DeviceMail:        Field{Name: "mail", Candidates: tabular.Candidates{"Mail", "Email", "E-mail", "Posta"}},
		DeviceMobile:      Field{Name: "mobile", Candidates: tabular.Candidates{"Mobile", "Cellulare", "Telefono", "Phone"}},
		DeviceUPN:         Field{Name: "userprincipalname", Candidates: tabular.Candidates{"userPrincipalName", "UPN", "NomePrincipaleUtente"}},

		GenericName: Field{Name: "name", Candidates: tabular.Candidates{"Name", "Nome", "DisplayName", "NomeVisualizzato"}},

		Exclusions: Exclusions{
			Names: []string{
				"domain users", "utenti del dominio",
				"everyone",
				"o365 copilot plus", "o365 teams premium",
			},
		},
		EntitlementPrefixes: []string{"o365 ", "o365_", "o365-"},
	}
}

// Fields returns the logical fields the engine looks for in a source kind,
// in lookup order.
func (c Catalog) Fields(kind SourceKind) []Field {
	switch kind {
	case SourceDL:
		return []Field{c.DLEmail, c.DLGroup}
	case SourceSM:
		return []Field{c.SMMember, c.SMGroup, c.SMMemberList}
	case SourceMG:
		return []Field{c.MGMember, c.MGGroup}
	case SourceEntra:
		return []Field{c.EntraMember, c.EntraGroup}
	case SourceDevice:
		return []Field{c.DeviceEnabled, c.DeviceDescription, c.DeviceName, c.DeviceMail, c.DeviceMobile, c.DeviceUPN}
	default:
		return nil
	}
}

// canonicalGroupField is the combined lookup used to collect every group
// name of a DL or SM export.
func (c Catalog) canonicalGroupField() Field {
	cands := c.DLGroup.Candidates.With(c.MGGroup.Candidates...)
	return Field{Name: "group", Candidates: cands.With(c.SMGroup.Candidates...)}
}

// clone deep-copies the slices so a caller mutating its Catalog after
// NewEngine cannot affect a running engine.
func (c Catalog) clone() Catalog {
	fields := []*Field{
		&c.MGMember, &c.MGGroup, &c.DLGroup, &c.DLEmail,
		&c.SMMember, &c.SMGroup, &c.SMMemberList,
		&c.EntraMember, &c.EntraGroup,
		&c.DeviceEnabled, &c.DeviceDescription, &c.DeviceName,
		&c.DeviceMail, &c.DeviceMobile, &c.DeviceUPN,
		&c.GenericName,
	}
	for _, f := range fields {
		f.Candidates = f.Candidates.With()
	}
	c.Exclusions = Exclusions{
		Names:    append([]string(nil), c.Exclusions.Names...),
		Prefixes: append([]string(nil), c.Exclusions.Prefixes...),
	}
	c.EntitlementPrefixes = append([]string(nil), c.EntitlementPrefixes...)
	return c
}
