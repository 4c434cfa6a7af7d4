package core

import (
	"errors"
	"strings"
	"time"

	"github.com/JonMunkholm/deprov/internal/tabular"
)

// Defaults used when NewEngine is given no option for them.
const (
	DefaultDomain       = "consip.it"
	DefaultOrganization = "Consip"
	DefaultArchivePath  = `\nasconsip2....\backuppst\03 - backup email cancellate`
)

// ErrEmptyIdentity is returned when no account name was supplied.
var ErrEmptyIdentity = errors.New("identity is empty")

// Sources holds the five exports. A table that was not provided is the zero
// Table.
type Sources struct {
	DL     tabular.Table
	SM     tabular.Table
	MG     tabular.Table
	Entra  tabular.Table
	Device tabular.Table
}

// Table returns the table for kind.
func (s Sources) Table(kind SourceKind) tabular.Table {
	switch kind {
	case SourceDL:
		return s.DL
	case SourceSM:
		return s.SM
	case SourceMG:
		return s.MG
	case SourceEntra:
		return s.Entra
	case SourceDevice:
		return s.Device
	default:
		return tabular.Table{}
	}
}

// Set stores t as the table for kind. Unknown kinds are ignored.
func (s *Sources) Set(kind SourceKind, t tabular.Table) {
	switch kind {
	case SourceDL:
		s.DL = t
	case SourceSM:
		s.SM = t
	case SourceMG:
		s.MG = t
	case SourceEntra:
		s.Entra = t
	case SourceDevice:
		s.Device = t
	}
}

// provided reports whether the operator supplied the export at all, even an
// empty one.
func provided(t tabular.Table) bool {
	return t.Name != "" || len(t.Headers) > 0 || len(t.Rows) > 0
}

// Result is everything generated for one identity.
type Result struct {
	Identity  Identity
	Checklist Checklist

	// Notices are caller-facing messages that are not part of the
	// checklist text (missing MG/Entra columns, no device record).
	Notices []string

	IdentityExport Export
	DeviceExport   *Export // nil when no device record was produced

	DLGroups     []string
	SMGroups     []string
	MGGroups     []string
	EntraGroups  []string
	AzureRemoval []string

	// SMFallback is set when shared mailboxes were matched through the
	// free-text member list instead of a member column.
	SMFallback bool
}

// Engine runs the reconciliation pipeline. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	catalog      Catalog
	domain       string
	organization string
	archivePath  string
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog replaces the default candidate lists and exclusions.
func WithCatalog(c Catalog) Option {
	return func(e *Engine) { e.catalog = c.clone() }
}

// WithDomain sets the mail domain appended to handles.
func WithDomain(domain string) Option {
	return func(e *Engine) {
		if domain != "" {
			e.domain = domain
		}
	}
}

// WithOrganization sets the organization shown in the checklist title.
func WithOrganization(org string) Option {
	return func(e *Engine) {
		if org != "" {
			e.organization = org
		}
	}
}

// WithArchivePath sets the share the PST extraction step points to.
func WithArchivePath(path string) Option {
	return func(e *Engine) {
		if path != "" {
			e.archivePath = path
		}
	}
}

// WithEntitlementPrefixes replaces the catalog's entitlement prefixes. An
// empty list keeps the current ones.
func WithEntitlementPrefixes(prefixes []string) Option {
	return func(e *Engine) {
		if len(prefixes) > 0 {
			e.catalog.EntitlementPrefixes = append([]string(nil), prefixes...)
		}
	}
}

// WithClock sets the clock used for dated file names.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine returns an Engine with the default catalog and settings,
// adjusted by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		catalog:      DefaultCatalog(),
		domain:       DefaultDomain,
		organization: DefaultOrganization,
		archivePath:  DefaultArchivePath,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns a copy of the engine's catalog.
func (e *Engine) Catalog() Catalog {
	return e.catalog.clone()
}

// Identity normalizes a raw account name against the engine's domain.
func (e *Engine) Identity(raw string) Identity {
	return NewIdentity(raw, e.domain)
}

// Run generates the checklist and records for the account named by raw.
// Missing columns and absent tables never fail a run; they surface as
// warnings or notices.
func (e *Engine) Run(raw string, src Sources) (Result, error) {
	id := e.Identity(raw)
	if id.Handle == "" {
		return Result{}, ErrEmptyIdentity
	}
	cat := e.catalog

	res := Result{Identity: id}

	dl := Extract(src.DL, cat.DLEmail, cat.DLGroup, id)
	sm := ExtractWithMemberList(src.SM, cat.SMMember, cat.SMGroup, cat.SMMemberList, id)
	res.DLGroups = dl.Values
	res.SMGroups = sm.Values
	res.SMFallback = sm.Fallback

	mg := Extract(src.MG, cat.MGMember, cat.MGGroup, id)
	if !src.MG.Empty() && !mg.Resolved() {
		res.Notices = append(res.Notices, missingNotice("Nel file 'Estr_MembriGruppi' non ho trovato i campi: ", mg.Missing))
	}
	res.MGGroups = mg.Values

	entra := Extract(src.Entra, cat.EntraMember, cat.EntraGroup, id)
	if !src.Entra.Empty() && !entra.Resolved() {
		res.Notices = append(res.Notices, missingNotice("Nel file 'Entra' mancano i campi: ", entra.Missing))
	}
	res.EntraGroups = entra.Values

	canonical := CanonicalGroups(src.MG, src.DL, src.SM, cat)
	res.AzureRemoval = Reconcile(entra.Values, canonical, cat.Exclusions)

	res.Checklist = buildChecklist(Title(TitlePrefix(e.organization), id), checklistFacts{
		identity:     id,
		archivePath:  e.archivePath,
		dl:           dl,
		sm:           sm,
		dlRows:       !src.DL.Empty(),
		smRows:       !src.SM.Empty(),
		azureRemoval: res.AzureRemoval,
	})

	removals := IdentityRemovals(mg.Values, cat.Exclusions, cat.EntitlementPrefixes)
	res.IdentityExport = buildIdentityExport(id, removals)

	if provided(src.Device) {
		if m, ok := SelectDevice(src.Device, cat, id); ok {
			exp := buildDeviceExport(id, m, e.now())
			res.DeviceExport = &exp
		} else {
			res.Notices = append(res.Notices, NoticeNoDevice)
		}
	}

	return res, nil
}

// NoticeNoDevice is reported when a device export was supplied but no
// record could be built from it.
const NoticeNoDevice = "Nessun dato valido per generare il CSV Device."

func missingNotice(prefix string, missing []string) string {
	return prefix + strings.Join(missing, ", ")
}
