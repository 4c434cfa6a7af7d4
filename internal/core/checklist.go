package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Checklist texts. They are what operators paste into the service request,
// so they stay in Italian.
const (
	greetingFormat = "Ciao,\nper %s :"
	warningsHeader = "\n⚠️ Avvisi:"
	bulletIndent   = "   - "

	stepDeliveryRestrictions = "Disabilitare invio ad utente (Message Delivery Restrictions)"
	stepHideFromAddressBook  = "Impostare Hide dalla Rubrica"
	stepDisableMailbox       = "Disabilitare accesso Mailbox (Mailbox features – Disable Protocolli/OWA)"
	stepExtractPSTFormat     = "Estrarre il PST (O365 eDiscovery) da archiviare in %s\\%s (in z7 con psw condivisa)"
	stepRemoveRoles          = "Rimuovere i Ruoli assegnati"
	stepRemoveApplications   = "Rimuovere le applicazioni dall’utenza Azure"
	stepRemoveDL             = "Rimozione abilitazione dalle DL"
	stepDisableAzureAccount  = "Disabilitare l’account di Azure"
	stepRemoveSM             = "Rimozione abilitazione da SM"
	stepRemoveAzureGroups    = "Rimozione gruppi Azure:"
	stepRemovePhoto          = "Cancellare la foto da Azure (se applicabile)"
	stepRemoveWiFi           = "Rimozione Wi-Fi"

	WarnNoDL          = "⚠️ Non sono state trovate DL per l'utente indicato"
	WarnNoSM          = "⚠️ Non sono state trovate SM profilate all'utente indicato"
	WarnNoAzureGroups = "⚠️ Nessun gruppo Azure (file Entra) da rimuovere dopo lo scremamento con DL/MG/SM"
	WarnDLColumns     = "Nel file DL non ho trovato colonne di 'Gruppo' o 'Email/SMTP'."
	WarnSMColumns     = "Nel file SM non ho trovato colonne di 'Member UPN/Email' o 'Nome mailbox/gruppo'."
)

// Step is one numbered checklist line with its optional bullets.
type Step struct {
	Number  int
	Text    string
	Bullets []string
}

// Checklist is the generated offboarding instructions.
type Checklist struct {
	Title    string
	Greeting string
	Steps    []Step
	Warnings []string
}

// Lines renders the checklist body: greeting, numbered steps with bullets,
// then the warnings block when there is one. The title is not included.
func (c Checklist) Lines() []string {
	lines := make([]string, 0, 1+len(c.Steps)*2+len(c.Warnings)+1)
	lines = append(lines, c.Greeting)
	for _, s := range c.Steps {
		lines = append(lines, strconv.Itoa(s.Number)+". "+s.Text)
		for _, b := range s.Bullets {
			lines = append(lines, bulletIndent+b)
		}
	}
	if len(c.Warnings) > 0 {
		lines = append(lines, warningsHeader)
		lines = append(lines, c.Warnings...)
	}
	return lines
}

// String joins Lines with newlines.
func (c Checklist) String() string {
	return strings.Join(c.Lines(), "\n")
}

// checklistFacts are the per-identity facts the stages draw from.
type checklistFacts struct {
	identity    Identity
	archivePath string

	dl, sm       Extraction
	dlRows       bool // DL table had data rows
	smRows       bool
	azureRemoval []string
}

// checklistBuilder numbers steps as they are emitted, so a skipped stage
// never leaves a gap.
type checklistBuilder struct {
	cl Checklist
}

func (b *checklistBuilder) step(text string, bullets ...string) {
	b.cl.Steps = append(b.cl.Steps, Step{
		Number:  len(b.cl.Steps) + 1,
		Text:    text,
		Bullets: bullets,
	})
}

func (b *checklistBuilder) warn(msg string) {
	b.cl.Warnings = append(b.cl.Warnings, msg)
}

// conditional emits the step when bullets is non-empty, else defers warning.
func (b *checklistBuilder) conditional(text string, bullets []string, warning string) {
	if len(bullets) == 0 {
		b.warn(warning)
		return
	}
	b.step(text, bullets...)
}

type checklistStage func(*checklistBuilder, checklistFacts)

// checklistStages is the fixed generation order.
var checklistStages = []checklistStage{
	introStage,
	dlStage,
	azureAccountStage,
	smStage,
	azureGroupsStage,
	closingStage,
}

func introStage(b *checklistBuilder, f checklistFacts) {
	b.step(stepDeliveryRestrictions)
	b.step(stepHideFromAddressBook)
	b.step(stepDisableMailbox)
	b.step(fmt.Sprintf(stepExtractPSTFormat, f.archivePath, f.identity.Email()))
	b.step(stepRemoveRoles)
	b.step(stepRemoveApplications)
}

func dlStage(b *checklistBuilder, f checklistFacts) {
	if f.dlRows && !f.dl.Resolved() {
		b.warn(WarnDLColumns)
	}
	b.conditional(stepRemoveDL, f.dl.Values, WarnNoDL)
}

func azureAccountStage(b *checklistBuilder, _ checklistFacts) {
	b.step(stepDisableAzureAccount)
}

func smStage(b *checklistBuilder, f checklistFacts) {
	if f.smRows && !f.sm.Resolved() {
		b.warn(WarnSMColumns)
	}
	b.conditional(stepRemoveSM, f.sm.Values, WarnNoSM)
}

func azureGroupsStage(b *checklistBuilder, f checklistFacts) {
	b.conditional(stepRemoveAzureGroups, f.azureRemoval, WarnNoAzureGroups)
}

func closingStage(b *checklistBuilder, _ checklistFacts) {
	b.step(stepRemovePhoto)
	b.step(stepRemoveWiFi)
}

// buildChecklist runs every stage in order.
func buildChecklist(title string, f checklistFacts) Checklist {
	b := &checklistBuilder{cl: Checklist{
		Title:    title,
		Greeting: fmt.Sprintf(greetingFormat, f.identity.Email()),
	}}
	for _, stage := range checklistStages {
		stage(b, f)
	}
	return b.cl
}

// Title renders "<prefix> - Family Given", with " (esterno)" appended for
// external identities.
func Title(prefix string, id Identity) string {
	t := prefix + " - " + id.DisplayName()
	if id.External() {
		t += " (esterno)"
	}
	return t
}

// TitlePrefix is the fixed part of the service request title for an
// organization.
func TitlePrefix(organization string) string {
	return "[" + organization + " – SR] Casella di posta - Deprovisioning"
}
