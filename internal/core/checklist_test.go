package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func checklistIdentity() Identity {
	return NewIdentity("mario.rossi", "consip.it")
}

// ============================================================================
// Stage ordering
// ============================================================================

func TestBuildChecklist_SkippedStagesLeaveNoGaps(t *testing.T) {
	cl := buildChecklist("title", checklistFacts{
		identity:    checklistIdentity(),
		archivePath: `\\nas\pst`,
		sm:          Extraction{Values: []string{"Shared-HR"}},
	})

	want := []Step{
		{Number: 1, Text: stepDeliveryRestrictions},
		{Number: 2, Text: stepHideFromAddressBook},
		{Number: 3, Text: stepDisableMailbox},
		{Number: 4, Text: fmt.Sprintf(stepExtractPSTFormat, `\\nas\pst`, "mario.rossi@consip.it")},
		{Number: 5, Text: stepRemoveRoles},
		{Number: 6, Text: stepRemoveApplications},
		{Number: 7, Text: stepDisableAzureAccount},
		{Number: 8, Text: stepRemoveSM, Bullets: []string{"Shared-HR"}},
		{Number: 9, Text: stepRemovePhoto},
		{Number: 10, Text: stepRemoveWiFi},
	}
	if diff := cmp.Diff(want, cl.Steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{WarnNoDL, WarnNoAzureGroups}, cl.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildChecklist_ColumnWarningPrecedesEmptyWarning(t *testing.T) {
	cl := buildChecklist("title", checklistFacts{
		identity:     checklistIdentity(),
		dl:           Extraction{Missing: []string{"group"}},
		dlRows:       true,
		sm:           Extraction{Values: []string{"Shared-HR"}},
		azureRemoval: []string{"Azure-VPN"},
	})

	if diff := cmp.Diff([]string{WarnDLColumns, WarnNoDL}, cl.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if n := len(cl.Steps); n != 11 {
		t.Errorf("got %d steps, want 11", n)
	}
}

// ============================================================================
// Rendering
// ============================================================================

func TestChecklist_Lines(t *testing.T) {
	cl := Checklist{
		Greeting: fmt.Sprintf(greetingFormat, "mario.rossi@consip.it"),
		Steps: []Step{
			{Number: 1, Text: stepRemoveDL, Bullets: []string{"DL-Finance", "DL-Roma"}},
			{Number: 2, Text: stepRemoveWiFi},
		},
		Warnings: []string{WarnNoSM},
	}

	want := []string{
		"Ciao,\nper mario.rossi@consip.it :",
		"1. Rimozione abilitazione dalle DL",
		"   - DL-Finance",
		"   - DL-Roma",
		"2. Rimozione Wi-Fi",
		"\n⚠️ Avvisi:",
		WarnNoSM,
	}
	if diff := cmp.Diff(want, cl.Lines()); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if got := cl.String(); got != strings.Join(want, "\n") {
		t.Errorf("String() = %q", got)
	}
}

func TestChecklist_LinesWithoutWarnings(t *testing.T) {
	cl := Checklist{Greeting: "Ciao", Steps: []Step{{Number: 1, Text: "uno"}}}
	if got := cl.String(); got != "Ciao\n1. uno" {
		t.Errorf("String() = %q", got)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"internal", "mario.rossi", "[Acme – SR] Casella di posta - Deprovisioning - Rossi Mario"},
		{"external", "giulia.bianchi.ext", "[Acme – SR] Casella di posta - Deprovisioning - Bianchi Giulia (esterno)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Title(TitlePrefix("Acme"), NewIdentity(tt.raw, "acme.example"))
			if got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================================
// Run summaries
// ============================================================================

func TestSummarize_ChecksumCoversTitleAndBody(t *testing.T) {
	base := Result{
		Identity:  checklistIdentity(),
		Checklist: Checklist{Title: "A", Greeting: "Ciao", Steps: []Step{{Number: 1, Text: "uno"}}},
	}
	retitled := base
	retitled.Checklist.Title = "B"

	a := Summarize(context.Background(), base, fixedNow)
	again := Summarize(context.Background(), base, fixedNow)
	b := Summarize(context.Background(), retitled, fixedNow)

	if a.ChecklistSHA256 != again.ChecklistSHA256 {
		t.Error("checksum is not deterministic")
	}
	if a.ChecklistSHA256 == b.ChecklistSHA256 {
		t.Error("checksum ignores the title")
	}
	if a.IPAddress != "" || a.UserAgent != "" {
		t.Errorf("request metadata without context values: %+v", a)
	}
	if a.Steps != 1 || a.DeviceExported {
		t.Errorf("summary = %+v", a)
	}
}
