package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/deprov/internal/core"
)

// isolateEnv keeps the host environment from leaking into config.Load.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "DB_URL", "DEPROV_DOMAIN", "DEPROV_ORGANIZATION", "DEPROV_ARCHIVE_PATH", "DEPROV_ENTITLEMENT_PREFIXES"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	isolateEnv(t)

	var outBuf, errBuf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func stubTerminal(t *testing.T, terminal bool, prompt func(string) (string, error)) {
	t.Helper()
	prevTerm, prevPrompt := stdoutIsTerminal, promptIdentity
	stdoutIsTerminal = func() bool { return terminal }
	if prompt != nil {
		promptIdentity = prompt
	}
	t.Cleanup(func() {
		stdoutIsTerminal, promptIdentity = prevTerm, prevPrompt
	})
}

// ============================================================================
// generate
// ============================================================================

func TestGenerate_WritesRecords(t *testing.T) {
	stubTerminal(t, false, nil)
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	dl := writeFile(t, in, "dl.csv", "PrimarySmtpAddress;DisplayName\nmario.rossi@consip.it;DL-Finance\n")
	mg := writeFile(t, in, "gruppi.csv", "Member,Group\nmario.rossi,GRP-Files\nmario.rossi,Domain Users\n")
	device := writeFile(t, in, "device.csv", "Name,Enabled,Description,Mail,Mobile,userPrincipalName\nPC-001,True,Laptop - mario.rossi - Roma,x,,\n")

	stdout, stderr, err := execute(t, "generate", "--user", "mario.rossi", "--dl", dl, "--mg", mg, "--device", device, "--out", out)
	if err != nil {
		t.Fatalf("Execute() error = %v, stderr:\n%s", err, stderr)
	}

	if !strings.HasPrefix(stdout, "[Consip – SR] Casella di posta - Deprovisioning - Rossi Mario\n\nCiao,\n") {
		t.Errorf("stdout does not start with the title and greeting:\n%s", stdout)
	}
	if !strings.Contains(stdout, "   - DL-Finance") {
		t.Errorf("stdout missing DL bullet:\n%s", stdout)
	}

	identity, err := os.ReadFile(filepath.Join(out, "Deprovisioning_Rossi_M.csv"))
	if err != nil {
		t.Fatalf("identity record not written: %v", err)
	}
	if !strings.HasPrefix(string(identity), "sAMAccountName,") || !strings.Contains(string(identity), "GRP-Files,,SI,SI") {
		t.Errorf("identity record = %q", identity)
	}

	dev := readDeviceRecord(t, out)
	if !strings.Contains(dev, "PC-001") || !strings.Contains(dev, core.DeviceSentinel) {
		t.Errorf("device record = %q", dev)
	}

	if !strings.Contains(stderr, "Scritto ") {
		t.Errorf("stderr does not report written files:\n%s", stderr)
	}
}

// readDeviceRecord finds the dated device file in dir.
func readDeviceRecord(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_Computer_riferimenti_remove[Rossi].csv") {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				t.Fatal(err)
			}
			return string(data)
		}
	}
	t.Fatalf("no device record in %s", dir)
	return ""
}

func TestGenerate_NoticesGoToStderr(t *testing.T) {
	stubTerminal(t, false, nil)
	in := t.TempDir()
	mg := writeFile(t, in, "gruppi.csv", "Foo,Bar\nmario.rossi,x\n")
	device := writeFile(t, in, "device.csv", "Name,Description\nPC-9,Desktop - luigi.verdi - Roma\n")

	stdout, stderr, err := execute(t, "generate", "-u", "mario.rossi", "--mg", mg, "--device", device, "--out", t.TempDir())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(stderr, "! Nel file 'Estr_MembriGruppi' non ho trovato i campi: ") {
		t.Errorf("stderr missing MG notice:\n%s", stderr)
	}
	if !strings.Contains(stderr, "! "+core.NoticeNoDevice) {
		t.Errorf("stderr missing device notice:\n%s", stderr)
	}
	if strings.Contains(stdout, "Nel file") {
		t.Errorf("notice leaked into the checklist:\n%s", stdout)
	}
}

func TestGenerate_RequiresUserWithoutTerminal(t *testing.T) {
	stubTerminal(t, false, func(string) (string, error) {
		t.Fatal("prompted without a terminal")
		return "", nil
	})

	_, _, err := execute(t, "generate", "--out", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "--user is required") {
		t.Fatalf("Execute() error = %v, want --user is required", err)
	}
}

func TestGenerate_PromptsInTerminal(t *testing.T) {
	var gotDomain string
	stubTerminal(t, true, func(domain string) (string, error) {
		gotDomain = domain
		return "giulia.bianchi.ext", nil
	})

	stdout, _, err := execute(t, "generate", "--out", t.TempDir())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotDomain != "consip.it" {
		t.Errorf("prompt domain = %q, want consip.it", gotDomain)
	}
	if !strings.HasPrefix(stdout, "[Consip – SR] Casella di posta - Deprovisioning - Bianchi Giulia (esterno)") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestGenerate_PromptAborted(t *testing.T) {
	stubTerminal(t, true, func(string) (string, error) { return "", errAborted })
	out := t.TempDir()

	stdout, stderr, err := execute(t, "generate", "--out", out)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil on abort", err)
	}
	if stdout != "" || !strings.Contains(stderr, "annullata") {
		t.Errorf("stdout = %q, stderr = %q", stdout, stderr)
	}
	if entries, _ := os.ReadDir(out); len(entries) != 0 {
		t.Errorf("files written after abort: %v", entries)
	}
}

func TestGenerate_UnreadableExport(t *testing.T) {
	stubTerminal(t, false, nil)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing file", []string{"--sm", filepath.Join(t.TempDir(), "nope.csv")}, "--sm"},
		{"legacy excel", []string{"--entra", writeFile(t, t.TempDir(), "entra.xls", "x")}, "unsupported file format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"generate", "-u", "mario.rossi", "--out", t.TempDir()}, tt.args...)
			_, _, err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Execute() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestGenerate_DomainFromEnvironment(t *testing.T) {
	stubTerminal(t, false, nil)
	isolateEnv(t)
	t.Setenv("DEPROV_ORGANIZATION", "Acme")

	var outBuf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate", "-u", "mario.rossi", "--out", t.TempDir(), "--env-file", filepath.Join(t.TempDir(), "none.env")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(outBuf.String(), "[Acme – SR]") {
		t.Errorf("stdout = %q", outBuf.String())
	}
}

// ============================================================================
// columns
// ============================================================================

func TestColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "device.csv", "Nome;Abilitato;Descrizione;Mail\nPC-1;True;x;y\nPC-2;False;x;y\n")

	stdout, _, err := execute(t, "columns", "--kind", "Device", path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"Estr_Device", "2 rows", "FIELD", "Abilitato", "Descrizione", "(missing)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	lines := strings.Split(stdout, "\n")
	var nameLine string
	for _, l := range lines {
		if strings.HasPrefix(l, "name ") {
			nameLine = l
		}
	}
	if !strings.Contains(nameLine, "Nome") {
		t.Errorf("name field line = %q, want the Nome column", nameLine)
	}
}

func TestColumns_UnknownKind(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.csv", "a\n1\n")

	_, _, err := execute(t, "columns", "--kind", "ldap", path)
	if err == nil || !strings.Contains(err.Error(), "unknown --kind") {
		t.Fatalf("Execute() error = %v", err)
	}
}

// ============================================================================
// history
// ============================================================================

func TestHistory_Disabled(t *testing.T) {
	_, _, err := execute(t, "history")
	if err == nil || !strings.Contains(err.Error(), "run history disabled") {
		t.Fatalf("Execute() error = %v, want history disabled", err)
	}
}
