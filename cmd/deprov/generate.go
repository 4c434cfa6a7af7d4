package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JonMunkholm/deprov/internal/audit"
	"github.com/JonMunkholm/deprov/internal/core"
	"github.com/JonMunkholm/deprov/internal/tabular"
)

// cliUserAgent identifies CLI runs in the history.
const cliUserAgent = "deprov-cli"

// Swapped in tests.
var (
	stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	promptIdentity   = runIdentityPrompt
)

var errAborted = errors.New("aborted")

func newGenerateCommand(a *app) *cobra.Command {
	var (
		user  string
		out   string
		files = make(map[core.SourceKind]*string, len(core.SourceKinds))
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the checklist and CSV records for one account",
		Long: `Generate reads the exports given as flags (CSV or .xlsx, any subset),
prints the checklist to stdout and writes the identity record, plus the
device record when a computer was matched, into --out.

Notices about unusable exports are printed to stderr.

Examples:
  deprov generate --user mario.rossi --dl dl.csv --sm sm.csv --mg gruppi.csv \
      --entra entra.xlsx --device Estr_Device.xlsx --out ./out

  # Prompts for the account when run in a terminal
  deprov generate --mg gruppi.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make(map[core.SourceKind]string, len(files))
			for kind, p := range files {
				paths[kind] = *p
			}
			return a.runGenerate(cmd, user, paths, out)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Account to deprovision (prompted in a terminal when omitted)")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Directory for the generated CSV files")
	for _, kind := range core.SourceKinds {
		files[kind] = cmd.Flags().String(string(kind), "", kind.Label()+" export (.csv or .xlsx)")
	}

	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, user string, paths map[core.SourceKind]string, outDir string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(user) == "" {
		if !stdoutIsTerminal() {
			return fmt.Errorf("--user is required when not running in a terminal")
		}
		prompted, err := promptIdentity(a.cfg.Deprovisioning.Domain)
		if errors.Is(err, errAborted) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Generazione annullata.")
			return nil
		}
		if err != nil {
			return err
		}
		user = prompted
	}

	var src core.Sources
	for _, kind := range core.SourceKinds {
		path := paths[kind]
		if path == "" {
			continue
		}
		t, err := readTable(path)
		if err != nil {
			return fmt.Errorf("--%s: %w", kind, err)
		}
		src.Set(kind, t)
	}

	recorder, closeRecorder, err := a.recorder(ctx)
	if err != nil {
		return err
	}
	defer closeRecorder()

	ctx = core.ContextWithUserAgent(ctx, cliUserAgent)
	res, err := core.NewService(a.engine(), recorder).Generate(ctx, user, src)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, res.Checklist.Title)
	fmt.Fprintln(w)
	fmt.Fprintln(w, res.Checklist.String())

	for _, n := range res.Notices {
		fmt.Fprintf(cmd.ErrOrStderr(), "! %s\n", n)
	}

	exports := []core.Export{res.IdentityExport}
	if res.DeviceExport != nil {
		exports = append(exports, *res.DeviceExport)
	}
	return writeExports(cmd.ErrOrStderr(), outDir, exports)
}

// recorder opens the run history when a database is configured.
func (a *app) recorder(ctx context.Context) (core.RunRecorder, func(), error) {
	if !a.cfg.Audit.Enabled() {
		return core.NopRecorder{}, func() {}, nil
	}
	store, err := audit.Open(ctx, a.cfg.Audit)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

func readTable(path string) (tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return tabular.Table{}, err
	}
	defer f.Close()
	return tabular.Read(filepath.Base(path), f)
}

func writeExports(log io.Writer, dir string, exports []core.Export) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, e := range exports {
		path := filepath.Join(dir, e.FileName)
		if err := os.WriteFile(path, e.CSV, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", e.FileName, err)
		}
		fmt.Fprintf(log, "Scritto %s\n", path)
	}
	return nil
}

func runIdentityPrompt(domain string) (string, error) {
	var user string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Utente da deprovisionare").
				Description("sAMAccountName, ad esempio nome.cognome oppure nome.cognome@" + domain).
				Value(&user).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("l'utente non può essere vuoto")
					}
					return nil
				}),
		),
	).WithAccessible(os.Getenv("ACCESSIBLE") != "")

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(user), nil
}
