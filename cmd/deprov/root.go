package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/deprov/internal/config"
	"github.com/JonMunkholm/deprov/internal/core"
	"github.com/JonMunkholm/deprov/internal/logging"
)

// app is the state shared by subcommands once the root has loaded the
// configuration.
type app struct {
	envFile string
	cfg     *config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "deprov",
		Short: "Generate mailbox deprovisioning checklists and records",
		Long: `deprov reconciles the DL, SM, Estr_MembriGruppi, Entra and Estr_Device
exports for one account and produces the offboarding checklist together
with the identity and device CSV records.

Settings are read from the environment (and from .env when present), the
same way the web server reads them.

Quick start:
  deprov generate --user mario.rossi --mg gruppi.csv --entra entra.xlsx
  deprov columns --kind device Estr_Device.xlsx
  deprov history --limit 10`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before the configuration")

	cmd.AddCommand(newGenerateCommand(a))
	cmd.AddCommand(newColumnsCommand(a))
	cmd.AddCommand(newHistoryCommand(a))

	return cmd
}

// load reads .env and the configuration and installs a logger on stderr,
// keeping stdout for command output.
func (a *app) load(cmd *cobra.Command) error {
	if _, err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	a.cfg = cfg

	slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))
	return nil
}

func (a *app) engine() *core.Engine {
	d := a.cfg.Deprovisioning
	return core.NewEngine(
		core.WithDomain(d.Domain),
		core.WithOrganization(d.Organization),
		core.WithArchivePath(d.ArchivePath),
		core.WithEntitlementPrefixes(d.EntitlementPrefixes),
	)
}
