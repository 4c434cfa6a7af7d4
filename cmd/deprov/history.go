package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/deprov/internal/audit"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generations from the run history database",
		Long: `History lists the most recent generations recorded by the server and
the CLI. It needs DATABASE_URL to be set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Audit.Enabled() {
				return fmt.Errorf("%w: set DATABASE_URL", audit.ErrHistoryDisabled)
			}

			store, err := audit.Open(cmd.Context(), a.cfg.Audit)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tIDENTITY\tSTEPS\tWARNINGS\tNOTICES\tDEVICE\tSOURCE")
			for _, r := range runs {
				source := r.IPAddress
				if source == "" {
					source = r.UserAgent
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					r.CreatedAt.Local().Format(time.DateTime),
					r.Identity, r.Steps, r.Warnings, r.Notices,
					yesNo(r.DeviceExported), source)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", audit.DefaultListLimit, "Maximum number of runs to show")

	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
