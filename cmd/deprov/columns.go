package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/deprov/internal/core"
)

func newColumnsCommand(a *app) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "columns FILE",
		Short: "Show how an export's headers map to the fields deprov reads",
		Long: `Columns reads the header row of FILE and shows, for each field deprov
looks for in that kind of export, which column was picked. Missing fields
explain the warnings and notices generate reports.

Kinds: dl, sm, mg, entra, device

Example:
  deprov columns --kind mg Estr_MembriGruppi.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := core.ParseSourceKind(kind)
			if !ok {
				return fmt.Errorf("unknown --kind %q (want one of %s)", kind, kindNames())
			}

			t, err := readTable(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%d rows\n\n", k.Label(), len(t.Rows))
			fmt.Fprintln(w, "FIELD\tCOLUMN\tCANDIDATES")
			for _, f := range a.engine().Catalog().Fields(k) {
				column := "(missing)"
				if header, _, ok := t.Resolve(f.Candidates); ok {
					column = header
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, column, strings.Join(f.Candidates, ", "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Export kind: "+kindNames())
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func kindNames() string {
	names := make([]string, len(core.SourceKinds))
	for i, k := range core.SourceKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
