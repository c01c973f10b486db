package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/go-primparity/internal/convert"
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
)

func newAuditCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check that every primitive is translated or marked as not yet translated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			cov := harness.Check(lax.AllPrimitives(), convert.Default, harness.DefaultExclusions...)

			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")

				if err := enc.Encode(cov); err != nil {
					return err
				}
			} else {
				_, _ = fmt.Fprintln(w, cov)

				if len(cov.NotYetImplemented) > 0 {
					_, _ = fmt.Fprintf(w, "not yet implemented: %s\n", strings.Join(cov.NotYetImplemented, ", "))
				}
			}

			return harness.Audit(lax.AllPrimitives(), convert.Default, harness.DefaultExclusions...)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the coverage as JSON")

	return cmd
}
