package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/example/go-primparity/internal/catalog"
	"github.com/example/go-primparity/internal/harness"
)

func newListCmd() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List harness groups, or the cases of one group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			hs, err := harness.Select(catalog.All(), cfg.Harness.Filter)
			if err != nil {
				return err
			}

			if group != "" {
				return listCases(cmd.OutOrStdout(), hs, group, cfg.Harness.Device)
			}

			return listGroups(cmd.OutOrStdout(), hs)
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "List the cases of this group with their policy")

	return cmd
}

func listGroups(w io.Writer, hs []*harness.Harness) error {
	counts := map[string]int{}
	for _, h := range hs {
		counts[h.Group()]++
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "GROUP\tCASES")

	for _, g := range harness.Groups(hs) {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", g, humanize.Comma(int64(counts[g])))
	}

	_, _ = fmt.Fprintf(tw, "total\t%s\n", humanize.Comma(int64(len(hs))))

	return tw.Flush()
}

func listCases(w io.Writer, hs []*harness.Harness, group, device string) error {
	table := catalog.Policies()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "CASE\tPOLICY (%s)\n", device)

	n := 0

	for _, h := range hs {
		if h.Group() != group {
			continue
		}

		n++
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", h.Name(), table.Lookup(h, device))
	}

	if n == 0 {
		return fmt.Errorf("no cases in group %q", group)
	}

	return tw.Flush()
}
