package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/example/go-primparity/internal/catalog"
	"github.com/example/go-primparity/internal/convert"
	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/onnx"
)

func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export GROUP/NAME",
		Short: "Stage one case and write its graph as an ONNX model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			h, err := findHarness(args[0])
			if err != nil {
				return err
			}

			vals, err := h.Args(harness.NewRNG(lax.Key{Hi: cfg.Harness.SeedHi, Lo: cfg.Harness.SeedLo}))
			if err != nil {
				return fmt.Errorf("%s: arguments: %w", h.FullName(), err)
			}

			avals := make([]lax.Aval, len(vals))
			for i, v := range vals {
				avals[i] = lax.AvalOf(v)
			}

			c := convert.New(graph.NewEvaluator(cfg.Harness.Device), convert.WithOptimize(cfg.Harness.Optimize))

			g, err := c.Stage(h.Name(), h.Fn(), avals)
			if err != nil {
				return fmt.Errorf("%s: stage: %w", h.FullName(), err)
			}

			model, err := onnx.Export(g)
			if err != nil {
				return fmt.Errorf("%s: %w", h.FullName(), err)
			}

			if outPath == "" {
				outPath = h.Name() + ".onnx"
			}

			if err := os.WriteFile(outPath, model, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d nodes)\n", outPath, humanize.Bytes(uint64(len(model))), len(g.Nodes()))

			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default NAME.onnx)")

	return cmd
}

func findHarness(fullName string) (*harness.Harness, error) {
	for _, h := range catalog.All() {
		if h.FullName() == fullName {
			return h, nil
		}
	}

	return nil, fmt.Errorf("unknown case %q (see primparity list --group)", fullName)
}
