package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/example/go-primparity/internal/catalog"
	"github.com/example/go-primparity/internal/config"
	"github.com/example/go-primparity/internal/convert"
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/onnx"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// errRunFailed is returned when at least one case failed.
var errRunFailed = errors.New("primparity: run had failures")

func newRunCmd() *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the harness catalog and report verdicts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var progress io.Writer = os.Stderr
			if noProgress {
				progress = nil
			}

			return runCatalog(ctx, cfg, cmd.OutOrStdout(), progress)
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not draw a progress bar")

	return cmd
}

func runCatalog(ctx context.Context, cfg config.Config, out, progress io.Writer) error {
	hs, err := harness.Select(catalog.All(), cfg.Harness.Filter)
	if err != nil {
		return err
	}

	if len(hs) == 0 {
		return fmt.Errorf("filter %q selects no cases", cfg.Harness.Filter)
	}

	var overrides []harness.Override
	if cfg.Harness.PolicyFile != "" {
		overrides, err = harness.LoadOverrides(cfg.Harness.PolicyFile)
		if err != nil {
			return err
		}
	}

	if cfg.Runtime.Threads > 0 {
		tensor.SetWorkers(cfg.Runtime.Threads)
	}

	modes, err := buildModes(cfg)
	if err != nil {
		return err
	}

	seed := lax.Key{Hi: cfg.Harness.SeedHi, Lo: cfg.Harness.SeedLo}
	d := &harness.Driver{
		Engine:    harness.NewEngine(harness.WithModes(modes...)),
		Policies:  catalog.Policies(),
		Device:    cfg.Harness.Device,
		RNG:       harness.NewRNG(seed),
		Overrides: overrides,
	}

	slog.Info("running catalog", "cases", len(hs), "device", d.Device, "backend", cfg.Harness.Backend, "seed", seed.String())

	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions(len(hs),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription(cfg.Harness.Device),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
		)
	}

	started := time.Now()

	results, runErr := d.Run(ctx, hs, func(r harness.Result) {
		if bar != nil {
			_ = bar.Add(1)
		}

		if r.Verdict == harness.VerdictFail {
			slog.Debug("case failed", "case", r.Group+"/"+r.Name, "error", r.Error)
		}
	})

	if bar != nil {
		_ = bar.Finish()
	}

	report := harness.NewReport(d.Device, cfg.Harness.Backend, seed, started, results)

	if err := report.WriteText(out); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "%s cases in %s\n", humanize.Comma(int64(len(results))), time.Since(started).Round(time.Millisecond))

	if cfg.Harness.ReportPath != "" {
		if err := harness.SaveReport(cfg.Harness.ReportPath, report); err != nil {
			return err
		}

		slog.Info("report written", "path", cfg.Harness.ReportPath, "run_id", report.RunID)
	}

	if runErr != nil {
		return runErr
	}

	if report.Summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errRunFailed, report.Summary.Failed, report.Summary.Total)
	}

	return nil
}

// buildModes returns the execution modes of the configured backend. The
// onnx backend adds a non-strict ORT mode next to the evaluator, which stays
// the mode policies speak about.
func buildModes(cfg config.Config) ([]harness.Mode, error) {
	device := cfg.Harness.Device

	modes := []harness.Mode{harness.GraphMode(device, convert.Default)}
	if cfg.Harness.Optimize {
		modes = append(modes, harness.OptimizedMode(device, convert.Default))
	}

	if cfg.Harness.Backend != config.BackendONNX {
		return modes, nil
	}

	info, err := onnx.Bootstrap(cfg.Runtime)
	if err != nil {
		return nil, err
	}

	exec, err := onnx.NewExecutor(onnx.RunnerConfig{
		LibraryPath: info.LibraryPath,
		APIVersion:  cfg.Runtime.ORTAPIVersion,
	}, onnx.WithLogger(slog.Default()))
	if err != nil {
		return nil, err
	}

	slog.Info("onnx runtime ready", "library", info.LibraryPath, "version", info.Version)

	ignore := func(err error) bool { return errors.Is(err, onnx.ErrUnsupported) }
	c := convert.New(exec, convert.WithLogger(slog.Default()))

	return append(modes, harness.ConverterMode(config.BackendONNX, c, false, ignore)), nil
}
