package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/example/go-primparity/internal/config"
	"github.com/example/go-primparity/internal/convert"
	"github.com/example/go-primparity/internal/doctor"
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/onnx"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local runtime and catalog checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "backend: %s\n", cfg.Harness.Backend)

			result := doctor.Run(doctorConfig(cfg), w)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(w, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

func doctorConfig(cfg config.Config) doctor.Config {
	return doctor.Config{
		GoVersion: func() (string, error) { return runtime.Version(), nil },
		ORTVersion: func() (string, error) {
			info, err := onnx.DetectRuntime(cfg.Runtime)
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("%s (%s)", info.LibraryPath, info.Version), nil
		},
		SkipORT: cfg.Harness.Backend != config.BackendONNX,
		Device:  cfg.Harness.Device,
		ValidateDevice: func(d string) error {
			if _, err := config.NormalizeDevice(d); err != nil {
				return err
			}

			return lax.SetDevice(d)
		},
		PolicyFile: cfg.Harness.PolicyFile,
		ValidatePolicies: func(path string) error {
			_, err := harness.LoadOverrides(path)
			return err
		},
		Audit: func() (string, error) {
			all := lax.AllPrimitives()
			if err := harness.Audit(all, convert.Default, harness.DefaultExclusions...); err != nil {
				return "", err
			}

			return harness.Check(all, convert.Default, harness.DefaultExclusions...).String(), nil
		},
		CPUFeatures: doctor.CPUFeatures,
	}
}
