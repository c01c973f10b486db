// Package doctor provides environment preflight checks for primparity.
package doctor

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// GoVersion returns the runtime version, e.g. "go1.25.0".
	GoVersion VersionFunc
	// ORTVersion returns the detected ONNX Runtime library and version.
	ORTVersion VersionFunc
	// SkipORT skips the ONNX Runtime check (graph backend).
	SkipORT bool
	// Device is the configured device name.
	Device string
	// ValidateDevice rejects unknown device names.
	ValidateDevice func(string) error
	// PolicyFile is an optional overrides file to verify on disk.
	PolicyFile string
	// ValidatePolicies parses PolicyFile when set.
	ValidatePolicies func(path string) error
	// Audit runs the coverage audit and returns its one-line summary.
	Audit func() (string, error)
	// CPUFeatures lists the SIMD features of the host.
	CPUFeatures func() []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- Go runtime -------------------------------------------------------
	if cfg.GoVersion != nil {
		ver, err := cfg.GoVersion()
		if err == nil {
			err = checkGoVersion(ver)
		}

		if err != nil {
			res.fail(fmt.Sprintf("go version: %v", err))
			fmt.Fprintf(w, "%s go version %s: %v\n", FailMark, ver, err)
		} else {
			fmt.Fprintf(w, "%s go version: %s\n", PassMark, ver)
		}
	}

	// ---- device -----------------------------------------------------------
	if cfg.ValidateDevice != nil {
		if err := cfg.ValidateDevice(cfg.Device); err != nil {
			res.fail(fmt.Sprintf("device %q: %v", cfg.Device, err))
			fmt.Fprintf(w, "%s device %s: %v\n", FailMark, cfg.Device, err)
		} else {
			fmt.Fprintf(w, "%s device: %s\n", PassMark, cfg.Device)
		}
	}

	// ---- ONNX Runtime -----------------------------------------------------
	switch {
	case cfg.SkipORT:
		fmt.Fprintf(w, "%s onnx runtime: skipped\n", PassMark)
	case cfg.ORTVersion != nil:
		ver, err := cfg.ORTVersion()
		if err != nil {
			res.fail(fmt.Sprintf("onnx runtime: %v", err))
			fmt.Fprintf(w, "%s onnx runtime: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s onnx runtime: %s\n", PassMark, ver)
		}
	}

	// ---- policy overrides -------------------------------------------------
	if cfg.PolicyFile != "" {
		if _, err := os.Stat(cfg.PolicyFile); err != nil {
			res.fail(fmt.Sprintf("policy file %q: %v", cfg.PolicyFile, err))
			fmt.Fprintf(w, "%s policy file %s: not found\n", FailMark, cfg.PolicyFile)
		} else {
			fmt.Fprintf(w, "%s policy file: %s\n", PassMark, cfg.PolicyFile)

			if cfg.ValidatePolicies != nil {
				if err := cfg.ValidatePolicies(cfg.PolicyFile); err != nil {
					res.fail(fmt.Sprintf("policy file validation: %v", err))
					fmt.Fprintf(w, "%s policy file validation: %v\n", FailMark, err)
				} else {
					fmt.Fprintf(w, "%s policy file validation: ok\n", PassMark)
				}
			}
		}
	}

	// ---- coverage audit ---------------------------------------------------
	if cfg.Audit != nil {
		summary, err := cfg.Audit()
		if err != nil {
			res.fail(fmt.Sprintf("coverage audit: %v", err))
			fmt.Fprintf(w, "%s coverage audit: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s coverage audit: %s\n", PassMark, summary)
		}
	}

	// Informational only.
	if cfg.CPUFeatures != nil {
		features := cfg.CPUFeatures()
		if len(features) == 0 {
			fmt.Fprintf(w, "%s cpu features: none detected\n", PassMark)
		} else {
			fmt.Fprintf(w, "%s cpu features: %s\n", PassMark, strings.Join(features, " "))
		}
	}

	return res
}

// checkGoVersion returns an error if ver is older than go1.22, which scopes
// loop variables per iteration.
func checkGoVersion(ver string) error {
	major, minor, err := parseMajorMinor(strings.TrimPrefix(ver, "go"))
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major != 1 {
		return fmt.Errorf("requires Go 1, got %d", major)
	}
	if minor < 22 {
		return fmt.Errorf("requires Go >=1.22, got 1.%d", minor)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	// Development builds report e.g. "go1.26rc1".
	minorPart := parts[1]
	if i := strings.IndexFunc(minorPart, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		minorPart = minorPart[:i]
	}
	minor, err = strconv.Atoi(minorPart)
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
