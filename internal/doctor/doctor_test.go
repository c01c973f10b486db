package doctor_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-primparity/internal/doctor"
)

// ---------------------------------------------------------------------------
// all-pass scenario
// ---------------------------------------------------------------------------

func TestRun_AllChecksPass(t *testing.T) {
	cfg := doctor.Config{
		GoVersion:      func() (string, error) { return "go1.25.0", nil },
		ORTVersion:     func() (string, error) { return "/usr/lib/libonnxruntime.so (1.23.0)", nil },
		Device:         "cpu",
		ValidateDevice: func(string) error { return nil },
		Audit:          func() (string, error) { return "70 implemented", nil },
		CPUFeatures:    func() []string { return []string{"avx2", "fma"} },
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}

	for _, want := range []string{"go version: go1.25.0", "onnx runtime", "device: cpu", "coverage audit: 70 implemented", "cpu features: avx2 fma"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output should contain %q; got:\n%s", want, out.String())
		}
	}
}

// ---------------------------------------------------------------------------
// ONNX Runtime
// ---------------------------------------------------------------------------

func TestRun_ORTMissingFails(t *testing.T) {
	cfg := doctor.Config{
		ORTVersion: func() (string, error) { return "", errLibraryNotFound },
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure when the ONNX Runtime library is not found")
	}

	if !hasFailureContaining(result.Failures(), "onnx runtime") {
		t.Errorf("expected failure mentioning onnx runtime, got: %v", result.Failures())
	}
}

func TestRun_SkipORT(t *testing.T) {
	cfg := doctor.Config{
		SkipORT:    true,
		ORTVersion: func() (string, error) { return "", errLibraryNotFound },
	}

	var out strings.Builder

	result := doctor.Run(cfg, &out)
	if result.Failed() {
		t.Fatalf("expected no failures when the ORT check is skipped, got: %v", result.Failures())
	}

	if !strings.Contains(out.String(), "onnx runtime: skipped") {
		t.Fatalf("expected onnx runtime skipped output, got:\n%s", out.String())
	}
}

// ---------------------------------------------------------------------------
// Go version
// ---------------------------------------------------------------------------

func TestRun_GoVersion(t *testing.T) {
	tests := []struct {
		ver     string
		wantErr bool
	}{
		{"go1.22.0", false},
		{"go1.25.0", false},
		{"go1.26rc1", false},
		{"go1.21.5", true},
		{"go2.0.0", true},
		{"devel", true},
	}

	for _, tt := range tests {
		t.Run(tt.ver, func(t *testing.T) {
			cfg := doctor.Config{GoVersion: func() (string, error) { return tt.ver, nil }}

			var out strings.Builder

			result := doctor.Run(cfg, &out)
			if result.Failed() != tt.wantErr {
				t.Fatalf("Go %s: failed=%v, want %v (%v)", tt.ver, result.Failed(), tt.wantErr, result.Failures())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// device and policy file
// ---------------------------------------------------------------------------

func TestRun_BadDeviceFails(t *testing.T) {
	cfg := doctor.Config{
		Device:         "fpga",
		ValidateDevice: func(string) error { return sentinelError("unknown device") },
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "device") {
		t.Errorf("expected failure mentioning device, got: %v", result.Failures())
	}
}

func TestRun_MissingPolicyFileFails(t *testing.T) {
	cfg := doctor.Config{PolicyFile: "/nonexistent/policies.yaml"}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "policy file") {
		t.Errorf("expected failure mentioning policy file, got: %v", result.Failures())
	}
}

func TestRun_ValidatePolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	if err := os.WriteFile(path, []byte("[]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		name    string
		err     error
		wantOut string
	}{
		{"ok", nil, "validation: ok"},
		{"bad", sentinelError("unknown action"), "unknown action"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := doctor.Config{
				PolicyFile:       path,
				ValidatePolicies: func(string) error { return tt.err },
			}

			var out strings.Builder

			result := doctor.Run(cfg, &out)
			if result.Failed() != (tt.err != nil) {
				t.Fatalf("failed=%v, want %v", result.Failed(), tt.err != nil)
			}

			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output should contain %q; got:\n%s", tt.wantOut, out.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// coverage audit
// ---------------------------------------------------------------------------

func TestRun_AuditDriftFails(t *testing.T) {
	cfg := doctor.Config{
		Audit: func() (string, error) { return "", sentinelError("1 missing") },
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "coverage audit") {
		t.Errorf("expected failure mentioning coverage audit, got: %v", result.Failures())
	}
}

// ---------------------------------------------------------------------------
// colour-coded output
// ---------------------------------------------------------------------------

func TestRun_OutputContainsPassAndFailMarkers(t *testing.T) {
	cfg := doctor.Config{
		GoVersion:  func() (string, error) { return "go1.25.0", nil },
		ORTVersion: func() (string, error) { return "", errLibraryNotFound },
	}

	var out strings.Builder
	doctor.Run(cfg, &out)

	body := out.String()
	if !strings.Contains(body, doctor.PassMark) {
		t.Errorf("output missing pass marker %q:\n%s", doctor.PassMark, body)
	}

	if !strings.Contains(body, doctor.FailMark) {
		t.Errorf("output missing fail marker %q:\n%s", doctor.FailMark, body)
	}
}

func TestCPUFeaturesDoesNotPanic(t *testing.T) {
	for _, f := range doctor.CPUFeatures() {
		if f == "" {
			t.Error("empty feature name")
		}
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

var errLibraryNotFound = sentinelError("library not found")

func hasFailureContaining(failures []string, substr string) bool {
	substr = strings.ToLower(substr)
	for _, f := range failures {
		if strings.Contains(strings.ToLower(f), substr) {
			return true
		}
	}

	return false
}
