package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-primparity/internal/config"
	"github.com/example/go-primparity/internal/harness"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"list", "audit", "run", "export", "doctor", "version"}
	for _, name := range want {
		found := false

		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q not found in root", name)
		}
	}
}

func TestNewRootCmd_HasPersistentFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "harness-device", "harness-filter", "log-format"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag to be registered", name)
		}
	}
}

func TestSetupLogger_DoesNotPanic(_ *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "not-a-level"} {
		for _, format := range []string{"text", "json"} {
			setupLogger(&bytes.Buffer{}, level, format)
		}
	}
}

func TestSetupLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	setupLogger(&buf, "info", "json")
	t.Cleanup(func() { setupLogger(os.Stderr, "info", "text") })

	slog.Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", buf.String(), err)
	}

	if line["msg"] != "hello" {
		t.Errorf("unexpected msg: %v", line["msg"])
	}
}

func TestRequireConfig_FailsWhenNotInitialized(t *testing.T) {
	origCfg, origLoaded := activeCfg, cfgLoaded

	t.Cleanup(func() { activeCfg, cfgLoaded = origCfg, origLoaded })

	activeCfg, cfgLoaded = config.Config{}, false

	if _, err := requireConfig(); err == nil {
		t.Fatal("expected error when config is not loaded")
	}
}

func TestList_Groups(t *testing.T) {
	out, err := execute(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	for _, want := range []string{"GROUP", "svd", "type_promotion", "total"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestList_GroupShowsPolicies(t *testing.T) {
	out, err := execute(t, "list", "--group", "nextafter")
	if err != nil {
		t.Fatalf("list --group: %v", err)
	}

	if !strings.Contains(out, "nextafter_float32_3") || !strings.Contains(out, "expect target error") {
		t.Errorf("unexpected list output:\n%s", out)
	}

	if _, err := execute(t, "list", "--group", "no_such_group"); err == nil {
		t.Error("expected error for an unknown group")
	}
}

func TestAudit(t *testing.T) {
	out, err := execute(t, "audit")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}

	if !strings.Contains(out, "not yet implemented: argmax") {
		t.Errorf("audit output should list not yet implemented primitives:\n%s", out)
	}
}

func TestRun_WritesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t, "run", "--no-progress", "--harness-filter", "^(clamp|nextafter)/", "--harness-report-path", path)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	if !strings.Contains(out, "clamp") {
		t.Errorf("run output should mention the clamp group:\n%s", out)
	}

	report, err := harness.LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}

	if report.Summary.Failed != 0 || report.Summary.Expected == 0 || report.Summary.Passed == 0 {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}
}

func TestRun_EmptyFilterSelectionFails(t *testing.T) {
	if _, err := execute(t, "run", "--no-progress", "--harness-filter", "^nothing$"); err == nil {
		t.Fatal("expected error when the filter selects no cases")
	}
}

func TestExport_WritesModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "add.onnx")

	out, err := execute(t, "export", "add_mul/add_float32_2x3", "--out", path)
	if err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if info.Size() == 0 {
		t.Error("exported model is empty")
	}

	if _, err := execute(t, "export", "add_mul/nope"); err == nil {
		t.Error("expected error for an unknown case")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}

	if !strings.HasPrefix(out, "primparity ") {
		t.Errorf("unexpected version output %q", out)
	}
}
