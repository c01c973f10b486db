package onnx

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/example/go-primparity/internal/config"
)

func resetRuntimeStateForTest() {
	bootstrapOnce = sync.Once{}
	bootstrapInfo = RuntimeInfo{}
	errBootstrap = nil
}

func TestDetectRuntimePrefersPRIMPARITYORTLIB(t *testing.T) {
	tmp := t.TempDir()
	lib := filepath.Join(tmp, "libonnxruntime.so.1.23.2")
	if err := os.WriteFile(lib, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake lib: %v", err)
	}

	t.Setenv("PRIMPARITY_ORT_LIB", lib)
	t.Setenv("ORT_LIBRARY_PATH", filepath.Join(tmp, "does-not-exist"))
	t.Setenv("ORT_VERSION", "")

	info, err := DetectRuntime(config.RuntimeConfig{})
	if err != nil {
		t.Fatalf("DetectRuntime failed: %v", err)
	}

	if info.LibraryPath != lib {
		t.Fatalf("expected %q, got %q", lib, info.LibraryPath)
	}

	if info.Version != "1.23.2" {
		t.Fatalf("expected version inferred from file name, got %q", info.Version)
	}
}

func TestDetectRuntimeMissingPath(t *testing.T) {
	_, err := DetectRuntime(config.RuntimeConfig{ORTLibraryPath: filepath.Join(t.TempDir(), "missing.so")})
	if err == nil {
		t.Fatal("expected error for missing library")
	}
}

func TestDetectRuntimeExplicitVersion(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	if err := os.WriteFile(lib, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake lib: %v", err)
	}

	info, err := DetectRuntime(config.RuntimeConfig{ORTLibraryPath: lib, ORTVersion: "1.20.0"})
	if err != nil {
		t.Fatalf("DetectRuntime failed: %v", err)
	}

	if info.Version != "1.20.0" {
		t.Fatalf("expected configured version, got %q", info.Version)
	}
}

func TestBootstrapRunsOnce(t *testing.T) {
	resetRuntimeStateForTest()
	t.Cleanup(resetRuntimeStateForTest)

	tmp := t.TempDir()
	lib1 := filepath.Join(tmp, "lib1.so")
	lib2 := filepath.Join(tmp, "lib2.so")
	if err := os.WriteFile(lib1, []byte("one"), 0o644); err != nil {
		t.Fatalf("write lib1: %v", err)
	}
	if err := os.WriteFile(lib2, []byte("two"), 0o644); err != nil {
		t.Fatalf("write lib2: %v", err)
	}

	info1, err := Bootstrap(config.RuntimeConfig{ORTLibraryPath: lib1})
	if err != nil {
		t.Fatalf("first bootstrap failed: %v", err)
	}
	info2, err := Bootstrap(config.RuntimeConfig{ORTLibraryPath: lib2})
	if err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	if info1.LibraryPath != lib1 || !info1.Initialized {
		t.Fatalf("expected initialized %q, got %+v", lib1, info1)
	}
	if info2.LibraryPath != lib1 {
		t.Fatalf("expected once semantics to keep %q, got %q", lib1, info2.LibraryPath)
	}

	if err := Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}

func TestInferVersionFromPath(t *testing.T) {
	cases := map[string]string{
		"/opt/ort/libonnxruntime.so.1.23.0":    "1.23.0",
		"/opt/ort/libonnxruntime.1.22.1.dylib": "1.22.1",
		"/usr/lib/libonnxruntime.so":           "",
	}

	for path, want := range cases {
		if got := inferVersionFromPath(path); got != want {
			t.Errorf("inferVersionFromPath(%q) = %q; want %q", path, got, want)
		}
	}
}
