package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-primparity/internal/testutil"
)

func TestRequireONNXRuntime_SkipsWhenAbsent(t *testing.T) {
	t.Setenv("PRIMPARITY_ORT_LIB", "/nonexistent/libonnxruntime.so")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireONNXRuntime(fakeT)
	if !skipped {
		t.Error("expected RequireONNXRuntime to skip when library is absent")
	}
}

func TestRequireONNXRuntime_ReturnsEnvPath(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	if err := os.WriteFile(lib, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake lib: %v", err)
	}

	t.Setenv("PRIMPARITY_ORT_LIB", lib)

	fakeT := &skipTracker{TB: t, onSkip: func() { t.Error("unexpected skip") }}
	if got := testutil.RequireONNXRuntime(fakeT); got != lib {
		t.Errorf("RequireONNXRuntime() = %q; want %q", got, lib)
	}
}

// skipTracker is a minimal testing.TB implementation that intercepts Skip calls.
type skipTracker struct {
	testing.TB
	onSkip func()
}

func (s *skipTracker) Helper() {}

func (s *skipTracker) Skipf(_ string, _ ...any) {
	s.onSkip()
	// Do NOT call s.TB.Skip, that would actually skip the outer test.
}

func (s *skipTracker) Skip(_ ...any) {
	s.onSkip()
}
