package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/example/go-primparity/internal/config"
)

type RuntimeInfo struct {
	LibraryPath string
	Version     string
	Initialized bool
}

var versionPattern = regexp.MustCompile(`([0-9]+\.[0-9]+\.[0-9]+)`)

var (
	bootstrapOnce sync.Once
	bootstrapInfo RuntimeInfo
	errBootstrap  error

	liveMu    sync.Mutex
	liveExecs = map[*Executor]struct{}{}
)

// Bootstrap detects the ONNX Runtime library once per process. Later calls
// return the first result regardless of cfg.
func Bootstrap(cfg config.RuntimeConfig) (RuntimeInfo, error) {
	bootstrapOnce.Do(func() {
		info, err := DetectRuntime(cfg)
		if err != nil {
			errBootstrap = err
			return
		}

		bootstrapInfo = info
		bootstrapInfo.Initialized = true
	})

	if errBootstrap != nil {
		return RuntimeInfo{}, errBootstrap
	}

	return bootstrapInfo, nil
}

// Shutdown closes every executor that is still open.
func Shutdown() error {
	liveMu.Lock()
	execs := make([]*Executor, 0, len(liveExecs))
	for e := range liveExecs {
		execs = append(execs, e)
	}
	liveMu.Unlock()

	for _, e := range execs {
		e.Close()
	}

	bootstrapInfo.Initialized = false

	return nil
}

func track(e *Executor) {
	liveMu.Lock()
	liveExecs[e] = struct{}{}
	liveMu.Unlock()
}

func untrack(e *Executor) {
	liveMu.Lock()
	delete(liveExecs, e)
	liveMu.Unlock()
}

// libraryDirs are searched, in order, when no path is configured. Versioned
// sonames such as libonnxruntime.so.1.23.2 match as well.
var libraryDirs = []string{"/usr/lib", "/usr/local/lib", "/usr/lib/x86_64-linux-gnu", "/opt/homebrew/lib", "C:/onnxruntime/lib"}

var libraryGlobs = []string{"libonnxruntime.so", "libonnxruntime.so.*", "libonnxruntime*.dylib", "onnxruntime.dll"}

// DetectRuntime resolves the ONNX Runtime library from cfg, then the
// PRIMPARITY_ORT_LIB and ORT_LIBRARY_PATH variables, then the system
// library directories.
func DetectRuntime(cfg config.RuntimeConfig) (RuntimeInfo, error) {
	path := firstNonEmpty(cfg.ORTLibraryPath, os.Getenv("PRIMPARITY_ORT_LIB"), os.Getenv("ORT_LIBRARY_PATH"))
	if path == "" {
		path = searchLibrary()
	}

	if path == "" {
		return RuntimeInfo{LibraryPath: "not found", Version: "unknown"}, errors.New("onnx: unable to detect ONNX Runtime library path")
	}

	if _, err := os.Stat(path); err != nil {
		return RuntimeInfo{LibraryPath: path, Version: "unknown"}, fmt.Errorf("onnx: runtime library: %w", err)
	}

	version := firstNonEmpty(cfg.ORTVersion, os.Getenv("ORT_VERSION"), inferVersionFromPath(path), "unknown")

	return RuntimeInfo{LibraryPath: path, Version: version}, nil
}

func searchLibrary() string {
	for _, dir := range libraryDirs {
		for _, pattern := range libraryGlobs {
			matches, _ := filepath.Glob(filepath.Join(dir, pattern))
			if len(matches) > 0 {
				return matches[0]
			}
		}
	}

	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}

func inferVersionFromPath(path string) string {
	if m := versionPattern.FindStringSubmatch(filepath.Base(path)); len(m) == 2 {
		return m[1]
	}

	return ""
}
