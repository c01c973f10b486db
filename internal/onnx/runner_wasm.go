//go:build js && wasm

package onnx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// RunnerConfig holds ORT library settings for creating executors.
// In js/wasm builds, native ORT is unavailable; this struct is kept so the
// package API remains build-compatible.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
	TempDir     string
}

// Executor is unavailable in js/wasm builds. Export still works.
type Executor struct{}

type ExecutorOption func(*Executor)

func WithLogger(*slog.Logger) ExecutorOption { return func(*Executor) {} }

// NewExecutor always returns an error in js/wasm builds.
func NewExecutor(_ RunnerConfig, _ ...ExecutorOption) (*Executor, error) {
	return nil, fmt.Errorf("native onnx runtime is unavailable in js/wasm: %w", ErrUnsupported)
}

func (e *Executor) Device() string { return "cpu" }

// Execute always returns an error in js/wasm builds.
func (e *Executor) Execute(_ context.Context, g *graph.Graph, _ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return nil, fmt.Errorf("native onnx runtime is unavailable in js/wasm for graph %q: %w", g.Name(), ErrUnsupported)
}

// Close is a no-op in js/wasm builds.
func (e *Executor) Close() { untrack(e) }
