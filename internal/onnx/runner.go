//go:build !js || !wasm

package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"

	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// RunnerConfig holds ORT library settings for creating executors.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
	// TempDir receives the exported models; empty means os.TempDir().
	TempDir string
}

// Executor exports graphs to ONNX and runs them in ONNX Runtime. Only
// float32 and int64 tensors cross the ORT boundary; graphs with any other
// parameter or result type fail with an error wrapping ErrUnsupported.
type Executor struct {
	mu      sync.Mutex
	runtime *ort.Runtime
	env     *ort.Env
	tempDir string
	logger  *slog.Logger
}

type ExecutorOption func(*Executor)

func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewExecutor(cfg RunnerConfig, opts ...ExecutorOption) (*Executor, error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = 23
	}

	runtime, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("ort runtime %q: %w", cfg.LibraryPath, err)
	}

	env, err := runtime.NewEnv("primparity", ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("ort env: %w", err)
	}

	e := &Executor{runtime: runtime, env: env, tempDir: cfg.TempDir, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	track(e)

	return e, nil
}

// Device reports the device whose kernel conventions ORT's CPU provider
// follows.
func (e *Executor) Device() string { return "cpu" }

func (e *Executor) Execute(ctx context.Context, g *graph.Graph, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := checkBoundary(g); err != nil {
		return nil, err
	}

	if len(inputs) != len(g.Parameters()) {
		return nil, fmt.Errorf("onnx: %s expects %d inputs, got %d", g.Name(), len(g.Parameters()), len(inputs))
	}

	model, err := Export(g)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runtime == nil {
		return nil, fmt.Errorf("onnx: executor closed")
	}

	session, err := e.openSession(g.Name(), model)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	ortInputs := make(map[string]*ort.Value, len(inputs))
	defer closeORTValues(ortInputs)

	for i, t := range inputs {
		v, err := tensorToORT(e.runtime, t)
		if err != nil {
			return nil, fmt.Errorf("onnx: input %d: %w", i, err)
		}

		ortInputs[inputName(i)] = v
	}

	ortOutputs, err := session.Run(ctx, ortInputs)
	if err != nil {
		return nil, fmt.Errorf("onnx: run %q: %w", g.Name(), err)
	}
	defer closeORTValues(ortOutputs)

	results := make([]*tensor.Tensor, len(g.Outputs()))
	for i := range results {
		v, ok := ortOutputs[outputName(i)]
		if !ok {
			return nil, fmt.Errorf("onnx: run %q: missing %s", g.Name(), outputName(i))
		}

		t, err := ortToTensor(v)
		if err != nil {
			return nil, fmt.Errorf("onnx: %s: %w", outputName(i), err)
		}

		results[i] = t
	}

	e.logger.Debug("onnx graph executed", "graph", g.Name(), "bytes", len(model), "outputs", len(results))

	return results, nil
}

// openSession loads model through a temporary file; the session keeps no
// reference to it once created.
func (e *Executor) openSession(name string, model []byte) (*ort.Session, error) {
	f, err := os.CreateTemp(e.tempDir, "primparity-*.onnx")
	if err != nil {
		return nil, fmt.Errorf("onnx: temp model: %w", err)
	}

	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(model); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("onnx: write model: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("onnx: write model: %w", err)
	}

	session, err := e.runtime.NewSession(e.env, path, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx: session for %q: %w", name, err)
	}

	return session, nil
}

// Close releases all ORT resources. Safe to call multiple times.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.env != nil {
		e.env.Close()
		e.env = nil
	}

	if e.runtime != nil {
		_ = e.runtime.Close()
		e.runtime = nil
	}

	untrack(e)
}

func checkBoundary(g *graph.Graph) error {
	for i, p := range g.Parameters() {
		if !boundaryType(p.DType()) {
			return fmt.Errorf("onnx: input %d is %s: %w", i, p.DType(), ErrUnsupported)
		}
	}

	for i, t := range g.OutputTypes() {
		if !boundaryType(t.DType) {
			return fmt.Errorf("onnx: output %d is %s: %w", i, t.DType, ErrUnsupported)
		}
	}

	return nil
}

func boundaryType(dt dtype.DType) bool {
	return dt == dtype.Float32 || dt == dtype.Int64
}

func tensorToORT(runtime *ort.Runtime, t *tensor.Tensor) (*ort.Value, error) {
	src := t.Data()

	switch t.DType() {
	case dtype.Float32:
		data := make([]float32, len(src))
		for i, v := range src {
			data[i] = float32(v)
		}

		return ort.NewTensorValue(runtime, data, t.Shape())
	case dtype.Int64:
		return ort.NewTensorValue(runtime, t.Int64s(), t.Shape())
	default:
		return nil, fmt.Errorf("tensor dtype %s: %w", t.DType(), ErrUnsupported)
	}
}

func ortToTensor(v *ort.Value) (*tensor.Tensor, error) {
	elemType, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("get element type: %w", err)
	}

	switch elemType {
	case ort.ONNXTensorElementDataTypeFloat:
		data, shape, err := ort.GetTensorData[float32](v)
		if err != nil {
			return nil, err
		}

		out := make([]float64, len(data))
		for i, x := range data {
			out[i] = float64(x)
		}

		return tensor.New(dtype.Float32, out, shape)
	case ort.ONNXTensorElementDataTypeInt64:
		data, shape, err := ort.GetTensorData[int64](v)
		if err != nil {
			return nil, err
		}

		return tensor.FromInt64s(data, shape)
	default:
		return nil, fmt.Errorf("output element type %v: %w", elemType, ErrUnsupported)
	}
}

func closeORTValues(values map[string]*ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Close()
		}
	}
}
