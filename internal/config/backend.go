package config

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	BackendGraph = "graph"
	BackendONNX  = "onnx"
)

const (
	DeviceCPU = "cpu"
	DeviceGPU = "gpu"
	DeviceTPU = "tpu"
)

func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendGraph
	}

	switch backend {
	case BackendGraph, BackendONNX:
		return backend, nil
	case "evaluator", "ref":
		return BackendGraph, nil
	case "ort", "onnxruntime":
		return BackendONNX, nil
	default:
		return "", fmt.Errorf("invalid backend %q (expected %s|%s)", raw, BackendGraph, BackendONNX)
	}
}

// NormalizeDevice lowercases raw and checks it names a known device.
// Policies are keyed by device, so an unknown name is an error rather
// than a silent fallback.
func NormalizeDevice(raw string) (string, error) {
	device := strings.ToLower(strings.TrimSpace(raw))
	if device == "" {
		device = DeviceCPU
	}

	switch device {
	case DeviceCPU, DeviceGPU, DeviceTPU:
		return device, nil
	default:
		return "", fmt.Errorf("invalid device %q (expected %s|%s|%s)", raw, DeviceCPU, DeviceGPU, DeviceTPU)
	}
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}
