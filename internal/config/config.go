package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Harness   HarnessConfig `mapstructure:"harness"`
	Runtime   RuntimeConfig `mapstructure:"runtime"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFormat string        `mapstructure:"log_format"`
}

type HarnessConfig struct {
	Device     string `mapstructure:"device"`
	Backend    string `mapstructure:"backend"`
	SeedHi     uint32 `mapstructure:"seed_hi"`
	SeedLo     uint32 `mapstructure:"seed_lo"`
	Filter     string `mapstructure:"filter"`
	PolicyFile string `mapstructure:"policy_file"`
	ReportPath string `mapstructure:"report_path"`
	Optimize   bool   `mapstructure:"optimize"`
}

type RuntimeConfig struct {
	Threads        int    `mapstructure:"threads"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Harness: HarnessConfig{
			Device:   DeviceCPU,
			Backend:  BackendGraph,
			SeedHi:   0,
			SeedLo:   42,
			Optimize: true,
		},
		Runtime: RuntimeConfig{
			Threads:       4,
			ORTAPIVersion: 23,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("harness-device", defaults.Harness.Device, "Device the policies are evaluated for (cpu|gpu|tpu)")
	fs.String("harness-backend", defaults.Harness.Backend, "Target executor (graph|onnx)")
	fs.Uint32("harness-seed-hi", defaults.Harness.SeedHi, "High word of the argument RNG seed")
	fs.Uint32("harness-seed-lo", defaults.Harness.SeedLo, "Low word of the argument RNG seed")
	fs.String("harness-filter", defaults.Harness.Filter, "Regular expression selecting harness names")
	fs.String("harness-policy-file", defaults.Harness.PolicyFile, "YAML file with policy overrides")
	fs.String("harness-report-path", defaults.Harness.ReportPath, "Write a JSON run report to this path")
	fs.Bool("harness-optimize", defaults.Harness.Optimize, "Also compare against the optimized target graph")
	fs.Int("runtime-threads", defaults.Runtime.Threads, "Tensor worker pool size")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.String("runtime-ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.Uint32("runtime-ort-api-version", defaults.Runtime.ORTAPIVersion, "ONNX Runtime C API version")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("log-format", defaults.LogFormat, "Log format (text|json)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)

	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("PRIMPARITY")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)

	if err := v.BindEnv("runtime.ort_library_path", "PRIMPARITY_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}

	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("primparity")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	device, err := NormalizeDevice(cfg.Harness.Device)
	if err != nil {
		return Config{}, err
	}

	backend, err := NormalizeBackend(cfg.Harness.Backend)
	if err != nil {
		return Config{}, err
	}

	cfg.Harness.Device, cfg.Harness.Backend = device, backend

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("harness.device", c.Harness.Device)
	v.SetDefault("harness.backend", c.Harness.Backend)
	v.SetDefault("harness.seed_hi", c.Harness.SeedHi)
	v.SetDefault("harness.seed_lo", c.Harness.SeedLo)
	v.SetDefault("harness.filter", c.Harness.Filter)
	v.SetDefault("harness.policy_file", c.Harness.PolicyFile)
	v.SetDefault("harness.report_path", c.Harness.ReportPath)
	v.SetDefault("harness.optimize", c.Harness.Optimize)
	v.SetDefault("runtime.threads", c.Runtime.Threads)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
}

// flagKeys maps flag names onto their nested config keys. Flags are bound
// per key so that config file values under the same key still apply.
var flagKeys = map[string]string{
	"harness-device":           "harness.device",
	"harness-backend":          "harness.backend",
	"harness-seed-hi":          "harness.seed_hi",
	"harness-seed-lo":          "harness.seed_lo",
	"harness-filter":           "harness.filter",
	"harness-policy-file":      "harness.policy_file",
	"harness-report-path":      "harness.report_path",
	"harness-optimize":         "harness.optimize",
	"runtime-threads":          "runtime.threads",
	"runtime-ort-library-path": "runtime.ort_library_path",
	"runtime-ort-version":      "runtime.ort_version",
	"runtime-ort-api-version":  "runtime.ort_api_version",
	"log-level":                "log_level",
	"log-format":               "log_format",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	// --ort-lib only wins when set explicitly.
	if f := fs.Lookup("ort-lib"); f != nil && f.Changed {
		if err := v.BindPFlag("runtime.ort_library_path", f); err != nil {
			return fmt.Errorf("bind flag ort-lib: %w", err)
		}
	}

	return nil
}
