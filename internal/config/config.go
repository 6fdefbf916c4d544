// Package config provides JSON configuration loading for facetrackd.
//
// The configuration file supports the following structure:
//
//	{
//	  "module": {"runtime": "native", "active": "nettrack", "external_socket": ""},
//	  "mutator": {"enabled": true, "smoothness": 0.5, "pipeline": []},
//	  "calibration": {"enabled": true, "continuous": false, "blend": 1.0, "file": "calibration.json"},
//	  "osc": {"output_mode": "vrchat", "send_address": "127.0.0.1", "send_port": 9000},
//	  "max_fps": 60,
//	  "control": {"listen_addr": "127.0.0.1:9070"}
//	}
//
// Example usage:
//
//	cfg, err := config.Load("facetrackd.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Active module: %s\n", cfg.Module.Active)
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModuleRuntime selects whether the daemon drives a built-in adapter or
// reads frames over the external-module-host IPC contract (§6).
type ModuleRuntime string

const (
	RuntimeNative   ModuleRuntime = "native"
	RuntimeExternal ModuleRuntime = "external"
)

// Config is the complete configuration for facetrackd.
type Config struct {
	Module      ModuleConfig      `json:"module"`
	Mutator     MutatorConfig     `json:"mutator"`
	Calibration CalibrationConfig `json:"calibration"`
	OSC         OSCConfig         `json:"osc"`
	// MaxFPS caps the consumer tick rate; 0 means uncapped.
	MaxFPS  int           `json:"max_fps"`
	Control ControlConfig `json:"control"`
}

// ModuleConfig selects and configures the ingestion adapter.
type ModuleConfig struct {
	// Runtime is "native" (an in-process adapter) or "external" (the
	// shared-memory IPC host).
	Runtime ModuleRuntime `json:"runtime"`
	// Active names the in-process adapter to load when Runtime is
	// "native". cmd/facetrackd constructs only "nettrack" from
	// configuration and rejects any other name at startup; Validate
	// checks only that the field is non-empty.
	Active string `json:"active"`
	// ExternalSocket is the shared-memory region name used when Runtime
	// is "external".
	ExternalSocket string `json:"external_socket"`
}

// MutatorConfig configures the mutation pipeline.
type MutatorConfig struct {
	Enabled    bool    `json:"enabled"`
	Smoothness float64 `json:"smoothness"`
	// Pipeline optionally names an explicit, ordered subset of mutation
	// steps ("smoothing", "crosstalk", "calibration", "pupil"). An empty
	// list uses pipeline.Default's ordering.
	Pipeline           []string `json:"pipeline,omitempty"`
	CrosstalkReduction bool     `json:"crosstalk_reduction"`
}

// CalibrationConfig configures the statistical calibration mutation and
// its persistence.
type CalibrationConfig struct {
	Enabled    bool    `json:"enabled"`
	Continuous bool    `json:"continuous"`
	Blend      float64 `json:"blend"`
	// File is the calibstore persistence path.
	File string `json:"file"`
}

// OSCConfig configures the outbound transport.
type OSCConfig struct {
	// OutputMode is "vrchat", "resonite", or "generic".
	OutputMode  string `json:"output_mode"`
	SendAddress string `json:"send_address"`
	SendPort    int    `json:"send_port"`
}

// ControlConfig configures the local HTTP control surface.
type ControlConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Module: ModuleConfig{
			Runtime: RuntimeNative,
			Active:  "nettrack",
		},
		Mutator: MutatorConfig{
			Enabled:    true,
			Smoothness: 0.5,
		},
		Calibration: CalibrationConfig{
			Enabled:    true,
			Continuous: false,
			Blend:      1.0,
			File:       "calibration.json",
		},
		OSC: OSCConfig{
			OutputMode:  "vrchat",
			SendAddress: "127.0.0.1",
			SendPort:    9000,
		},
		MaxFPS: 60,
		Control: ControlConfig{
			ListenAddr: "127.0.0.1:9070",
		},
	}
}

// Load reads and parses a JSON configuration file, applying Default()'s
// values for an empty or missing path. Fields present in the file override
// their default; a partially-specified file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Module.Runtime {
	case RuntimeNative, RuntimeExternal:
	default:
		return fmt.Errorf("module.runtime must be %q or %q, got %q", RuntimeNative, RuntimeExternal, c.Module.Runtime)
	}
	if c.Module.Runtime == RuntimeNative && c.Module.Active == "" {
		return fmt.Errorf("module.active is required when module.runtime is %q", RuntimeNative)
	}
	if c.Module.Runtime == RuntimeExternal && c.Module.ExternalSocket == "" {
		return fmt.Errorf("module.external_socket is required when module.runtime is %q", RuntimeExternal)
	}
	if c.Mutator.Smoothness < 0 || c.Mutator.Smoothness > 1 {
		return fmt.Errorf("mutator.smoothness must be between 0 and 1, got %f", c.Mutator.Smoothness)
	}
	if c.Calibration.Blend < 0 {
		return fmt.Errorf("calibration.blend must be non-negative, got %f", c.Calibration.Blend)
	}
	switch c.OSC.OutputMode {
	case "vrchat", "resonite", "generic":
	default:
		return fmt.Errorf("osc.output_mode must be one of vrchat, resonite, generic, got %q", c.OSC.OutputMode)
	}
	if c.OSC.SendPort <= 0 || c.OSC.SendPort > 65535 {
		return fmt.Errorf("osc.send_port must be between 1 and 65535, got %d", c.OSC.SendPort)
	}
	if c.MaxFPS < 0 {
		return fmt.Errorf("max_fps must be non-negative, got %d", c.MaxFPS)
	}
	return nil
}
