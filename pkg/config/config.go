// Package config loads simulator configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/irqsim/irqsim/pkg/device"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete simulator configuration.
type Config struct {
	// Devices is the interrupt source table. Order does not matter;
	// dispatch order comes from Priority.
	Devices []DeviceConfig `yaml:"devices"`

	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Handler   HandlerConfig   `yaml:"handler"`
	Generator GeneratorConfig `yaml:"generator"`

	// TraceLog is the path of the CBOR trace file. Empty disables it.
	TraceLog string `yaml:"trace_log,omitempty"`
}

// DeviceConfig describes one interrupt source.
type DeviceConfig struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label,omitempty"`
	Priority int    `yaml:"priority"`

	// Rate is the probability (0..1) that the generator fires this
	// device in one cycle.
	Rate float64 `yaml:"rate"`

	// Masked sets the initial mask flag.
	Masked bool `yaml:"masked,omitempty"`
}

// Device converts the entry to a device.Device.
func (d DeviceConfig) Device() device.Device {
	return device.Device{
		ID:       device.ID(d.ID),
		Label:    d.Label,
		Priority: d.Priority,
	}
}

// DispatchConfig tunes the dispatcher.
type DispatchConfig struct {
	// WaitTimeout bounds a wait on masked work.
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// DrainTimeout bounds how long quit waits for pending work.
	// Zero waits forever.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// HandlerConfig tunes the simulated interrupt service routine.
type HandlerConfig struct {
	// ServiceTime is how long one handler call takes.
	ServiceTime time.Duration `yaml:"service_time"`

	// FailPayload makes the handler fail for events carrying this payload.
	FailPayload string `yaml:"fail_payload,omitempty"`
}

// GeneratorConfig tunes the random event source.
type GeneratorConfig struct {
	// Seed for the random source. Zero picks a random seed.
	Seed uint64 `yaml:"seed,omitempty"`

	// Interval between cycles in automatic mode.
	Interval time.Duration `yaml:"interval"`

	// Auto starts automatic generation with the simulator.
	Auto bool `yaml:"auto,omitempty"`
}

// Default returns the stock configuration: a keyboard, a mouse and a
// printer firing at 50, 40 and 30 percent per cycle.
func Default() Config {
	return Config{
		Devices: []DeviceConfig{
			{ID: "keyboard", Label: "Keyboard", Priority: 3, Rate: 0.5},
			{ID: "mouse", Label: "Mouse", Priority: 2, Rate: 0.4},
			{ID: "printer", Label: "Printer", Priority: 1, Rate: 0.3},
		},
		Dispatch: DispatchConfig{
			WaitTimeout:  200 * time.Millisecond,
			DrainTimeout: 10 * time.Second,
		},
		Handler: HandlerConfig{
			ServiceTime: 150 * time.Millisecond,
			FailPayload: "fail",
		},
		Generator: GeneratorConfig{
			Interval: time.Second,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("%w: at least one device is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.ID == "" {
			return fmt.Errorf("%w: devices[%d]: id is required", ErrInvalidConfig, i)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: devices[%d]: duplicate id %q", ErrInvalidConfig, i, d.ID)
		}
		seen[d.ID] = true
		if d.Rate < 0 || d.Rate > 1 {
			return fmt.Errorf("%w: device %q: rate %v outside [0, 1]", ErrInvalidConfig, d.ID, d.Rate)
		}
	}

	if c.Dispatch.WaitTimeout <= 0 {
		return fmt.Errorf("%w: dispatch.wait_timeout must be positive", ErrInvalidConfig)
	}
	if c.Dispatch.DrainTimeout < 0 {
		return fmt.Errorf("%w: dispatch.drain_timeout must not be negative", ErrInvalidConfig)
	}
	if c.Handler.ServiceTime < 0 {
		return fmt.Errorf("%w: handler.service_time must not be negative", ErrInvalidConfig)
	}
	if c.Generator.Interval <= 0 {
		return fmt.Errorf("%w: generator.interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Registry builds a device registry from the device table.
func (c *Config) Registry() (*device.Registry, error) {
	devices := make([]device.Device, len(c.Devices))
	for i, d := range c.Devices {
		devices[i] = d.Device()
	}
	return device.NewRegistry(devices...)
}

// InitiallyMasked lists the devices that start masked.
func (c *Config) InitiallyMasked() []device.ID {
	var ids []device.ID
	for _, d := range c.Devices {
		if d.Masked {
			ids = append(ids, device.ID(d.ID))
		}
	}
	return ids
}

// Parse reads a configuration from YAML. Fields missing from data keep
// their Default values; a devices list replaces the default table.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{
			Message: "invalid configuration",
			Cause:   err,
		}
	}
	return &cfg, nil
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return cfg, nil
}

// LoadError provides details about a configuration loading error.
type LoadError struct {
	// File is the path to the file that failed to load (empty for Parse).
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
