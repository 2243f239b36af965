package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the host application configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	ADC     ADCConfig     `yaml:"adc"`
	Session SessionConfig `yaml:"session"`
	Output  OutputConfig  `yaml:"output"`
	Filter  FilterConfig  `yaml:"filter"`
	Mock    MockConfig    `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ADCConfig describes how the device maps raw counts to volts.
type ADCConfig struct {
	VRef   float64 `yaml:"vref"`
	RawMax uint16  `yaml:"raw_max"`
}

// SessionConfig contains recording timing. SampleInterval and Duration must match
// the firmware; HostTimeout must be longer than Duration.
type SessionConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
	Duration       time.Duration `yaml:"duration"`
	HostTimeout    time.Duration `yaml:"host_timeout"`
	ReadyTimeout   time.Duration `yaml:"ready_timeout"`
}

// OutputConfig controls where recordings are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// FilterConfig contains post-processing low-pass filter parameters.
type FilterConfig struct {
	CutoffHz float64 `yaml:"cutoff_hz"`
	Order    int     `yaml:"order"`
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"` // How often the simulated core ticks
	Amplitude    float64       `yaml:"amplitude"`     // Waveform amplitude (V)
	FrequencyHz  float64       `yaml:"frequency_hz"`  // Waveform base frequency, channel i runs at (i+1)x
	NoiseLevel   float64       `yaml:"noise_level"`   // Noise level (V)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0", // "COM3" on Windows
			BaudRate: 115200,
		},
		ADC: ADCConfig{
			VRef:   5.0,
			RawMax: 1023,
		},
		Session: SessionConfig{
			SampleInterval: 2 * time.Millisecond,
			Duration:       5 * time.Second,
			HostTimeout:    15 * time.Second,
			ReadyTimeout:   10 * time.Second,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Filter: FilterConfig{
			CutoffHz: 2.0,
			Order:    4,
		},
		Mock: MockConfig{
			TickInterval: 500 * time.Microsecond,
			Amplitude:    2.0,
			FrequencyHz:  1.0,
			NoiseLevel:   0.05,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the cross-field invariants that defaults cannot fix.
func (c *Config) Validate() error {
	var errs []error

	if c.Session.HostTimeout <= c.Session.Duration {
		errs = append(errs, fmt.Errorf("session.host_timeout (%s) must be longer than session.duration (%s)",
			c.Session.HostTimeout, c.Session.Duration))
	}
	if c.Session.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("session.sample_interval must be positive"))
	}
	if c.Filter.Order < 1 {
		errs = append(errs, fmt.Errorf("filter.order must be at least 1, got %d", c.Filter.Order))
	}
	if c.Filter.CutoffHz <= 0 {
		errs = append(errs, fmt.Errorf("filter.cutoff_hz must be positive"))
	}

	return errors.Join(errs...)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.ADC.VRef == 0 {
		c.ADC.VRef = def.ADC.VRef
	}
	if c.ADC.RawMax == 0 {
		c.ADC.RawMax = def.ADC.RawMax
	}

	if c.Session.SampleInterval == 0 {
		c.Session.SampleInterval = def.Session.SampleInterval
	}
	if c.Session.Duration == 0 {
		c.Session.Duration = def.Session.Duration
	}
	if c.Session.HostTimeout == 0 {
		c.Session.HostTimeout = def.Session.HostTimeout
	}
	if c.Session.ReadyTimeout == 0 {
		c.Session.ReadyTimeout = def.Session.ReadyTimeout
	}

	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}

	if c.Filter.CutoffHz == 0 {
		c.Filter.CutoffHz = def.Filter.CutoffHz
	}
	if c.Filter.Order == 0 {
		c.Filter.Order = def.Filter.Order
	}

	if c.Mock.TickInterval == 0 {
		c.Mock.TickInterval = def.Mock.TickInterval
	}
	if c.Mock.FrequencyHz == 0 {
		c.Mock.FrequencyHz = def.Mock.FrequencyHz
	}
}
