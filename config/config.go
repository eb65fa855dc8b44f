package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Single-character wire tokens understood by the garden controller.
const (
	CMD_WATER_ON   = 'W'
	CMD_WATER_OFF  = 'X'
	CMD_ROOF_OPEN  = 'O'
	CMD_ROOF_CLOSE = 'C'
	CMD_ROOF_STOP  = 'S'

	SERVER_ADDR = ":8080"

	BAUD_RATE_LEGACY = 9600
	BAUD_RATE_FAST   = 115200
)

const (
	DriverBugst   = "bugst"
	DriverJacobsa = "jacobsa"

	GrammarLoose  = "loose"
	GrammarTagged = "tagged"
)

type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Export     ExportConfig     `yaml:"export"`
}

type SerialConfig struct {
	Driver      string        `yaml:"driver"`
	Port        string        `yaml:"port"` // empty: auto-detect
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type TelemetryConfig struct {
	Grammar       string        `yaml:"grammar"`
	IdleInterval  time.Duration `yaml:"idle_interval"`
	MaxLineLength int           `yaml:"max_line_length"`
}

type ThresholdsConfig struct {
	DryMax    int `yaml:"dry_max"`
	NormalMax int `yaml:"normal_max"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	AutoConnect bool   `yaml:"auto_connect"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ExportConfig struct {
	Paste bool `yaml:"paste"`
}

func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Driver:      DriverBugst,
			BaudRate:    BAUD_RATE_LEGACY,
			ReadTimeout: time.Second,
		},
		Telemetry: TelemetryConfig{
			Grammar:       GrammarLoose,
			IdleInterval:  100 * time.Millisecond,
			MaxLineLength: 256,
		},
		Thresholds: ThresholdsConfig{
			DryMax:    80,
			NormalMax: 120,
		},
		Server: ServerConfig{
			Addr:        SERVER_ADDR,
			AutoConnect: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Serial.Driver) {
	case DriverBugst, DriverJacobsa:
	default:
		return fmt.Errorf("config: unknown serial driver %q", c.Serial.Driver)
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("config: baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.ReadTimeout <= 0 {
		return errors.New("config: read_timeout must be positive")
	}
	switch strings.ToLower(c.Telemetry.Grammar) {
	case GrammarLoose, GrammarTagged:
	default:
		return fmt.Errorf("config: unknown telemetry grammar %q", c.Telemetry.Grammar)
	}
	if c.Telemetry.IdleInterval <= 0 {
		return errors.New("config: idle_interval must be positive")
	}
	if c.Telemetry.MaxLineLength <= 0 {
		return errors.New("config: max_line_length must be positive")
	}
	if c.Thresholds.DryMax < 0 || c.Thresholds.DryMax >= c.Thresholds.NormalMax {
		return fmt.Errorf("config: thresholds need 0 <= dry_max < normal_max, got %d/%d",
			c.Thresholds.DryMax, c.Thresholds.NormalMax)
	}
	return nil
}
