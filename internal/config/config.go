// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full recognized configuration surface. Read once at
// startup and treated as immutable at runtime.
type Config struct {
	PMCPort          string `yaml:"pmc_port"`
	SocketPath       string `yaml:"socket_path"`
	SocketMaxClients int    `yaml:"socket_max_clients"`

	User  string `yaml:"user"`
	Group string `yaml:"group"`

	LogFile string `yaml:"log_file"`
	Logging string `yaml:"logging"`

	LCDIntensityNormal int `yaml:"lcd_intensity_normal"`
	LCDIntensityDimmed int `yaml:"lcd_intensity_dimmed"`
	LCDDimTimeoutSec   int `yaml:"lcd_dim_timeout"`

	FanSpeedNormal    int `yaml:"fan_speed_normal"`
	FanSpeedIncrement int `yaml:"fan_speed_increment"`
	FanSpeedDecrement int `yaml:"fan_speed_decrement"`

	AdditionalDrives []string `yaml:"additional_drives"`

	Hooks HooksConfig `yaml:",inline"`
}

// LCDDimTimeout returns the configured dim timeout as a duration.
func (c *Config) LCDDimTimeout() time.Duration {
	return time.Duration(c.LCDDimTimeoutSec) * time.Second
}

// Load reads and parses the YAML configuration file at path. It does
// not validate or normalize; call Validate then Normalize afterward.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
