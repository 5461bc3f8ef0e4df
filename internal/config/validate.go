// internal/config/validate.go
package config

import "fmt"

// Validate checks configuration correctness. It performs declarative
// validation only. It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg.PMCPort == "" {
		return fmt.Errorf("config: pmc_port is required")
	}
	if cfg.SocketPath == "" {
		return fmt.Errorf("config: socket_path is required")
	}
	if cfg.SocketMaxClients < 0 {
		return fmt.Errorf("config: socket_max_clients must be >= 0")
	}
	if cfg.LCDIntensityNormal < 0 || cfg.LCDIntensityNormal > 100 {
		return fmt.Errorf("config: lcd_intensity_normal must be in [0,100]")
	}
	if cfg.LCDIntensityDimmed < 0 || cfg.LCDIntensityDimmed > 100 {
		return fmt.Errorf("config: lcd_intensity_dimmed must be in [0,100]")
	}
	if cfg.FanSpeedNormal < 0 || cfg.FanSpeedNormal > 100 {
		return fmt.Errorf("config: fan_speed_normal must be in [0,100]")
	}
	if cfg.FanSpeedIncrement < 0 || cfg.FanSpeedIncrement > 100 {
		return fmt.Errorf("config: fan_speed_increment must be in [0,100]")
	}
	if cfg.FanSpeedDecrement < 0 || cfg.FanSpeedDecrement > 100 {
		return fmt.Errorf("config: fan_speed_decrement must be in [0,100]")
	}

	for _, hook := range cfg.Hooks.all() {
		if len(hook.Args) > 0 && hook.Command == "" {
			return fmt.Errorf("config: hook args given without a command")
		}
	}

	seen := make(map[string]bool, len(cfg.AdditionalDrives))
	for _, d := range cfg.AdditionalDrives {
		if d == "" {
			return fmt.Errorf("config: additional_drives entries must not be empty")
		}
		if seen[d] {
			return fmt.Errorf("config: additional_drives contains duplicate %q", d)
		}
		seen[d] = true
	}

	return nil
}
