// internal/config/validate_test.go
package config

import "testing"

func baseConfig() *Config {
	return &Config{
		PMCPort:            "/dev/ttyS0",
		SocketPath:         "/run/wdhwd/hws.sock",
		SocketMaxClients:   10,
		LCDIntensityNormal: 100,
		LCDIntensityDimmed: 20,
		FanSpeedNormal:     30,
		FanSpeedIncrement:  10,
		FanSpeedDecrement:  10,
	}
}

func TestValidate_MinimalConfigOK(t *testing.T) {
	if err := Validate(baseConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingPMCPort(t *testing.T) {
	cfg := baseConfig()
	cfg.PMCPort = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing pmc_port, got nil")
	}
}

func TestValidate_MissingSocketPath(t *testing.T) {
	cfg := baseConfig()
	cfg.SocketPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing socket_path, got nil")
	}
}

func TestValidate_FanSpeedOutOfRange(t *testing.T) {
	cfg := baseConfig()
	cfg.FanSpeedNormal = 150
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for fan_speed_normal out of range, got nil")
	}
}

func TestValidate_DuplicateAdditionalDrives(t *testing.T) {
	cfg := baseConfig()
	cfg.AdditionalDrives = []string{"/dev/sda", "/dev/sda"}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for duplicate additional_drives, got nil")
	}
}

func TestValidate_HookArgsWithoutCommandRejected(t *testing.T) {
	cfg := baseConfig()
	cfg.Hooks.SystemUpArgs = ArgsList{"{socket}"}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for args without command, got nil")
	}
}

func TestNormalize_AppliesDefaults(t *testing.T) {
	cfg := &Config{PMCPort: "/dev/ttyS0", SocketPath: "/run/wdhwd/hws.sock"}
	Normalize(cfg)

	if cfg.SocketMaxClients != 10 {
		t.Errorf("expected default socket_max_clients=10, got %d", cfg.SocketMaxClients)
	}
	if cfg.FanSpeedNormal != 30 {
		t.Errorf("expected default fan_speed_normal=30, got %d", cfg.FanSpeedNormal)
	}
	if cfg.LCDDimTimeoutSec != 30 {
		t.Errorf("expected default lcd_dim_timeout=30, got %d", cfg.LCDDimTimeoutSec)
	}
}

func TestHooksRegistry_OmitsEmptyCommands(t *testing.T) {
	cfg := baseConfig()
	cfg.Hooks.SystemUpCommand = "/usr/local/bin/notify-up"
	reg := cfg.Hooks.Registry()

	if _, ok := reg[EventSystemUp]; !ok {
		t.Fatalf("expected system_up to be registered")
	}
	if _, ok := reg[EventSystemDown]; ok {
		t.Fatalf("expected system_down to be omitted with no command configured")
	}
}
