// internal/config/normalize.go
package config

// Normalize applies post-validation defaults and normalization. It is
// allowed to mutate configuration. It MUST be called only after
// Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.SocketMaxClients == 0 {
		cfg.SocketMaxClients = 10
	}
	if cfg.User == "" {
		cfg.User = "wdhwd"
	}
	if cfg.Logging == "" {
		cfg.Logging = "info"
	}
	if cfg.LCDIntensityNormal == 0 {
		cfg.LCDIntensityNormal = 100
	}
	if cfg.LCDDimTimeoutSec == 0 {
		cfg.LCDDimTimeoutSec = 30
	}
	if cfg.FanSpeedNormal == 0 {
		cfg.FanSpeedNormal = 30
	}
	if cfg.FanSpeedIncrement == 0 {
		cfg.FanSpeedIncrement = 10
	}
	if cfg.FanSpeedDecrement == 0 {
		cfg.FanSpeedDecrement = 10
	}
}
