// internal/thermal/errors.go
package thermal

import "errors"

// ErrThermalCritical signals the uncancellable CRITICAL shutdown path.
// It is carried on the shutdown-trigger channel as an internal signal,
// never returned to a caller, and never recovered.
var ErrThermalCritical = errors.New("thermal: critical temperature, shutdown required")
