// internal/pmcproto/values.go
package pmcproto

import (
	"fmt"
	"strconv"
	"strings"
)

// Typed convenience wrappers over Get/Set. Hex encode/decode for each
// register's width lives here, once, rather than scattered across
// every caller.

// getHex reads reg and decodes its hex value. A value that does not
// decode is read once more before ErrFrameMalformed surfaces.
func getHex(e *Engine, reg Register, bits int) (uint64, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var v string
		v, err = e.Get(reg)
		if err != nil {
			return 0, err
		}
		n, perr := strconv.ParseUint(strings.TrimSpace(v), 16, bits)
		if perr == nil {
			return n, nil
		}
		err = fmt.Errorf("%w: %s=%q: %v", ErrFrameMalformed, reg, v, perr)
	}
	return 0, err
}

func setHex(e *Engine, reg Register, value uint64, digits int) error {
	return e.Set(reg, fmt.Sprintf("%0*X", digits, value))
}

// BoardTemperatureC reads TMP and returns degrees Celsius.
func (e *Engine) BoardTemperatureC() (float64, error) {
	n, err := getHex(e, RegTemperature, 8)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}

// SetFanDuty writes FAN, clamping/translating the logical percent to
// the firmware's 0-99 wire encoding.
func (e *Engine) SetFanDuty(percent int) error {
	return setHex(e, RegFanDuty, uint64(FanDutyToWire(percent)), 2)
}

// FanRPM reads RPM.
func (e *Engine) FanRPM() (int, error) {
	n, err := getHex(e, RegFanRPM, 16)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// InterruptStatusNow issues a direct ISR getter, outside the ALERT
// follow-up path - used only at startup to read any latched state.
func (e *Engine) InterruptStatusNow() (InterruptStatus, error) {
	n, err := getHex(e, RegInterruptStat, 8)
	if err != nil {
		return 0, err
	}
	return InterruptStatus(n), nil
}

// SetInterruptMask writes IMR.
func (e *Engine) SetInterruptMask(mask uint8) error {
	return setHex(e, RegInterruptMask, uint64(mask), 2)
}

// Config reads CFG.
func (e *Engine) Config() (uint8, error) {
	n, err := getHex(e, RegConfig, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// SetConfig writes CFG.
func (e *Engine) SetConfig(bits uint8) error {
	return setHex(e, RegConfig, uint64(bits), 2)
}

// Status reads STA.
func (e *Engine) Status() (uint8, error) {
	n, err := getHex(e, RegStatus, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// DrivePresence reads DP0.
func (e *Engine) DrivePresence() (uint8, error) {
	n, err := getHex(e, RegDrivePresent, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// DriveEnable reads DE0.
func (e *Engine) DriveEnable() (uint8, error) {
	n, err := getHex(e, RegDriveEnable, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// SetDriveLEDBits sets bits in DE0/alert-LED via DLS.
func (e *Engine) SetDriveLEDBits(mask uint8) error {
	return setHex(e, RegDriveLEDSet, uint64(mask), 2)
}

// ClearDriveLEDBits clears bits in DE0/alert-LED via DLC.
func (e *Engine) ClearDriveLEDBits(mask uint8) error {
	return setHex(e, RegDriveLEDClear, uint64(mask), 2)
}

// Backlight reads BKL.
func (e *Engine) Backlight() (uint8, error) {
	n, err := getHex(e, RegBacklight, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// SetBacklight writes BKL.
func (e *Engine) SetBacklight(percent uint8) error {
	return setHex(e, RegBacklight, uint64(percent), 2)
}

// SetLCDLines writes LN1/LN2, truncated to 16 characters each.
func (e *Engine) SetLCDLines(line1, line2 string) error {
	if err := e.Set(RegLCDLine1, truncate16(line1)); err != nil {
		return err
	}
	return e.Set(RegLCDLine2, truncate16(line2))
}

func truncate16(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

// SetLED writes the steady LED bitmap.
func (e *Engine) SetLED(mask uint8) error {
	return setHex(e, RegLED, uint64(mask), 2)
}

// LED reads the steady LED bitmap.
func (e *Engine) LED() (uint8, error) {
	n, err := getHex(e, RegLED, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// SetLEDBlink writes the blink LED bitmap.
func (e *Engine) SetLEDBlink(mask uint8) error {
	return setHex(e, RegLEDBlink, uint64(mask), 2)
}

// LEDBlink reads the blink LED bitmap.
func (e *Engine) LEDBlink() (uint8, error) {
	n, err := getHex(e, RegLEDBlink, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

// Version reads VER as free text (not hex-encoded).
func (e *Engine) Version() (string, error) {
	return e.Get(RegVersion)
}
