// internal/thermal/levels.go
package thermal

import "github.com/michaelroland/wdnas-hwdaemon/internal/hwstate"

// Thresholds is, per level, the temperature (in Celsius) the hottest
// reading must exceed to enter that level. Defaults mirror the vendor board-temperature
// monitor table: UNDER<=1, COOL>1, NORMAL>37, WARM>40, HOT>64,
// DANGER>67, SHUTDOWN>71, CRITICAL>74.
type Thresholds [8]float64

// DefaultThresholds are the board-temperature thresholds observed in
// the vendor daemon's fan controller configuration.
var DefaultThresholds = Thresholds{
	hwstate.LevelUnder:    1,
	hwstate.LevelCool:     1,
	hwstate.LevelNormal:   37,
	hwstate.LevelWarm:     40,
	hwstate.LevelHot:      64,
	hwstate.LevelDanger:   67,
	hwstate.LevelShutdown: 71,
	hwstate.LevelCritical: 74,
}

// Duties is the target fan duty cycle percent commanded at each level.
type Duties [8]int

// DefaultDuties scales from the vendor FAN_MIN=20/FAN_MAX=100 pair,
// with fan_speed_normal overriding the NORMAL entry before NewGovernor
// is called (see cmd/wdhwd).
var DefaultDuties = Duties{
	hwstate.LevelUnder:    0,
	hwstate.LevelCool:     20,
	hwstate.LevelNormal:   30,
	hwstate.LevelWarm:     50,
	hwstate.LevelHot:      70,
	hwstate.LevelDanger:   90,
	hwstate.LevelShutdown: 100,
	hwstate.LevelCritical: 100,
}

// HysteresisBandDefault is the default descent hysteresis in Celsius.
const HysteresisBandDefault = 2.0

// isMonotonicNonDecreasing reports whether t's thresholds never
// decrease from one level to the next. nextLevel's ascend scan relies
// on this: a lower level left at the Go zero value while a higher one
// is populated (or any other out-of-order threshold) would make the
// scan stop too early or too late.
func isMonotonicNonDecreasing(t Thresholds) bool {
	for lvl := hwstate.LevelCool; lvl <= hwstate.LevelCritical; lvl++ {
		if t[lvl] < t[lvl-1] {
			return false
		}
	}
	return true
}

// nextLevel determines the new level given the hottest observed
// temperature and the current level, applying hysteresis on descent
// only. Levels above HOT ignore hysteresis on ascent (handled
// naturally since ascent never subtracts the band).
func nextLevel(hottest float64, current hwstate.Level, t Thresholds, band float64) hwstate.Level {
	// Ascend: the highest level whose threshold hottest exceeds. Scan
	// from the bottom and stop at the first threshold not exceeded, so
	// a run of unpopulated (zero-valued) higher levels can never be
	// mistaken for an exceeded threshold. This requires t to be
	// monotonic non-decreasing, enforced by NewGovernor.
	ascended := hwstate.LevelUnder
	for lvl := hwstate.LevelCool; lvl <= hwstate.LevelCritical; lvl++ {
		if hottest > t[lvl] {
			ascended = lvl
			continue
		}
		break
	}
	if ascended > current {
		return ascended
	}

	// Descend: only if hottest falls below current's threshold minus
	// the hysteresis band, and only one level at a time.
	if current > hwstate.LevelUnder && hottest < t[current]-band {
		return current - 1
	}
	return current
}
