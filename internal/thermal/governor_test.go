// internal/thermal/governor_test.go
package thermal

import (
	"testing"
	"time"

	"github.com/michaelroland/wdnas-hwdaemon/internal/hwstate"
)

type fakePMC struct {
	duty int
	rpm  int
}

func (f *fakePMC) SetFanDuty(percent int) error {
	f.duty = percent
	return nil
}

func (f *fakePMC) FanRPM() (int, error) {
	return f.rpm, nil
}

// TestLevelSequenceHysteresis encodes concrete scenario 4 literally:
// thresholds T[NORMAL]=40, T[WARM]=50, T[HOT]=60, band=2, sequence
// h=38,42,52,49,47 -> COOL,NORMAL,WARM,WARM,NORMAL.
func TestLevelSequenceHysteresis(t *testing.T) {
	thresholds := Thresholds{
		hwstate.LevelUnder:    1,
		hwstate.LevelCool:     1,
		hwstate.LevelNormal:   40,
		hwstate.LevelWarm:     50,
		hwstate.LevelHot:      60,
		hwstate.LevelDanger:   70,
		hwstate.LevelShutdown: 80,
		hwstate.LevelCritical: 90,
	}

	pmc := &fakePMC{rpm: 1000}
	g := NewGovernor(pmc, Config{Thresholds: thresholds, HysteresisBand: 2, Interval: time.Hour})

	seq := []float64{38, 42, 52, 49, 47}
	want := []hwstate.Level{
		hwstate.LevelCool,
		hwstate.LevelNormal,
		hwstate.LevelWarm,
		hwstate.LevelWarm,
		hwstate.LevelNormal,
	}

	for i, h := range seq {
		g.Tick(h, h, nil, time.Now())
		if g.level != want[i] {
			t.Fatalf("step %d: h=%v: expected level %v, got %v", i+1, h, want[i], g.level)
		}
	}
}

func TestFanDutyClampedAndRampsTowardTarget(t *testing.T) {
	pmc := &fakePMC{rpm: 1000}
	g := NewGovernor(pmc, Config{Increment: 10, Decrement: 10, Interval: time.Hour})

	// NORMAL target (30) from a cold start (0): ramps by +10 per tick.
	g.Tick(38, 38, nil, time.Now())
	if pmc.duty != 10 {
		t.Fatalf("expected first ramp step to 10, got %d", pmc.duty)
	}
	g.Tick(38, 38, nil, time.Now())
	if pmc.duty != 20 {
		t.Fatalf("expected second ramp step to 20, got %d", pmc.duty)
	}
}

func TestShutdownGraceCancelledOnDescent(t *testing.T) {
	pmc := &fakePMC{rpm: 1000}
	thresholds := Thresholds{hwstate.LevelShutdown: 70, hwstate.LevelCritical: 200}
	g := NewGovernor(pmc, Config{Thresholds: thresholds, ShutdownGrace: 15 * time.Millisecond, Interval: time.Hour})

	g.Tick(75, 75, nil, time.Now())
	if g.level != hwstate.LevelShutdown {
		t.Fatalf("expected SHUTDOWN level, got %v", g.level)
	}

	g.Tick(10, 10, nil, time.Now()) // descend well below, cancelling the grace timer
	if g.shutdownTimer != nil {
		t.Fatalf("expected shutdown timer to be cancelled on descent")
	}

	select {
	case err := <-g.ShutdownCh:
		t.Fatalf("expected no shutdown signal after cancellation, got %v", err)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestCriticalShutdownUncancellable(t *testing.T) {
	pmc := &fakePMC{rpm: 1000}
	thresholds := Thresholds{hwstate.LevelCritical: 50}
	g := NewGovernor(pmc, Config{Thresholds: thresholds, Interval: time.Hour})

	g.Tick(60, 60, nil, time.Now())
	select {
	case err := <-g.ShutdownCh:
		if err != ErrThermalCritical {
			t.Fatalf("expected ErrThermalCritical, got %v", err)
		}
	default:
		t.Fatalf("expected immediate critical shutdown signal")
	}
}

func TestFanStallForcesFullDuty(t *testing.T) {
	pmc := &fakePMC{rpm: 1000}
	g := NewGovernor(pmc, Config{Increment: 100, Decrement: 100, RPMStallMin: 50, Interval: time.Hour})

	g.Tick(38, 38, nil, time.Now()) // ramps to target NORMAL duty, rpm healthy
	pmc.rpm = 0                     // simulate stall
	g.Tick(38, 38, nil, time.Now())

	if pmc.duty != 100 {
		t.Fatalf("expected stall to force 100%% duty, got %d", pmc.duty)
	}

	select {
	case f := <-g.FanFaults:
		if f.RPM != 0 {
			t.Fatalf("expected fault RPM=0, got %d", f.RPM)
		}
	default:
		t.Fatalf("expected a fan fault notification")
	}
}
