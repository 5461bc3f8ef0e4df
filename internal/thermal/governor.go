// internal/thermal/governor.go
package thermal

import (
	"context"
	"log"
	"time"

	"github.com/michaelroland/wdnas-hwdaemon/internal/hwstate"
)

// PMCClient is the minimal PMC surface the governor needs. There must
// be no other version of this interface anywhere: production code
// gets it from *pmcproto.Engine, tests get it from a fake.
type PMCClient interface {
	SetFanDuty(percent int) error
	FanRPM() (int, error)
}

// LevelChange is emitted to the Notification Dispatcher whenever the
// alert level changes.
type LevelChange struct {
	New, Old hwstate.Level
	Hottest  float64
	At       time.Time
}

// FanFault is emitted when the tachometer reports a stalled fan while
// a non-zero duty cycle is commanded.
type FanFault struct {
	RPM int
	At  time.Time
}

// Config tunes the governor. Zero-value fields fall back to defaults.
type Config struct {
	Thresholds      Thresholds
	Duties          Duties
	HysteresisBand  float64
	Increment       int
	Decrement       int
	RPMStallMin     int
	ShutdownGrace   time.Duration
	Interval        time.Duration
}

// Governor is a discrete, hysteretic fan/thermal controller.
type Governor struct {
	pmc PMCClient
	cfg Config

	state       hwstate.ThermalState
	level       hwstate.Level
	lastWritten int
	lastRPM     int
	fanFault    bool

	shutdownTimer *time.Timer
	shutdownAt    hwstate.Level

	LevelChanges chan LevelChange
	FanFaults    chan FanFault
	ShutdownCh   chan error // receives ErrThermalCritical or a cancellable-grace trigger
}

// NewGovernor builds a Governor with defaults filled in from cfg.
func NewGovernor(pmc PMCClient, cfg Config) *Governor {
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds
	} else if !isMonotonicNonDecreasing(cfg.Thresholds) {
		log.Printf("thermal: configured thresholds are not monotonic non-decreasing, falling back to defaults: %+v", cfg.Thresholds)
		cfg.Thresholds = DefaultThresholds
	}
	if cfg.Duties == (Duties{}) {
		cfg.Duties = DefaultDuties
	}
	if cfg.HysteresisBand == 0 {
		cfg.HysteresisBand = HysteresisBandDefault
	}
	if cfg.Increment == 0 {
		cfg.Increment = 10
	}
	if cfg.Decrement == 0 {
		cfg.Decrement = 10
	}
	if cfg.RPMStallMin == 0 {
		cfg.RPMStallMin = 50
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 60 * time.Second
	}
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Second
	}

	return &Governor{
		pmc:          pmc,
		cfg:          cfg,
		level:        hwstate.LevelUnder,
		LevelChanges: make(chan LevelChange, 8),
		FanFaults:    make(chan FanFault, 8),
		ShutdownCh:   make(chan error, 1),
	}
}

// State exposes the shared snapshot the IPC server reads.
func (g *Governor) State() *hwstate.ThermalState { return &g.state }

// Tick runs exactly one control cycle given the freshest hottest
// reading. now is injected so tests are deterministic.
func (g *Governor) Tick(hottest float64, boardC float64, diskC map[string]float64, now time.Time) {
	old := g.level
	g.level = nextLevel(hottest, g.level, g.cfg.Thresholds, g.cfg.HysteresisBand)

	if g.level != old {
		select {
		case g.LevelChanges <- LevelChange{New: g.level, Old: old, Hottest: hottest, At: now}:
		default:
			log.Printf("thermal: level change notification dropped, channel full")
		}
		g.handleShutdownTransition(old, now)
	}

	g.driveFan(now)

	snap := hwstate.ThermalSnapshot{
		BoardTempC: boardC,
		DiskTempsC: diskC,
		HottestC:   hottest,
		Level:      g.level,
		FanDuty:    g.lastWritten,
		FanTarget:  g.targetDuty(),
		FanRPM:     g.lastRPM,
		FanFault:   g.fanFault,
	}
	g.state.Store(snap)
}

func (g *Governor) handleShutdownTransition(old hwstate.Level, now time.Time) {
	switch {
	case g.level >= hwstate.LevelCritical:
		if g.shutdownTimer != nil {
			g.shutdownTimer.Stop()
			g.shutdownTimer = nil
		}
		select {
		case g.ShutdownCh <- ErrThermalCritical:
		default:
		}
	case g.level == hwstate.LevelShutdown && old < hwstate.LevelShutdown:
		g.shutdownAt = g.level
		if g.shutdownTimer != nil {
			g.shutdownTimer.Stop()
		}
		g.shutdownTimer = time.AfterFunc(g.cfg.ShutdownGrace, func() {
			select {
			case g.ShutdownCh <- ErrThermalCritical:
			default:
			}
		})
	case g.level < hwstate.LevelShutdown && g.shutdownTimer != nil:
		g.shutdownTimer.Stop()
		g.shutdownTimer = nil
	}
}

func (g *Governor) driveFan(now time.Time) {
	target := g.targetDuty()

	next := g.lastWritten
	switch {
	case g.level >= hwstate.LevelShutdown:
		next = 100
	case g.level == hwstate.LevelDanger:
		if target > next {
			next = target
		}
	case target > next:
		next = min(next+g.cfg.Increment, target)
	case target < next:
		next = max(next-g.cfg.Decrement, target)
	}

	if next != g.lastWritten {
		if err := g.pmc.SetFanDuty(next); err != nil {
			log.Printf("thermal: FAN=%d write failed: %v", next, err)
			return
		}
		g.lastWritten = next
	}

	rpm, err := g.pmc.FanRPM()
	if err != nil {
		log.Printf("thermal: RPM read failed: %v", err)
		return
	}
	g.lastRPM = rpm

	stalled := g.lastWritten > 0 && rpm < g.cfg.RPMStallMin
	if stalled && !g.fanFault {
		g.fanFault = true
		if err := g.pmc.SetFanDuty(100); err == nil {
			g.lastWritten = 100
		}
		select {
		case g.FanFaults <- FanFault{RPM: rpm, At: now}:
		default:
			log.Printf("thermal: fan fault notification dropped, channel full")
		}
	} else if !stalled {
		g.fanFault = false
	}
}

func (g *Governor) targetDuty() int {
	return g.cfg.Duties[g.level]
}

// Run drives Tick on a fixed interval using readings pulled from
// source, until ctx is cancelled.
func (g *Governor) Run(ctx context.Context, source func() (hottest, boardC float64, diskC map[string]float64, ok bool)) {
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hottest, boardC, diskC, ok := source()
			if !ok {
				continue // hold previous state when no readings exist
			}
			g.Tick(hottest, boardC, diskC, time.Now())
		}
	}
}
