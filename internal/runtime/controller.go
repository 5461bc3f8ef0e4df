// internal/runtime/controller.go
package runtime

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"

	"github.com/michaelroland/wdnas-hwdaemon/internal/config"
	"github.com/michaelroland/wdnas-hwdaemon/internal/events"
	"github.com/michaelroland/wdnas-hwdaemon/internal/hwstate"
	"github.com/michaelroland/wdnas-hwdaemon/internal/notify"
	"github.com/michaelroland/wdnas-hwdaemon/internal/thermal"
)

// PMCClient is the full PMC surface the Controller exercises during
// startup, shutdown, and IPC-driven requests. There must be no other
// version of this interface anywhere; every method already exists on
// *pmcproto.Engine.
type PMCClient interface {
	Version() (string, error)
	SetInterruptMask(mask uint8) error
	Config() (uint8, error)
	Status() (uint8, error)
	DrivePresence() (uint8, error)
	DriveEnable() (uint8, error)
	Backlight() (uint8, error)
	SetBacklight(pct uint8) error
	SetLCDLines(line1, line2 string) error
	SetFanDuty(percent int) error
	LEDClient
}

// SafeShutdownFanDuty is the fan percentage written on orderly shutdown,
// matching spec's "safe default" when the thermal governor is no longer
// driving the fan.
const SafeShutdownFanDuty = 30

// PrivDrop carries the target user/group a successfully started
// Controller drops privileges to. A zero-value PrivDrop is a no-op.
type PrivDrop struct {
	UID, GID  int
	SupplGIDs []int
	HasTarget bool
}

// Controller owns the startup/shutdown sequence and the supervised
// background tasks: Temperature Reader, Fan Governor, Event Router,
// Notification Dispatcher, and IPC Server.
type Controller struct {
	pmc  PMCClient
	cfg  *config.Config
	drop PrivDrop

	governor   *thermal.Governor
	router     *events.Router
	dispatcher *notify.Dispatcher
	supervisor *Supervisor

	bays    *hwstate.BayState
	sockets *hwstate.SocketState

	// Tasks lists every non-LED background task Run hands to the
	// supervisor; set by the caller (cmd/wdhwd) after construction.
	Tasks []SupervisedTask

	shutdownOnce      sync.Once
	shutdownErr       error
	shutdownRequested chan struct{}
}

func NewController(pmc PMCClient, cfg *config.Config, drop PrivDrop) *Controller {
	return &Controller{
		pmc:               pmc,
		cfg:               cfg,
		drop:              drop,
		supervisor:        NewSupervisor(),
		shutdownRequested: make(chan struct{}, 1),
	}
}

// SetBayState and SetSocketState wire the shared snapshots the IPC
// server's drives/power operations read.
func (c *Controller) SetBayState(s *hwstate.BayState)       { c.bays = s }
func (c *Controller) SetSocketState(s *hwstate.SocketState) { c.sockets = s }

// Thermal, Bays, Sockets, SetLCDLines, SetBacklight, SetLED, Version,
// and Shutdown together satisfy ipc.Backend, letting the IPC server
// talk to the Controller without an import cycle (ipc never imports
// runtime).
func (c *Controller) Thermal() hwstate.ThermalSnapshot {
	if c.governor == nil {
		return hwstate.ThermalSnapshot{}
	}
	return c.governor.State().Load()
}

func (c *Controller) Bays() []hwstate.BaySnapshot {
	if c.bays == nil {
		return nil
	}
	return c.bays.LoadAll()
}

func (c *Controller) Sockets() []hwstate.SocketSnapshot {
	if c.sockets == nil {
		return nil
	}
	return c.sockets.LoadAll()
}

func (c *Controller) SetLCDLines(line1, line2 string) error { return c.pmc.SetLCDLines(line1, line2) }
func (c *Controller) SetBacklight(pct uint8) error           { return c.pmc.SetBacklight(pct) }
func (c *Controller) SetLED(mask uint8) error                { return c.pmc.SetLED(mask) }
func (c *Controller) Version() (string, error)               { return c.pmc.Version() }

// Shutdown requests an orderly shutdown from an IPC client. Non-
// blocking: a shutdown already pending is not queued twice.
func (c *Controller) Shutdown() error {
	select {
	case c.shutdownRequested <- struct{}{}:
	default:
	}
	return nil
}

// Run executes the full startup sequence, drops privileges, starts the
// supervised tasks, then blocks until SIGTERM/SIGINT, a supervisor
// fatal failure, or an uncancellable thermal shutdown arrives, at
// which point it performs orderly shutdown and returns.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.startup(); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	if c.drop.HasTarget {
		if err := dropPrivileges(c.drop); err != nil {
			log.Printf("runtime: privilege drop failed: %v", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, t := range c.Tasks {
		c.supervisor.Supervise(runCtx, t)
	}

	notifyReady()
	stopWatchdog := startWatchdogPings(runCtx)
	defer stopWatchdog()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case err := <-c.supervisor.FatalCh:
		log.Printf("runtime: fatal task failure, shutting down: %v", err)
		c.shutdownErr = err
	case err := <-c.thermalShutdownCh():
		log.Printf("runtime: thermal shutdown triggered: %v", err)
	case <-c.shutdownRequested:
		log.Printf("runtime: shutdown requested via IPC")
	case <-ctx.Done():
	}

	cancel()
	return c.shutdown()
}

func (c *Controller) thermalShutdownCh() <-chan error {
	if c.governor == nil {
		return make(chan error) // never fires
	}
	return c.governor.ShutdownCh
}

// SetGovernor wires the Fan Governor so the Controller can react to its
// uncancellable-shutdown signal.
func (c *Controller) SetGovernor(g *thermal.Governor) { c.governor = g }

func (c *Controller) startup() error {
	if v, err := c.pmc.Version(); err != nil {
		log.Printf("runtime: VER read failed, continuing without it: %v", err)
	} else {
		log.Printf("runtime: PMC version %q", v)
	}

	if err := c.pmc.SetInterruptMask(0xFF); err != nil {
		return fmt.Errorf("IMR=FF: %w", err)
	}
	if _, err := c.pmc.Config(); err != nil {
		return fmt.Errorf("CFG read: %w", err)
	}
	if _, err := c.pmc.Status(); err != nil {
		return fmt.Errorf("STA read: %w", err)
	}
	dp0, err := c.pmc.DrivePresence()
	if err != nil {
		return fmt.Errorf("DP0 read: %w", err)
	}
	de0, err := c.pmc.DriveEnable()
	if err != nil {
		return fmt.Errorf("DE0 read: %w", err)
	}
	c.seedBayState(dp0, de0)

	if _, err := c.pmc.Backlight(); err != nil {
		return fmt.Errorf("BKL read: %w", err)
	}

	if err := c.pmc.SetLCDLines("wdhwd starting", ""); err != nil {
		log.Printf("runtime: boot banner write failed: %v", err)
	}
	if err := setLEDBootState(c.pmc); err != nil {
		log.Printf("runtime: boot LED state failed: %v", err)
	}

	log.Printf("runtime: system up")
	if err := setLEDNormalState(c.pmc); err != nil {
		log.Printf("runtime: normal LED state failed: %v", err)
	}
	c.notify(config.EventSystemUp, nil)
	return nil
}

// seedBayState populates the initial per-bay Present/Powered snapshot
// from the DP0/DE0 values read at startup, before any interrupt-driven
// update ever runs. DP0 is pull-up-on-absent (bit set means empty);
// DE0 is direct (bit set means powered).
func (c *Controller) seedBayState(dp0, de0 uint8) {
	if c.bays == nil {
		return
	}
	width := 2
	if dp0&(1<<4) != 0 {
		width = 4
	}
	for i := 0; i < width; i++ {
		c.bays.Store(hwstate.BaySnapshot{
			Index:   i,
			Present: dp0&(1<<uint(i)) == 0,
			Powered: de0&(1<<uint(i)) != 0,
		})
	}
}

func (c *Controller) notify(name config.EventName, placeholders map[string]string) {
	if c.dispatcher == nil {
		return
	}
	c.dispatcher.Dispatch(notify.Notification{Event: name, Placeholders: placeholders})
}

func (c *Controller) shutdown() error {
	c.shutdownOnce.Do(func() {
		log.Printf("runtime: system down")
		c.notify(config.EventSystemDown, nil)
		if err := setLEDErrorState(c.pmc); err != nil {
			log.Printf("runtime: error LED state failed: %v", err)
		}
		if err := c.pmc.SetLCDLines("wdhwd offline", ""); err != nil {
			log.Printf("runtime: offline banner write failed: %v", err)
		}
		if err := c.pmc.SetFanDuty(SafeShutdownFanDuty); err != nil {
			log.Printf("runtime: safe-default fan write failed: %v", err)
		}
		if c.dispatcher != nil {
			c.dispatcher.Stop()
			c.dispatcher.Wait()
		}
	})
	return c.shutdownErr
}

// SetDispatcher wires the Notification Dispatcher so shutdown can wait
// for its in-flight hooks to drain.
func (c *Controller) SetDispatcher(d *notify.Dispatcher) { c.dispatcher = d }

func notifyReady() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Printf("runtime: systemd readiness notification failed: %v", err)
	}
}

// startWatchdogPings sends periodic SdNotifyWatchdog pings when
// WATCHDOG_USEC is set in the environment, returning a stop function.
// When the variable is absent, it is a no-op.
func startWatchdogPings(ctx context.Context) func() {
	raw := os.Getenv("WATCHDOG_USEC")
	if raw == "" {
		return func() {}
	}
	usec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || usec <= 0 {
		log.Printf("runtime: invalid WATCHDOG_USEC %q, disabling watchdog pings", raw)
		return func() {}
	}

	interval := time.Duration(usec) * time.Microsecond / 2
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					log.Printf("runtime: watchdog ping failed: %v", err)
				}
			}
		}
	}()
	return func() { close(done) }
}
