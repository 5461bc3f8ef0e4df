// internal/events/router.go
package events

import (
	"log"
	"time"

	"github.com/michaelroland/wdnas-hwdaemon/internal/hwstate"
	"github.com/michaelroland/wdnas-hwdaemon/internal/pmcproto"
)

// PMCClient is the minimal PMC surface the Router needs for interrupt
// follow-up reads and the drive auto-power policy. There must be no
// other version of this interface anywhere.
type PMCClient interface {
	Status() (uint8, error)
	DrivePresence() (uint8, error)
	DriveEnable() (uint8, error)
	SetDriveLEDBits(mask uint8) error
	ClearDriveLEDBits(mask uint8) error
}

// Config tunes the Router.
type Config struct {
	LongPressThreshold time.Duration
	AutoBayPower       bool
}

// Router decodes PMC interrupt-status bits into semantic events and
// publishes them on Out. It implements pmcproto.InterruptHandler via
// HandleInterrupt.
type Router struct {
	pmc PMCClient
	cfg Config

	bays    *hwstate.BayState
	sockets *hwstate.SocketState

	toggled uint8 // mirrors the vendor daemon's toggle-tracked button/edge state
	prevDP0 uint8
	haveDP0 bool

	buttons map[ButtonName]*buttonTimer

	Out chan Event
}

func NewRouter(pmc PMCClient, bays *hwstate.BayState, sockets *hwstate.SocketState, cfg Config) *Router {
	if cfg.LongPressThreshold <= 0 {
		cfg.LongPressThreshold = time.Second
	}
	return &Router{
		pmc:     pmc,
		cfg:     cfg,
		bays:    bays,
		sockets: sockets,
		buttons: map[ButtonName]*buttonTimer{
			ButtonUSBCopy: {},
			ButtonLCDUp:   {},
			ButtonLCDDown: {},
		},
		Out: make(chan Event, 32),
	}
}

// HandleInterrupt matches pmcproto.InterruptHandler. Dispatch order is
// the engine's ascending-bit order; this method handles exactly one
// bit per call.
func (r *Router) HandleInterrupt(bit int, status pmcproto.InterruptStatus) {
	r.toggled ^= 1 << uint(bit)

	switch bit {
	case 1:
		r.handlePowerSocket(2)
	case 2:
		r.handlePowerSocket(1)
	case 3:
		r.handleButton(ButtonUSBCopy)
	case 4:
		r.handleDrivePresence()
	case 5:
		r.handleButton(ButtonLCDUp)
	case 6:
		r.handleButton(ButtonLCDDown)
	default:
		// bit 0 reserved, bit 7 consumed by the engine's echo path.
	}
}

func (r *Router) handlePowerSocket(socket int) {
	sta, err := r.pmc.Status()
	if err != nil {
		log.Printf("events: STA follow-up read failed: %v", err)
		return
	}

	var energized bool
	switch socket {
	case 1:
		energized = sta&(1<<2) != 0
	case 2:
		energized = sta&(1<<1) != 0
	}

	r.sockets.Store(hwstate.SocketSnapshot{Index: socket, Energized: energized})
	r.publish(PowerSupplyChanged{base: base{time.Now()}, Socket: socket, Energized: energized})
}

func (r *Router) handleButton(name ButtonName) {
	bit := buttonBit(name)
	pressed := r.toggled&(1<<uint(bit)) != 0
	timer := r.buttons[name]

	now := time.Now()
	if pressed {
		timer.pressedAt = &now
		return
	}

	if timer.pressedAt == nil {
		return // release with no recorded press; ignore
	}
	elapsed := now.Sub(*timer.pressedAt)
	timer.pressedAt = nil

	if elapsed <= r.cfg.LongPressThreshold {
		r.publish(ButtonShort{base: base{now}, Button: name})
	} else {
		r.publish(ButtonLong{base: base{now}, Button: name})
	}
}

func buttonBit(name ButtonName) int {
	switch name {
	case ButtonUSBCopy:
		return 3
	case ButtonLCDUp:
		return 5
	case ButtonLCDDown:
		return 6
	default:
		return -1
	}
}

func (r *Router) handleDrivePresence() {
	dp0, err := r.pmc.DrivePresence()
	if err != nil {
		log.Printf("events: DP0 follow-up read failed: %v", err)
		return
	}

	width := 2
	if dp0&(1<<4) != 0 {
		width = 4
	}

	var diffs []BayDiff
	if r.haveDP0 {
		for i := 0; i < width; i++ {
			oldBit := r.prevDP0&(1<<uint(i)) != 0
			newBit := dp0&(1<<uint(i)) != 0
			if oldBit == newBit {
				continue
			}
			present := !newBit // bit set means the bay reads empty (pull-up-on-absent)
			diffs = append(diffs, BayDiff{Index: i, Present: present})

			snap, _ := r.bays.Load(i)
			snap.Index = i
			snap.Present = present
			r.bays.Store(snap)

			if r.cfg.AutoBayPower {
				r.applyAutoPower(i, present)
			}
		}
	}

	evt := DrivePresenceChanged{base: base{time.Now()}, NewMask: dp0, OldMask: r.prevDP0, Diffs: diffs}
	r.prevDP0 = dp0
	r.haveDP0 = true
	r.publish(evt)
}

func (r *Router) applyAutoPower(bay int, present bool) {
	mask := uint8(1) << uint(bay)
	var err error
	if present {
		err = r.pmc.SetDriveLEDBits(mask)
	} else {
		err = r.pmc.ClearDriveLEDBits(mask)
	}
	if err != nil {
		log.Printf("events: auto-bay-power DLS/DLC write failed for bay %d: %v", bay, err)
		return
	}
	r.refreshPowered(bay)
}

// refreshPowered re-reads DE0 after a DLS/DLC write and stores the
// resulting bit for bay into BayState, so Powered reflects the PMC's
// confirmed state rather than the write we merely attempted.
func (r *Router) refreshPowered(bay int) {
	de0, err := r.pmc.DriveEnable()
	if err != nil {
		log.Printf("events: DE0 read-back failed for bay %d: %v", bay, err)
		return
	}
	snap, _ := r.bays.Load(bay)
	snap.Index = bay
	snap.Powered = de0&(1<<uint(bay)) != 0
	r.bays.Store(snap)
}

func (r *Router) publish(evt Event) {
	select {
	case r.Out <- evt:
	default:
		log.Printf("events: output channel full, dropping event %T", evt)
	}
}

type buttonTimer struct {
	pressedAt *time.Time
}
