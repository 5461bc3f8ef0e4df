// internal/events/router_test.go
package events

import (
	"testing"
	"time"

	"github.com/michaelroland/wdnas-hwdaemon/internal/hwstate"
	"github.com/michaelroland/wdnas-hwdaemon/internal/pmcproto"
)

type fakePMC struct {
	sta, dp0, de0 uint8
	setBits       uint8
	clearBits     uint8
}

func (f *fakePMC) Status() (uint8, error)        { return f.sta, nil }
func (f *fakePMC) DrivePresence() (uint8, error) { return f.dp0, nil }
func (f *fakePMC) DriveEnable() (uint8, error)   { return f.de0, nil }
func (f *fakePMC) SetDriveLEDBits(mask uint8) error {
	f.setBits |= mask
	f.de0 |= mask
	return nil
}
func (f *fakePMC) ClearDriveLEDBits(mask uint8) error {
	f.clearBits |= mask
	f.de0 &^= mask
	return nil
}

// Wire carries ALERT, ISR=10, then DP0=91 with prior state DP0=90:
// the Router emits DrivePresenceChanged(bay=0, present=false).
func TestDrivePresenceChangeBay0Absent(t *testing.T) {
	pmc := &fakePMC{dp0: 0x91}
	r := NewRouter(pmc, hwstate.NewBayState(4), hwstate.NewSocketState(), Config{})
	r.prevDP0 = 0x90
	r.haveDP0 = true

	r.HandleInterrupt(4, pmcproto.InterruptStatus(1<<4))

	evt := mustReceive[DrivePresenceChanged](t, r.Out)
	if len(evt.Diffs) != 1 || evt.Diffs[0].Index != 0 || evt.Diffs[0].Present {
		t.Fatalf("expected bay 0 to become absent, got %+v", evt.Diffs)
	}
	snap, ok := r.bays.Load(0)
	if !ok || snap.Present {
		t.Fatalf("expected BayState bay 0 present=false, got %+v ok=%v", snap, ok)
	}
}

// A DP0 edge with AutoBayPower on drives a DLS/DLC write, and the
// resulting DE0 read-back must land in BayState.Powered for that bay.
func TestAutoBayPowerRefreshesPowered(t *testing.T) {
	pmc := &fakePMC{dp0: 0x90} // bay 0 now present (bit clear)
	r := NewRouter(pmc, hwstate.NewBayState(4), hwstate.NewSocketState(), Config{AutoBayPower: true})
	r.prevDP0 = 0x91 // bay 0 was absent (bit set)
	r.haveDP0 = true

	r.HandleInterrupt(4, pmcproto.InterruptStatus(1<<4))

	<-r.Out // drain DrivePresenceChanged

	if pmc.setBits&0x1 == 0 {
		t.Fatalf("expected DLS write for bay 0, setBits=%#x", pmc.setBits)
	}
	snap, ok := r.bays.Load(0)
	if !ok || !snap.Powered {
		t.Fatalf("expected BayState bay 0 powered=true after DE0 read-back, got %+v ok=%v", snap, ok)
	}
}

// Wire carries ALERT, ISR=04, STA=6a: the Router emits
// PowerSupplyChanged(socket=1, energized=false).
func TestPowerSupplyChangeSocket1Deenergized(t *testing.T) {
	pmc := &fakePMC{sta: 0x6a}
	r := NewRouter(pmc, hwstate.NewBayState(2), hwstate.NewSocketState(), Config{})

	r.HandleInterrupt(2, pmcproto.InterruptStatus(1<<2))

	evt := mustReceive[PowerSupplyChanged](t, r.Out)
	if evt.Socket != 1 || evt.Energized {
		t.Fatalf("expected socket 1 energized=false, got %+v", evt)
	}
	snap, ok := r.sockets.Load(1)
	if !ok || snap.Energized {
		t.Fatalf("expected SocketState socket 1 energized=false, got %+v ok=%v", snap, ok)
	}
}

// USB-copy press-edge at t=0, release-edge at t=1.5s, threshold 1.0s:
// the Router emits ButtonLong, not ButtonShort.
func TestUSBCopyLongPress(t *testing.T) {
	pmc := &fakePMC{}
	r := NewRouter(pmc, hwstate.NewBayState(2), hwstate.NewSocketState(), Config{LongPressThreshold: time.Second})

	r.HandleInterrupt(3, pmcproto.InterruptStatus(1<<3)) // press edge
	r.buttons[ButtonUSBCopy].pressedAt = timePtr(time.Unix(0, 0))

	r.HandleInterrupt(3, pmcproto.InterruptStatus(1<<3)) // release edge, toggles the same bit back off

	select {
	case evt := <-r.Out:
		long, ok := evt.(ButtonLong)
		if !ok {
			t.Fatalf("expected ButtonLong, got %T", evt)
		}
		if long.Button != ButtonUSBCopy {
			t.Fatalf("expected USB copy button, got %v", long.Button)
		}
	default:
		t.Fatal("expected an event on release")
	}
}

func TestShortPressBelowThreshold(t *testing.T) {
	pmc := &fakePMC{}
	r := NewRouter(pmc, hwstate.NewBayState(2), hwstate.NewSocketState(), Config{LongPressThreshold: time.Second})

	timer := r.buttons[ButtonLCDUp]
	now := time.Now()
	timer.pressedAt = &now

	r.toggled = 0
	r.handleButton(ButtonLCDUp)

	evt := mustReceive[ButtonShort](t, r.Out)
	if evt.Button != ButtonLCDUp {
		t.Fatalf("expected LCD up button, got %v", evt.Button)
	}
}

func mustReceive[T Event](t *testing.T, ch <-chan Event) T {
	t.Helper()
	select {
	case evt := <-ch:
		v, ok := evt.(T)
		if !ok {
			t.Fatalf("expected %T, got %T", v, evt)
		}
		return v
	default:
		t.Fatalf("expected an event, none published")
	}
	var zero T
	return zero
}

func timePtr(t time.Time) *time.Time { return &t }
