// internal/ipc/handler.go
package ipc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/michaelroland/wdnas-hwdaemon/internal/hwstate"
)

// Backend is the full surface one IPC connection can exercise. There
// must be no other version of this interface anywhere; production code
// gets it from the Controller, tests get it from a fake.
type Backend interface {
	Version() (string, error)
	Thermal() hwstate.ThermalSnapshot
	Bays() []hwstate.BaySnapshot
	Sockets() []hwstate.SocketSnapshot
	SetLCDLines(line1, line2 string) error
	SetBacklight(pct uint8) error
	SetLED(mask uint8) error
	Shutdown() error
}

// handle dispatches one parsed request to the backend and returns the
// response line(s) to write back, newline-terminated.
func handle(req Request, b Backend) string {
	switch req.Op {
	case OpVersion:
		v, err := b.Version()
		if err != nil {
			return errLine(err.Error())
		}
		return "VERSION " + v + "\n"

	case OpTemperature:
		return formatTemperature(b.Thermal())

	case OpFan:
		t := b.Thermal()
		return fmt.Sprintf("FAN duty=%d target=%d rpm=%d\n", t.FanDuty, t.FanTarget, t.FanRPM)

	case OpDrives:
		return formatDrives(b.Bays())

	case OpPower:
		return formatPower(b.Sockets())

	case OpLCDSet:
		if err := b.SetLCDLines(req.Line1, req.Line2); err != nil {
			return errLine(err.Error())
		}
		return ackLine()

	case OpLCDBacklit:
		if err := b.SetBacklight(req.Percent); err != nil {
			return errLine(err.Error())
		}
		return ackLine()

	case OpLED:
		if err := b.SetLED(req.LEDMask); err != nil {
			return errLine(err.Error())
		}
		return ackLine()

	case OpShutdown:
		if err := b.Shutdown(); err != nil {
			return errLine(err.Error())
		}
		return ackLine()

	default:
		return errLine("unrecognized operation")
	}
}

func formatTemperature(t hwstate.ThermalSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TEMP board=%.1f", t.BoardTempC)

	devs := make([]string, 0, len(t.DiskTempsC))
	for dev := range t.DiskTempsC {
		devs = append(devs, dev)
	}
	sort.Strings(devs)
	for _, dev := range devs {
		fmt.Fprintf(&b, " %s=%.1f", dev, t.DiskTempsC[dev])
	}
	b.WriteByte('\n')
	return b.String()
}

func formatDrives(bays []hwstate.BaySnapshot) string {
	var b strings.Builder
	b.WriteString("DRIVES")
	for _, bay := range bays {
		fmt.Fprintf(&b, " bay%d:present=%t,powered=%t,alert=%s",
			bay.Index, bay.Present, bay.Powered, ledStateName(bay.AlertLED))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatPower(sockets []hwstate.SocketSnapshot) string {
	var b strings.Builder
	b.WriteString("POWER")
	sorted := append([]hwstate.SocketSnapshot(nil), sockets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	for _, s := range sorted {
		fmt.Fprintf(&b, " socket%d=%t", s.Index, s.Energized)
	}
	b.WriteByte('\n')
	return b.String()
}

func ledStateName(s hwstate.LEDState) string {
	switch s {
	case hwstate.LEDOn:
		return "on"
	case hwstate.LEDBlinking:
		return "blinking"
	default:
		return "off"
	}
}
