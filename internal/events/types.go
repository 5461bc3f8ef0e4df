// internal/events/types.go
package events

import "time"

// Event is implemented by every concrete event the Router publishes.
// It carries no behavior; it exists only so a single outbound channel
// can carry the whole vocabulary.
type Event interface {
	eventMarker()
}

type base struct{ At time.Time }

func (base) eventMarker() {}

// PowerSupplyChanged is emitted after the STA follow-up read confirms
// the socket's current energized state.
type PowerSupplyChanged struct {
	base
	Socket    int // 1 or 2
	Energized bool
}

// BayDiff is one bay's presence transition within a single DP0 diff.
type BayDiff struct {
	Index   int
	Present bool
}

// DrivePresenceChanged carries the full new/previous masks and the
// per-bay diff, as required by the Notification Dispatcher's
// placeholder substitution.
type DrivePresenceChanged struct {
	base
	NewMask, OldMask uint8
	Diffs            []BayDiff
}

// ButtonName identifies a front-panel button.
type ButtonName string

const (
	ButtonUSBCopy ButtonName = "usb_copy_button"
	ButtonLCDUp   ButtonName = "lcd_up_button"
	ButtonLCDDown ButtonName = "lcd_down_button"
)

// ButtonShort is emitted when a button is released within the
// long-press threshold.
type ButtonShort struct {
	base
	Button ButtonName
}

// ButtonLong is emitted when a button is released after the long-press
// threshold. A press that is never released emits nothing.
type ButtonLong struct {
	base
	Button ButtonName
}
