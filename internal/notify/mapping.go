// internal/notify/mapping.go
package notify

import (
	"fmt"

	"github.com/michaelroland/wdnas-hwdaemon/internal/config"
	"github.com/michaelroland/wdnas-hwdaemon/internal/events"
	"github.com/michaelroland/wdnas-hwdaemon/internal/thermal"
)

// Notification is one dispatchable unit: the event it classifies to,
// plus the placeholder values available to the hook's argument
// template.
type Notification struct {
	Event        config.EventName
	Placeholders map[string]string
}

// FromRouterEvent classifies one events.Event into zero or more
// Notifications. DrivePresenceChanged fans out to one notification per
// changed bay, since each carries a distinct {drive_bay} placeholder.
func FromRouterEvent(evt events.Event) []Notification {
	switch e := evt.(type) {
	case events.PowerSupplyChanged:
		return []Notification{{
			Event: config.EventPowerSupplyChanged,
			Placeholders: map[string]string{
				"socket": fmt.Sprint(e.Socket),
				"state":  energizedState(e.Energized),
			},
		}}

	case events.DrivePresenceChanged:
		out := make([]Notification, 0, len(e.Diffs))
		for _, d := range e.Diffs {
			out = append(out, Notification{
				Event: config.EventDrivePresenceChanged,
				Placeholders: map[string]string{
					"drive_bay": fmt.Sprint(d.Index),
					"state":     presenceState(d.Present),
				},
			})
		}
		return out

	case events.ButtonShort:
		return []Notification{{Event: buttonEvent(e.Button, false)}}

	case events.ButtonLong:
		return []Notification{{Event: buttonEvent(e.Button, true)}}

	default:
		return nil
	}
}

// FromLevelChange classifies a thermal level transition.
func FromLevelChange(lc thermal.LevelChange) Notification {
	return Notification{
		Event: config.EventTemperatureChanged,
		Placeholders: map[string]string{
			"new_level": lc.New.String(),
			"old_level": lc.Old.String(),
		},
	}
}

// FromFanFault classifies a stalled-fan observation.
func FromFanFault(ff thermal.FanFault) Notification {
	return Notification{
		Event: config.EventFanFault,
		Placeholders: map[string]string{
			"monitor_data": fmt.Sprintf("rpm=%d", ff.RPM),
		},
	}
}

func buttonEvent(name events.ButtonName, long bool) config.EventName {
	switch name {
	case events.ButtonUSBCopy:
		if long {
			return config.EventUSBCopyButtonLong
		}
		return config.EventUSBCopyButton
	case events.ButtonLCDUp:
		if long {
			return config.EventLCDUpButtonLong
		}
		return config.EventLCDUpButton
	case events.ButtonLCDDown:
		if long {
			return config.EventLCDDownButtonLong
		}
		return config.EventLCDDownButton
	default:
		return ""
	}
}

func energizedState(energized bool) string {
	if energized {
		return "up"
	}
	return "down"
}

func presenceState(present bool) string {
	if present {
		return "present"
	}
	return "absent"
}
