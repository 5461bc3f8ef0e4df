// internal/config/hooks.go
package config

import (
	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// EventName identifies one hookable event. The set is closed and
// matches the Event Router's vocabulary plus the fan_fault supplement.
type EventName string

const (
	EventSystemUp               EventName = "system_up"
	EventSystemDown             EventName = "system_down"
	EventDrivePresenceChanged   EventName = "drive_presence_changed"
	EventPowerSupplyChanged     EventName = "power_supply_changed"
	EventTemperatureChanged     EventName = "temperature_changed"
	EventUSBCopyButton          EventName = "usb_copy_button"
	EventUSBCopyButtonLong      EventName = "usb_copy_button_long"
	EventLCDUpButton            EventName = "lcd_up_button"
	EventLCDUpButtonLong        EventName = "lcd_up_button_long"
	EventLCDDownButton          EventName = "lcd_down_button"
	EventLCDDownButtonLong      EventName = "lcd_down_button_long"
	EventFanFault               EventName = "fan_fault"
)

// allEvents lists every recognized event.
var allEvents = []EventName{
	EventSystemUp, EventSystemDown, EventDrivePresenceChanged,
	EventPowerSupplyChanged, EventTemperatureChanged,
	EventUSBCopyButton, EventUSBCopyButtonLong,
	EventLCDUpButton, EventLCDUpButtonLong,
	EventLCDDownButton, EventLCDDownButtonLong,
	EventFanFault,
}

// HookConfig is one event's hook: the program to run and its
// placeholder-templated argument list.
type HookConfig struct {
	Command string
	Args    []string
}

// ArgsList accepts either a YAML sequence of strings, used verbatim, or
// a single shell-like string tokenized with shlex - giving operators a
// more forgiving config surface for hook argument templates.
type ArgsList []string

func (a *ArgsList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*a = items
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	tokens, err := shlex.Split(s)
	if err != nil {
		return err
	}
	*a = tokens
	return nil
}

// HooksConfig holds one Command/Args pair per recognized event. Keys
// are flat, matching the vendor config file's "<event>_command" /
// "<event>_args" naming rather than a nested hooks: map.
type HooksConfig struct {
	SystemUpCommand   string   `yaml:"system_up_command"`
	SystemUpArgs      ArgsList `yaml:"system_up_args"`
	SystemDownCommand string   `yaml:"system_down_command"`
	SystemDownArgs    ArgsList `yaml:"system_down_args"`

	DrivePresenceChangedCommand string   `yaml:"drive_presence_changed_command"`
	DrivePresenceChangedArgs    ArgsList `yaml:"drive_presence_changed_args"`

	PowerSupplyChangedCommand string   `yaml:"power_supply_changed_command"`
	PowerSupplyChangedArgs    ArgsList `yaml:"power_supply_changed_args"`

	TemperatureChangedCommand string   `yaml:"temperature_changed_command"`
	TemperatureChangedArgs    ArgsList `yaml:"temperature_changed_args"`

	USBCopyButtonCommand     string   `yaml:"usb_copy_button_command"`
	USBCopyButtonArgs        ArgsList `yaml:"usb_copy_button_args"`
	USBCopyButtonLongCommand string   `yaml:"usb_copy_button_long_command"`
	USBCopyButtonLongArgs    ArgsList `yaml:"usb_copy_button_long_args"`

	LCDUpButtonCommand     string   `yaml:"lcd_up_button_command"`
	LCDUpButtonArgs        ArgsList `yaml:"lcd_up_button_args"`
	LCDUpButtonLongCommand string   `yaml:"lcd_up_button_long_command"`
	LCDUpButtonLongArgs    ArgsList `yaml:"lcd_up_button_long_args"`

	LCDDownButtonCommand     string   `yaml:"lcd_down_button_command"`
	LCDDownButtonArgs        ArgsList `yaml:"lcd_down_button_args"`
	LCDDownButtonLongCommand string   `yaml:"lcd_down_button_long_command"`
	LCDDownButtonLongArgs    ArgsList `yaml:"lcd_down_button_long_args"`

	FanFaultCommand string   `yaml:"fan_fault_command"`
	FanFaultArgs    ArgsList `yaml:"fan_fault_args"`
}

// Registry builds the event->hook map the Notification Dispatcher
// consumes. Events with an empty command are omitted: there is nothing
// to dispatch for them.
func (h HooksConfig) Registry() map[EventName]HookConfig {
	pairs := h.all()
	reg := make(map[EventName]HookConfig, len(pairs))
	for name, hook := range pairs {
		if hook.Command == "" {
			continue
		}
		reg[name] = hook
	}
	return reg
}

// all returns every event's Command/Args pair, including those with
// an empty command.
func (h HooksConfig) all() map[EventName]HookConfig {
	return map[EventName]HookConfig{
		EventSystemUp:             {h.SystemUpCommand, h.SystemUpArgs},
		EventSystemDown:           {h.SystemDownCommand, h.SystemDownArgs},
		EventDrivePresenceChanged: {h.DrivePresenceChangedCommand, h.DrivePresenceChangedArgs},
		EventPowerSupplyChanged:   {h.PowerSupplyChangedCommand, h.PowerSupplyChangedArgs},
		EventTemperatureChanged:   {h.TemperatureChangedCommand, h.TemperatureChangedArgs},
		EventUSBCopyButton:        {h.USBCopyButtonCommand, h.USBCopyButtonArgs},
		EventUSBCopyButtonLong:    {h.USBCopyButtonLongCommand, h.USBCopyButtonLongArgs},
		EventLCDUpButton:          {h.LCDUpButtonCommand, h.LCDUpButtonArgs},
		EventLCDUpButtonLong:      {h.LCDUpButtonLongCommand, h.LCDUpButtonLongArgs},
		EventLCDDownButton:        {h.LCDDownButtonCommand, h.LCDDownButtonArgs},
		EventLCDDownButtonLong:    {h.LCDDownButtonLongCommand, h.LCDDownButtonLongArgs},
		EventFanFault:             {h.FanFaultCommand, h.FanFaultArgs},
	}
}
