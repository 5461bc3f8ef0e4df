// internal/notify/dispatcher_test.go
package notify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelroland/wdnas-hwdaemon/internal/config"
	"github.com/michaelroland/wdnas-hwdaemon/internal/events"
)

// USB-copy press-edge at t=0, release-edge at t=1.5s, threshold 1.0s:
// the dispatcher runs the long-press hook, not the short one.
func TestDispatchUSBCopyLongPressRunsLongHookOnly(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	registry := map[config.EventName]config.HookConfig{
		config.EventUSBCopyButtonLong: {Command: "/bin/sh", Args: []string{"-c", "echo long >> " + marker}},
		config.EventUSBCopyButton:     {Command: "/bin/sh", Args: []string{"-c", "echo short >> " + marker}},
	}

	d := NewDispatcher(registry)
	d.Start()

	for _, n := range FromRouterEvent(events.ButtonLong{Button: events.ButtonUSBCopy}) {
		d.Dispatch(n)
	}

	d.Stop()
	d.Wait()

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("expected the long hook to have written the marker file: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "long" {
		t.Fatalf("expected only the long hook to run, got %q", got)
	}
}

func TestDispatchUnregisteredEventIsSkipped(t *testing.T) {
	d := NewDispatcher(map[config.EventName]config.HookConfig{})
	d.Start()
	defer d.Stop()

	d.Dispatch(Notification{Event: config.EventFanFault})
	// No registered queue exists; Dispatch must return without panicking
	// or blocking.
}

func TestFromRouterEventDrivePresenceFansOutPerBay(t *testing.T) {
	evt := events.DrivePresenceChanged{
		Diffs: []events.BayDiff{{Index: 0, Present: false}, {Index: 2, Present: true}},
	}
	notifications := FromRouterEvent(evt)
	if len(notifications) != 2 {
		t.Fatalf("expected one notification per bay diff, got %d", len(notifications))
	}
	if notifications[0].Placeholders["drive_bay"] != "0" || notifications[0].Placeholders["state"] != "absent" {
		t.Fatalf("unexpected placeholders for bay 0: %+v", notifications[0].Placeholders)
	}
}
