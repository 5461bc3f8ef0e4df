// internal/pmcproto/engine_test.go
package pmcproto

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeLink is an in-memory Link. Writes land on writes; reads come
// from reads. Tests drive the wire by feeding reads and draining
// writes in a goroutine, same shape as the real half-duplex PMC line.
type fakeLink struct {
	writes chan string
	reads  chan string
	errs   chan error
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		writes: make(chan string, 8),
		reads:  make(chan string, 8),
		errs:   make(chan error, 1),
	}
}

func (f *fakeLink) ReadFrame() (string, error) {
	select {
	case fr := <-f.reads:
		return fr, nil
	case err := <-f.errs:
		return "", err
	}
}

func (f *fakeLink) WriteFrame(frame string) error {
	f.writes <- frame
	return nil
}

func (f *fakeLink) Close() error { return nil }

func newTestEngine(t *testing.T) (*Engine, *fakeLink, context.CancelFunc) {
	t.Helper()
	link := newFakeLink()
	eng := NewEngine(link, EngineConfig{GetSetTimeout: time.Second, EchoTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	return eng, link, cancel
}

func TestEngineGetRoundTrip(t *testing.T) {
	eng, link, cancel := newTestEngine(t)
	defer cancel()

	go func() {
		if got := <-link.writes; got != "TMP" {
			t.Errorf("expected write TMP, got %q", got)
		}
		link.reads <- "TMP=2A"
	}()

	v, err := eng.Get(RegTemperature)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if v != "2A" {
		t.Fatalf("expected value 2A, got %q", v)
	}
}

func TestEngineSetWaitsForACK(t *testing.T) {
	eng, link, cancel := newTestEngine(t)
	defer cancel()

	go func() {
		if got := <-link.writes; got != "FAN=63" {
			t.Errorf("expected write FAN=63, got %q", got)
		}
		link.reads <- "ACK"
	}()

	if err := eng.Set(RegFanDuty, "63"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
}

func TestEngineSetRejected(t *testing.T) {
	eng, link, cancel := newTestEngine(t)
	defer cancel()

	go func() {
		<-link.writes
		link.reads <- "ERR"
	}()

	err := eng.Set(RegFanDuty, "63")
	if !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("expected ErrCommandRejected, got %v", err)
	}
}

func TestEngineUnsupportedRegister(t *testing.T) {
	eng, _, cancel := newTestEngine(t)
	defer cancel()

	if _, err := eng.Get(RegUpdate); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for UPD get, got %v", err)
	}
	if err := eng.Set(RegUpdate, "1"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for UPD set, got %v", err)
	}
}

// TestEngineAlertDispatchesAscendingBitOrder encodes concrete scenario
// 2/3 from the router properties: a single ALERT/ISR round trip with
// multiple bits set must notify subscribers in ascending bit order.
func TestEngineAlertDispatchesAscendingBitOrder(t *testing.T) {
	eng, link, cancel := newTestEngine(t)
	defer cancel()

	var seen []int
	done := make(chan struct{})
	eng.SubscribeInterrupts(func(bit int, status InterruptStatus) {
		seen = append(seen, bit)
		if len(seen) == 2 {
			close(done)
		}
	})

	link.reads <- "ALERT"
	go func() {
		if got := <-link.writes; got != "ISR" {
			t.Errorf("expected ISR follow-up write, got %q", got)
		}
		link.reads <- "ISR=14" // bits 2 and 4
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interrupt dispatch")
	}

	if len(seen) != 2 || seen[0] != 2 || seen[1] != 4 {
		t.Fatalf("expected bits [2 4] in order, got %v", seen)
	}
}

// TestEngineEchoCompletesOnAlert encodes the ECH completion rule: Echo
// completes when ALERT arrives while it is pending, not on ACK.
func TestEngineEchoCompletesOnAlert(t *testing.T) {
	eng, link, cancel := newTestEngine(t)
	defer cancel()

	go func() {
		if got := <-link.writes; got != "ECH=FF" {
			t.Errorf("expected write ECH=FF, got %q", got)
		}
		link.reads <- "ALERT"
		if got := <-link.writes; got != "ISR" {
			t.Errorf("expected ISR follow-up write, got %q", got)
		}
		link.reads <- "ISR=80" // bit 7 only: pure echo ack
	}()

	if err := eng.Echo("FF"); err != nil {
		t.Fatalf("Echo returned error: %v", err)
	}
}

// TestEngineOneISRReadPerAlert encodes the testable property that
// exactly one ISR read is issued per observed ALERT frame.
func TestEngineOneISRReadPerAlert(t *testing.T) {
	eng, link, cancel := newTestEngine(t)
	defer cancel()

	isrWrites := make(chan struct{}, 4)
	go func() {
		for w := range link.writes {
			if w == "ISR" {
				isrWrites <- struct{}{}
			}
		}
	}()

	link.reads <- "ALERT"
	link.reads <- "ISR=00"

	select {
	case <-isrWrites:
	case <-time.After(time.Second):
		t.Fatal("expected exactly one ISR write")
	}

	select {
	case <-isrWrites:
		t.Fatal("unexpected second ISR write for a single ALERT")
	case <-time.After(50 * time.Millisecond):
	}
	_ = eng
}
