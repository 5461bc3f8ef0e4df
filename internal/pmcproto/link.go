// internal/pmcproto/link.go
package pmcproto

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

// Link is the minimal framed-transport interface the Protocol Engine
// needs. There must be NO other version of this interface anywhere:
// production code gets it from OpenLink, tests get it from a fake.
type Link interface {
	// ReadFrame blocks until one CR-terminated frame has been read and
	// returns it with the terminator stripped and whitespace trimmed.
	// Empty frames (bare CR, or CRLF noise) are never returned: the
	// implementation loops internally until it has real content.
	ReadFrame() (string, error)

	// WriteFrame appends the CR terminator and writes the frame as one
	// logical write, serialized against concurrent callers.
	WriteFrame(frame string) error

	Close() error
}

// serialLink is the real Link backed by the PMC UART.
type serialLink struct {
	port serial.Port
	mu   sync.Mutex // serializes WriteFrame against concurrent callers
	r    *bufio.Reader
}

// LinkConfig configures the PMC serial port.
type LinkConfig struct {
	Device  string
	Baud    int
	Timeout time.Duration
}

// OpenLink opens the PMC UART at the fixed 8-N-1 framing the hardware
// uses. Baud defaults to 9600 when zero.
func OpenLink(cfg LinkConfig) (Link, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLinkIO, cfg.Device, err)
	}

	return &serialLink{
		port: port,
		r:    bufio.NewReader(port),
	}, nil
}

func (l *serialLink) ReadFrame() (string, error) {
	for {
		raw, err := l.r.ReadString('\r')
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("%w: link closed", ErrLinkIO)
			}
			return "", fmt.Errorf("%w: read: %v", ErrLinkIO, err)
		}

		frame := strings.TrimSpace(raw)
		if frame == "" {
			continue
		}
		return frame, nil
	}
}

func (l *serialLink) WriteFrame(frame string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []byte(frame + "\r")
	for len(out) > 0 {
		n, err := l.port.Write(out)
		if err != nil {
			return fmt.Errorf("%w: write: %v", ErrLinkIO, err)
		}
		out = out[n:]
	}
	return nil
}

func (l *serialLink) Close() error {
	return l.port.Close()
}
