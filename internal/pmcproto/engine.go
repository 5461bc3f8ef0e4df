// internal/pmcproto/engine.go
package pmcproto

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// InterruptHandler receives one decoded ISR bit per call, dispatched in
// ascending bit order within a single ISR read. Bit 7 (echo
// acknowledgement) is consumed internally by Echo and never reaches a
// handler.
type InterruptHandler func(bit int, status InterruptStatus)

type cmdKind int

const (
	cmdGet cmdKind = iota
	cmdSet
	cmdEcho
)

type cmdResult struct {
	value string
	err   error
}

type pendingCmd struct {
	kind cmdKind
	reg  Register
	done chan cmdResult
}

// EngineConfig tunes request deadlines. Zero values fall back to
// defaults matching the original daemon's observed timeouts.
type EngineConfig struct {
	GetSetTimeout time.Duration
	EchoTimeout   time.Duration
}

// Engine multiplexes getter/setter commands and asynchronous interrupt
// frames over a single Link, enforcing one in-flight command at a time.
type Engine struct {
	link Link

	gate sync.Mutex // held by a caller from issue until completion; enforces the single-slot queue

	pendMu  sync.Mutex
	pending *pendingCmd

	subsMu sync.Mutex
	subs   []InterruptHandler

	getSetTimeout time.Duration
	echoTimeout   time.Duration

	closed   chan struct{}
	closeErr error
	closeOne sync.Once
}

// NewEngine builds an Engine over an already-open Link. Call Run in its
// own goroutine before issuing any command.
func NewEngine(link Link, cfg EngineConfig) *Engine {
	getSet := cfg.GetSetTimeout
	if getSet <= 0 {
		getSet = 2 * time.Second
	}
	echo := cfg.EchoTimeout
	if echo <= 0 {
		echo = 5 * time.Second
	}
	return &Engine{
		link:          link,
		getSetTimeout: getSet,
		echoTimeout:   echo,
		closed:        make(chan struct{}),
	}
}

// SubscribeInterrupts registers a sink for decoded interrupt bits. Must
// be called before Run to avoid racing the first ALERT.
func (e *Engine) SubscribeInterrupts(h InterruptHandler) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	e.subs = append(e.subs, h)
}

// Run reads frames off the link until ctx is cancelled or the link
// fails. It owns the only call to link.ReadFrame for the lifetime of
// the engine.
func (e *Engine) Run(ctx context.Context) {
	defer e.shutdown(ErrClosed)

	type readResult struct {
		frame string
		err   error
	}
	frames := make(chan readResult, 1)

	go func() {
		for {
			frame, err := e.link.ReadFrame()
			frames <- readResult{frame, err}
			if err != nil {
				return
			}
		}
	}()

	// next hands the ALERT follow-up its ISR reply from the same reader
	// goroutine, so no second ReadFrame call ever competes for the wire.
	next := func() (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case rr := <-frames:
			return rr.frame, rr.err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case rr := <-frames:
			if rr.err != nil {
				e.failPending(rr.err)
				return
			}
			e.handleFrame(rr.frame, next)
		}
	}
}

func (e *Engine) handleFrame(frame string, next func() (string, error)) {
	if frame == "ALERT" {
		e.handleAlert(next)
		return
	}
	e.completeFromFrame(frame)
}

// handleAlert implements the ISR handling rule: complete any pending
// echo immediately, then always issue exactly one ISR read and dispatch
// its bits before accepting the next user command.
func (e *Engine) handleAlert(next func() (string, error)) {
	e.pendMu.Lock()
	if e.pending != nil && e.pending.kind == cmdEcho {
		p := e.pending
		e.pending = nil
		e.pendMu.Unlock()
		p.done <- cmdResult{}
	} else {
		e.pendMu.Unlock()
	}

	if err := e.link.WriteFrame(string(RegInterruptStat)); err != nil {
		return
	}
	frame, err := next()
	if err != nil {
		return
	}

	code, value, ok := splitAssignment(frame)
	if !ok || Register(code) != RegInterruptStat {
		return
	}
	raw, err := strconv.ParseUint(value, 16, 8)
	if err != nil {
		return
	}

	status := InterruptStatus(raw)
	e.subsMu.Lock()
	handlers := append([]InterruptHandler(nil), e.subs...)
	e.subsMu.Unlock()

	for _, bit := range status.Bits() {
		if bit == 7 {
			continue
		}
		for _, h := range handlers {
			h(bit, status)
		}
	}
}

// completeFromFrame routes a non-ALERT frame to the currently pending
// command, if any. A frame with no pending recipient is an unsolicited
// reply the wire should never produce; it is dropped.
func (e *Engine) completeFromFrame(frame string) {
	e.pendMu.Lock()
	p := e.pending
	if p == nil {
		e.pendMu.Unlock()
		return
	}

	if frame == "ERR" {
		e.pending = nil
		e.pendMu.Unlock()
		p.done <- cmdResult{err: ErrCommandRejected}
		return
	}

	switch p.kind {
	case cmdGet:
		code, value, ok := splitAssignment(frame)
		if !ok || Register(code) != p.reg {
			e.pendMu.Unlock()
			p.done <- cmdResult{err: ErrUnexpectedFrame}
			e.pendMu.Lock()
			e.pending = nil
			e.pendMu.Unlock()
			return
		}
		e.pending = nil
		e.pendMu.Unlock()
		p.done <- cmdResult{value: value}
	case cmdSet:
		if frame != "ACK" {
			e.pending = nil
			e.pendMu.Unlock()
			p.done <- cmdResult{err: ErrUnexpectedFrame}
			return
		}
		e.pending = nil
		e.pendMu.Unlock()
		p.done <- cmdResult{}
	default:
		e.pendMu.Unlock()
	}
}

func (e *Engine) failPending(err error) {
	e.pendMu.Lock()
	p := e.pending
	e.pending = nil
	e.pendMu.Unlock()
	if p != nil {
		p.done <- cmdResult{err: fmt.Errorf("%w: %v", ErrLinkIO, err)}
	}
}

func (e *Engine) shutdown(err error) {
	e.closeOne.Do(func() {
		e.closeErr = err
		close(e.closed)
	})
}

// Get issues a getter and returns its decoded value, retrying once on a
// transport-level failure before surfacing the error.
func (e *Engine) Get(reg Register) (string, error) {
	d, ok := lookup(reg)
	if !ok || d.access == accessWO {
		return "", ErrUnsupported
	}

	v, err := e.doGet(reg)
	if isRetryable(err) {
		v, err = e.doGet(reg)
	}
	return v, err
}

func (e *Engine) doGet(reg Register) (string, error) {
	e.gate.Lock()
	defer e.gate.Unlock()

	p := &pendingCmd{kind: cmdGet, reg: reg, done: make(chan cmdResult, 1)}
	e.pendMu.Lock()
	e.pending = p
	e.pendMu.Unlock()

	if err := e.link.WriteFrame(string(reg)); err != nil {
		e.pendMu.Lock()
		e.pending = nil
		e.pendMu.Unlock()
		return "", fmt.Errorf("%w: %v", ErrLinkIO, err)
	}

	select {
	case r := <-p.done:
		return r.value, r.err
	case <-time.After(e.getSetTimeout):
		e.pendMu.Lock()
		if e.pending == p {
			e.pending = nil
		}
		e.pendMu.Unlock()
		return "", ErrTimeout
	case <-e.closed:
		return "", e.closeErr
	}
}

// Set issues a setter and waits for ACK, retrying once on a
// transport-level failure before surfacing the error.
func (e *Engine) Set(reg Register, value string) error {
	d, ok := lookup(reg)
	if !ok || d.access == accessRO {
		return ErrUnsupported
	}

	err := e.doSet(reg, value)
	if isRetryable(err) {
		err = e.doSet(reg, value)
	}
	return err
}

func (e *Engine) doSet(reg Register, value string) error {
	e.gate.Lock()
	defer e.gate.Unlock()

	p := &pendingCmd{kind: cmdSet, reg: reg, done: make(chan cmdResult, 1)}
	e.pendMu.Lock()
	e.pending = p
	e.pendMu.Unlock()

	frame := string(reg) + "=" + value
	if err := e.link.WriteFrame(frame); err != nil {
		e.pendMu.Lock()
		e.pending = nil
		e.pendMu.Unlock()
		return fmt.Errorf("%w: %v", ErrLinkIO, err)
	}

	select {
	case r := <-p.done:
		return r.err
	case <-time.After(e.getSetTimeout):
		e.pendMu.Lock()
		if e.pending == p {
			e.pending = nil
		}
		e.pendMu.Unlock()
		return ErrTimeout
	case <-e.closed:
		return e.closeErr
	}
}

// Echo writes ECH=value and waits for the ALERT/ISR-bit-7 round trip
// that the PMC uses as the echo acknowledgement, rather than an ACK.
func (e *Engine) Echo(value string) error {
	e.gate.Lock()
	defer e.gate.Unlock()

	p := &pendingCmd{kind: cmdEcho, reg: RegEcho, done: make(chan cmdResult, 1)}
	e.pendMu.Lock()
	e.pending = p
	e.pendMu.Unlock()

	frame := string(RegEcho) + "=" + value
	if err := e.link.WriteFrame(frame); err != nil {
		e.pendMu.Lock()
		e.pending = nil
		e.pendMu.Unlock()
		return fmt.Errorf("%w: %v", ErrLinkIO, err)
	}

	select {
	case r := <-p.done:
		return r.err
	case <-time.After(e.echoTimeout):
		e.pendMu.Lock()
		if e.pending == p {
			e.pending = nil
		}
		e.pendMu.Unlock()
		return ErrTimeout
	case <-e.closed:
		return e.closeErr
	}
}

func isRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case err == ErrLinkIO, err == ErrFrameMalformed, err == ErrUnexpectedFrame:
		return true
	}
	return strings.Contains(err.Error(), ErrLinkIO.Error()) ||
		strings.Contains(err.Error(), ErrUnexpectedFrame.Error())
}

// splitAssignment splits a CODE=VALUE frame. ok is false for anything
// else, including bare ACK/ERR/ALERT tokens.
func splitAssignment(frame string) (code, value string, ok bool) {
	idx := strings.IndexByte(frame, '=')
	if idx <= 0 {
		return "", "", false
	}
	return frame[:idx], frame[idx+1:], true
}
