// internal/pmcproto/errors.go
package pmcproto

import "errors"

// Error taxonomy is closed: every failure the engine can produce wraps
// exactly one of these sentinels, so callers can branch with errors.Is
// without caring about the underlying transport.
var (
	// ErrLinkIO means the serial link itself failed (open/read/write).
	ErrLinkIO = errors.New("pmcproto: link io error")

	// ErrFrameMalformed means a frame was received but could not be
	// parsed as CODE=VALUE, ACK, ALERT, or ERR.
	ErrFrameMalformed = errors.New("pmcproto: malformed frame")

	// ErrCommandRejected means the PMC replied ERR to a request.
	ErrCommandRejected = errors.New("pmcproto: command rejected")

	// ErrTimeout means no reply arrived within the request deadline.
	ErrTimeout = errors.New("pmcproto: command timed out")

	// ErrUnexpectedFrame means a reply arrived that does not match the
	// outstanding request (wrong register code, ACK for a getter, etc).
	ErrUnexpectedFrame = errors.New("pmcproto: unexpected frame")

	// ErrUnsupported means the register does not support the requested
	// direction, or is the deliberately unimplemented UPD register.
	ErrUnsupported = errors.New("pmcproto: unsupported register operation")

	// ErrClosed means the engine has been shut down.
	ErrClosed = errors.New("pmcproto: engine closed")
)
