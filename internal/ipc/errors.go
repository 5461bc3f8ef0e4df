// internal/ipc/errors.go
package ipc

import "errors"

// ErrMalformedRequest is returned by ParseRequest for anything that
// does not match one of the recognized operations.
var ErrMalformedRequest = errors.New("ipc: malformed request")
