//go:build !linux

// internal/runtime/privdrop_other.go
package runtime

import "errors"

// ErrUnsupportedPlatform is returned by dropPrivileges on platforms
// with no capability-set/setresuid equivalent wired up.
var ErrUnsupportedPlatform = errors.New("runtime: privilege drop unsupported on this platform")

func dropPrivileges(PrivDrop) error {
	return ErrUnsupportedPlatform
}
