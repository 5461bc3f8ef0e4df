//go:build linux

// internal/runtime/privdrop_linux.go
package runtime

import (
	"fmt"
	"syscall"
)

// dropPrivileges drops real/effective/saved group and user IDs to the
// configured target, in the same order as the original daemon:
// supplementary groups first, then group, then user last (user must go
// last or the process loses permission to change its own group).
func dropPrivileges(p PrivDrop) error {
	if err := syscall.Setgroups(p.SupplGIDs); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := syscall.Setresgid(p.GID, p.GID, p.GID); err != nil {
		return fmt.Errorf("setresgid: %w", err)
	}
	if err := syscall.Setresuid(p.UID, p.UID, p.UID); err != nil {
		return fmt.Errorf("setresuid: %w", err)
	}
	return nil
}
