// internal/runtime/privresolve.go
package runtime

import (
	"fmt"
	"os/user"
	"strconv"
)

// supplementaryGroups lists the extra groups the daemon's dropped-to
// user needs membership in to keep touching the PMC device node after
// startup, mirroring the original daemon's fixed group list.
var supplementaryGroups = []string{"i2c"}

// ResolvePrivDrop resolves a configured user/group name or numeric ID
// into a PrivDrop. An empty group falls back to the user's primary
// group, matching the original daemon's behavior.
func ResolvePrivDrop(userName, groupName string) (PrivDrop, error) {
	u, err := lookupUser(userName)
	if err != nil {
		return PrivDrop{}, fmt.Errorf("runtime: resolve user %q: %w", userName, err)
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return PrivDrop{}, fmt.Errorf("runtime: user %q has non-numeric gid %q", userName, u.Gid)
	}
	if groupName != "" {
		g, err := lookupGroup(groupName)
		if err != nil {
			return PrivDrop{}, fmt.Errorf("runtime: resolve group %q: %w", groupName, err)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return PrivDrop{}, fmt.Errorf("runtime: group %q has non-numeric gid %q", groupName, g.Gid)
		}
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return PrivDrop{}, fmt.Errorf("runtime: user %q has non-numeric uid %q", userName, u.Uid)
	}

	suppl := make([]int, 0, len(supplementaryGroups))
	for _, name := range supplementaryGroups {
		g, err := lookupGroup(name)
		if err != nil {
			// Optional groups (e.g. i2c on a board without that bus) are
			// skipped rather than failing startup.
			continue
		}
		if gGid, err := strconv.Atoi(g.Gid); err == nil {
			suppl = append(suppl, gGid)
		}
	}

	return PrivDrop{UID: uid, GID: gid, SupplGIDs: suppl, HasTarget: true}, nil
}

func lookupUser(name string) (*user.User, error) {
	if u, err := user.Lookup(name); err == nil {
		return u, nil
	}
	return user.LookupId(name)
}

func lookupGroup(name string) (*user.Group, error) {
	if g, err := user.LookupGroup(name); err == nil {
		return g, nil
	}
	return user.LookupGroupId(name)
}
