//go:build !windows

package fsys

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

const chmodSupported = true

func chown(target string, info fs.FileInfo, owner, group string) (bool, error) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false, nil
	}
	uid, gid := int(st.Uid), int(st.Gid)

	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return false, fmt.Errorf("unknown owner %q: %w", owner, err)
		}
		if uid, err = strconv.Atoi(u.Uid); err != nil {
			return false, err
		}
	}
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return false, fmt.Errorf("unknown group %q: %w", group, err)
		}
		if gid, err = strconv.Atoi(g.Gid); err != nil {
			return false, err
		}
	}

	if uid == int(st.Uid) && gid == int(st.Gid) {
		return false, nil
	}
	if err := os.Lchown(target, uid, gid); err != nil {
		return false, fmt.Errorf("failed to chown %s: %w", target, err)
	}
	return true, nil
}
