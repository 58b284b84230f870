//go:build !windows

package manifest

import (
	"io/fs"
	"os/user"
	"strconv"
	"syscall"
)

// fileOwner resolves the owning user and group names (Unix).
func fileOwner(info fs.FileInfo) (string, string) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", ""
	}

	var username, group string
	if u, err := user.LookupId(strconv.FormatUint(uint64(stat.Uid), 10)); err == nil {
		username = u.Username
	}
	if g, err := user.LookupGroupId(strconv.FormatUint(uint64(stat.Gid), 10)); err == nil {
		group = g.Name
	}
	return username, group
}
