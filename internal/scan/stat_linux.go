//go:build linux

package scan

import (
	"io/fs"
	"syscall"
)

// changeTime returns the inode change time, the closest thing Linux
// filesystems keep to a creation timestamp.
func changeTime(info fs.FileInfo) int64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ctim.Sec
	}
	return info.ModTime().Unix()
}
