//go:build !linux

package scan

import "io/fs"

func changeTime(info fs.FileInfo) int64 {
	return info.ModTime().Unix()
}
