package drive

import (
	"errors"
	"strings"
	"syscall"
)

// IsTransientIO classifies per-file errors that a remount can plausibly
// fix: bus drops surfacing as EIO, drives re-enumerating with stale
// permissions, stat calls against a vanished mount. Everything else is a
// real error and propagates.
func IsTransientIO(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EIO, syscall.EACCES, syscall.ENODEV, syscall.ENXIO:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range []string{
		"input/output error",
		"permission denied",
		"no such device",
		"transport endpoint is not connected",
	} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
