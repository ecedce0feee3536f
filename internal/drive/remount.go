package drive

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/drivedex/drivedex/internal/clock"
	"github.com/drivedex/drivedex/internal/logger"
)

// Remounter tries to bring a flaky drive back by unmounting and
// remounting it. Recover returns the number of attempts used and an error
// when every attempt failed.
type Remounter interface {
	Recover(ctx context.Context, mountPoint, serial, partitionName string) (int, error)
}

// SystemRemounter recovers drives with umount/mount against the live
// block-device tree, re-locating the partition by disk serial in case the
// device node changed after a bus reset.
type SystemRemounter struct {
	Clock    clock.Clock
	Attempts int
	Backoff  time.Duration
}

func NewSystemRemounter(clk clock.Clock, attempts int, backoff time.Duration) *SystemRemounter {
	return &SystemRemounter{Clock: clk, Attempts: attempts, Backoff: backoff}
}

func (r *SystemRemounter) Recover(ctx context.Context, mountPoint, serial, partitionName string) (int, error) {
	// Unmount first; an already-unmounted target is fine.
	if out, err := exec.CommandContext(ctx, "umount", mountPoint).CombinedOutput(); err != nil {
		logger.Debugf("umount %s: %v (%s)", mountPoint, err, out)
	}

	for attempt := 1; attempt <= r.Attempts; attempt++ {
		if ctx.Err() != nil {
			return attempt - 1, ctx.Err()
		}

		device, err := r.locatePartition(ctx, serial, partitionName)
		if err != nil {
			logger.Warnf("remount attempt %d/%d: %v", attempt, r.Attempts, err)
		} else {
			out, err := exec.CommandContext(ctx, "mount", device, mountPoint).CombinedOutput()
			if err != nil {
				logger.Warnf("remount attempt %d/%d: mount %s: %v (%s)",
					attempt, r.Attempts, device, err, out)
			} else if mounted, err := r.isMounted(ctx, mountPoint); err == nil && mounted {
				logger.Infof("remounted %s at %s on attempt %d", device, mountPoint, attempt)
				return attempt, nil
			} else {
				logger.Warnf("remount attempt %d/%d: mount reported success but %s absent from mount table",
					attempt, r.Attempts, mountPoint)
			}
		}

		if attempt < r.Attempts {
			r.Clock.Sleep(ctx, r.Backoff)
		}
	}
	return r.Attempts, fmt.Errorf("drive with serial %s not recoverable after %d remount attempts", serial, r.Attempts)
}

// locatePartition finds the current device node of the partition whose
// parent disk carries the given serial. The partition is matched by name
// suffix so sdb1 still matches after the disk reappears as sdc (sdc1).
func (r *SystemRemounter) locatePartition(ctx context.Context, serial, partitionName string) (string, error) {
	tree, err := listBlockDevices(ctx)
	if err != nil {
		return "", err
	}
	return matchPartition(tree, serial, partitionName)
}

func matchPartition(tree []blockDevice, serial, partitionName string) (string, error) {
	suffix := partitionSuffix(partitionName)
	for _, d := range tree {
		if d.Serial != serial {
			continue
		}
		for _, child := range d.Children {
			if partitionSuffix(child.Name) == suffix {
				return "/dev/" + child.Name, nil
			}
		}
		return "", fmt.Errorf("disk %s (serial %s) present but has no partition matching %q",
			d.Name, serial, partitionName)
	}
	return "", fmt.Errorf("no disk with serial %s visible", serial)
}

// partitionSuffix strips the disk prefix from a partition name, keeping
// the trailing partition digits (sdb1 -> 1, nvme0n1p2 -> 2).
func partitionSuffix(name string) string {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	return name[i:]
}

func (r *SystemRemounter) isMounted(ctx context.Context, mountPoint string) (bool, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return false, err
	}
	for _, p := range parts {
		if p.Mountpoint == mountPoint {
			return true, nil
		}
	}
	return false, nil
}
