// Package drive resolves mount points to physical devices, verifies drive
// identity against the catalog, and recovers flaky drives by remounting.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
)

// DeviceInfo is the hardware identity of the device backing a mount point.
type DeviceInfo struct {
	Device        string // e.g. /dev/sdb1
	Disk          string // parent disk, e.g. sdb
	PartitionName string // e.g. sdb1
	Serial        string
	Model         string
	Vendor        string
	Filesystem    string
}

// Resolver maps a mount point to its backing device identity.
type Resolver interface {
	Resolve(ctx context.Context, mountPoint string) (*DeviceInfo, error)
}

// SystemResolver resolves devices from the live mount table and lsblk.
type SystemResolver struct{}

func NewSystemResolver() *SystemResolver {
	return &SystemResolver{}
}

// Resolve finds the device mounted at mountPoint and reads its serial,
// model and vendor from the block-device tree. Every failure here is a
// fatal precondition; a scan never starts against an unidentified device.
func (r *SystemResolver) Resolve(ctx context.Context, mountPoint string) (*DeviceInfo, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("reading mount table: %w", err)
	}

	var device, fstype string
	for _, p := range parts {
		if p.Mountpoint == mountPoint {
			device = p.Device
			fstype = p.Fstype
			break
		}
	}
	if device == "" {
		return nil, fmt.Errorf("nothing mounted at %s", mountPoint)
	}

	tree, err := listBlockDevices(ctx)
	if err != nil {
		return nil, err
	}

	partName := strings.TrimPrefix(device, "/dev/")
	for _, d := range tree {
		for _, child := range d.Children {
			if child.Name != partName {
				continue
			}
			info := &DeviceInfo{
				Device:        device,
				Disk:          d.Name,
				PartitionName: partName,
				Serial:        strings.TrimSpace(d.Serial),
				Model:         strings.TrimSpace(d.Model),
				Vendor:        strings.TrimSpace(d.Vendor),
				Filesystem:    fstype,
			}
			if info.Serial == "" {
				return nil, fmt.Errorf("no readable serial for disk %s", d.Name)
			}
			return info, nil
		}
	}
	return nil, fmt.Errorf("device %s not found in block-device tree", device)
}

type blockDevice struct {
	Name     string        `json:"name"`
	Serial   string        `json:"serial"`
	Model    string        `json:"model"`
	Vendor   string        `json:"vendor"`
	Fstype   string        `json:"fstype"`
	Children []blockDevice `json:"children"`
}

// listBlockDevices queries lsblk for the disk-to-partition tree with
// serials. Also used by the remounter to re-locate a drive whose device
// node moved after a reset.
func listBlockDevices(ctx context.Context) ([]blockDevice, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "lsblk", "-J", "-o", "NAME,SERIAL,MODEL,VENDOR,FSTYPE").Output()
	if err != nil {
		return nil, fmt.Errorf("lsblk: %w", err)
	}

	var result struct {
		BlockDevices []blockDevice `json:"blockdevices"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("parsing lsblk output: %w", err)
	}
	return result.BlockDevices, nil
}
