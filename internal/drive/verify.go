package drive

import (
	"context"
	"errors"
	"fmt"

	"github.com/drivedex/drivedex/internal/catalog"
	"github.com/drivedex/drivedex/internal/logger"
)

// ErrIdentityDeclined is returned when the operator answers "no" to an
// identity-mismatch confirmation. The caller maps it to its own exit code.
var ErrIdentityDeclined = errors.New("drive identity mismatch declined by operator")

// ConfirmFunc asks the operator a yes/no question and reports the answer.
type ConfirmFunc func(prompt string) bool

// Verifier checks that the hardware behind a mount point is the drive the
// catalog says it is before any scan touches the database.
type Verifier struct {
	Store    *catalog.Store
	Resolver Resolver
	Confirm  ConfirmFunc
}

// Verify resolves the device at mountPoint and compares its serial to the
// stored one. A mismatch blocks until the operator confirms; declining
// aborts with ErrIdentityDeclined. With autoUpdate set, differing vendor,
// model and filesystem fields are written back to the drive row, and a
// confirmed serial mismatch replaces the stored serial.
func (v *Verifier) Verify(ctx context.Context, driveID int64, mountPoint string, autoUpdate bool) (*catalog.Drive, *DeviceInfo, error) {
	d, err := v.Store.GetDrive(driveID)
	if err != nil {
		return nil, nil, err
	}

	info, err := v.Resolver.Resolve(ctx, mountPoint)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving device for %s: %w", mountPoint, err)
	}

	switch {
	case d.Serial == "":
		logger.Infof("drive %d has no stored serial, adopting %s", driveID, info.Serial)
		if autoUpdate {
			if err := v.Store.UpdateDriveSerial(driveID, info.Serial); err != nil {
				return nil, nil, err
			}
		}
	case d.Serial == info.Serial:
		logger.Debugf("drive %d identity verified: serial %s", driveID, info.Serial)
	default:
		prompt := fmt.Sprintf(
			"WARNING: drive %d (%s) has stored serial %q but the device at %s reports %q.\nContinue scanning anyway? [yes/no]: ",
			driveID, d.Name, d.Serial, mountPoint, info.Serial)
		if !v.Confirm(prompt) {
			return nil, nil, ErrIdentityDeclined
		}
		logger.Warnf("drive %d serial mismatch overridden by operator: %s -> %s",
			driveID, d.Serial, info.Serial)
		if autoUpdate {
			if err := v.Store.UpdateDriveSerial(driveID, info.Serial); err != nil {
				return nil, nil, err
			}
		}
	}

	if autoUpdate && identityDiffers(d, info) {
		if err := v.Store.UpdateDriveIdentity(driveID, info.Vendor, info.Model, info.Filesystem); err != nil {
			return nil, nil, err
		}
		logger.Infof("drive %d identity fields refreshed: vendor=%q model=%q fs=%q",
			driveID, info.Vendor, info.Model, info.Filesystem)
	}

	return d, info, nil
}

func identityDiffers(d *catalog.Drive, info *DeviceInfo) bool {
	return (info.Vendor != "" && info.Vendor != d.Vendor) ||
		(info.Model != "" && info.Model != d.Model) ||
		(info.Filesystem != "" && info.Filesystem != d.Filesystem)
}
