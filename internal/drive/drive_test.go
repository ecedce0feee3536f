package drive_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"

	"github.com/drivedex/drivedex/internal/drive"
	"github.com/drivedex/drivedex/internal/testutil"
)

type fakeResolver struct {
	info *drive.DeviceInfo
	err  error
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) (*drive.DeviceInfo, error) {
	return f.info, f.err
}

func deviceInfo(serial string) *drive.DeviceInfo {
	return &drive.DeviceInfo{
		Device:        "/dev/sdb1",
		Disk:          "sdb",
		PartitionName: "sdb1",
		Serial:        serial,
		Model:         "Exos X18",
		Vendor:        "Seagate",
		Filesystem:    "ext4",
	}
}

func TestVerifyMatchingSerial(t *testing.T) {
	store := testutil.NewTestStore(t)
	driveID := testutil.SeedDrive(t, store, "archive-01", "SER-123")

	v := &drive.Verifier{
		Store:    store,
		Resolver: &fakeResolver{info: deviceInfo("SER-123")},
		Confirm: func(string) bool {
			t.Fatal("confirmation prompted despite matching serial")
			return false
		},
	}

	d, info, err := v.Verify(context.Background(), driveID, "/mnt/archive", true)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if d.ID != driveID || info.Serial != "SER-123" {
		t.Errorf("Verify returned drive %d serial %s", d.ID, info.Serial)
	}

	// Differing vendor/model/fs were written back.
	got, _ := store.GetDrive(driveID)
	if got.Vendor != "Seagate" || got.Model != "Exos X18" || got.Filesystem != "ext4" {
		t.Errorf("identity fields not refreshed: %q/%q/%q", got.Vendor, got.Model, got.Filesystem)
	}
}

func TestVerifyMismatchDeclined(t *testing.T) {
	store := testutil.NewTestStore(t)
	driveID := testutil.SeedDrive(t, store, "archive-02", "SER-AAA")

	v := &drive.Verifier{
		Store:    store,
		Resolver: &fakeResolver{info: deviceInfo("SER-BBB")},
		Confirm:  func(string) bool { return false },
	}

	_, _, err := v.Verify(context.Background(), driveID, "/mnt/archive", true)
	if !errors.Is(err, drive.ErrIdentityDeclined) {
		t.Errorf("Verify error = %v, want ErrIdentityDeclined", err)
	}

	// Declining must leave the stored serial untouched.
	got, _ := store.GetDrive(driveID)
	if got.Serial != "SER-AAA" {
		t.Errorf("serial = %q after declined mismatch", got.Serial)
	}
}

func TestVerifyMismatchConfirmed(t *testing.T) {
	store := testutil.NewTestStore(t)
	driveID := testutil.SeedDrive(t, store, "archive-03", "SER-AAA")

	prompted := false
	v := &drive.Verifier{
		Store:    store,
		Resolver: &fakeResolver{info: deviceInfo("SER-BBB")},
		Confirm: func(prompt string) bool {
			prompted = true
			return true
		},
	}

	_, _, err := v.Verify(context.Background(), driveID, "/mnt/archive", true)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !prompted {
		t.Error("mismatch did not prompt")
	}
	got, _ := store.GetDrive(driveID)
	if got.Serial != "SER-BBB" {
		t.Errorf("serial = %q, want SER-BBB after confirmed override", got.Serial)
	}
}

func TestVerifyMismatchConfirmedNoUpdate(t *testing.T) {
	store := testutil.NewTestStore(t)
	driveID := testutil.SeedDrive(t, store, "archive-04", "SER-AAA")

	v := &drive.Verifier{
		Store:    store,
		Resolver: &fakeResolver{info: deviceInfo("SER-BBB")},
		Confirm:  func(string) bool { return true },
	}

	_, _, err := v.Verify(context.Background(), driveID, "/mnt/archive", false)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	got, _ := store.GetDrive(driveID)
	if got.Serial != "SER-AAA" {
		t.Errorf("serial = %q changed despite auto-update disabled", got.Serial)
	}
}

func TestVerifyUnresolvableDevice(t *testing.T) {
	store := testutil.NewTestStore(t)
	driveID := testutil.SeedDrive(t, store, "archive-05", "SER-123")

	v := &drive.Verifier{
		Store:    store,
		Resolver: &fakeResolver{err: fmt.Errorf("nothing mounted at /mnt/archive")},
		Confirm:  func(string) bool { return true },
	}

	if _, _, err := v.Verify(context.Background(), driveID, "/mnt/archive", true); err == nil {
		t.Error("Verify succeeded with unresolvable device")
	}
}

func TestIsTransientIO(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eio errno", syscall.EIO, true},
		{"eacces errno", syscall.EACCES, true},
		{"wrapped eio", &fs.PathError{Op: "stat", Path: "/mnt/x", Err: syscall.EIO}, true},
		{"io error text", errors.New("read /mnt/x: input/output error"), true},
		{"permission text", errors.New("open /mnt/x: Permission denied"), true},
		{"not found", syscall.ENOENT, false},
		{"plain error", errors.New("unexpected EOF"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := drive.IsTransientIO(tt.err); got != tt.want {
				t.Errorf("IsTransientIO(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
