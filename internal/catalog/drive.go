package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDriveNotFound is returned when a drive id has no row in the catalog.
var ErrDriveNotFound = errors.New("drive not found")

// Drive is a cataloged physical drive. Hardware identity (serial, model)
// is captured the first time the drive is scanned and verified against
// the hardware on every subsequent scan.
type Drive struct {
	ID            int64
	Name          string
	Vendor        string
	Model         string
	ModelNumber   string
	Serial        string
	Filesystem    string
	CapacityBytes int64
	IsDead        bool
	IsOnline      bool
	IsOffsite     bool
	IsEncrypted   bool
	IsEmpty       bool
	PairedDriveID sql.NullInt64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GetDrive loads a drive by catalog id.
func (s *Store) GetDrive(id int64) (*Drive, error) {
	row := s.DB.QueryRow(`
		SELECT id, name, vendor, model, model_number, serial, filesystem,
		       capacity_bytes, is_dead, is_online, is_offsite, is_encrypted, is_empty,
		       paired_drive_id, created_at, updated_at
		FROM drives WHERE id = ?`, id)

	d := &Drive{}
	err := row.Scan(&d.ID, &d.Name, &d.Vendor, &d.Model, &d.ModelNumber, &d.Serial,
		&d.Filesystem, &d.CapacityBytes, &d.IsDead, &d.IsOnline, &d.IsOffsite,
		&d.IsEncrypted, &d.IsEmpty, &d.PairedDriveID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("drive %d: %w", id, ErrDriveNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading drive %d: %w", id, err)
	}
	return d, nil
}

// CreateDrive registers a new drive and returns its catalog id.
func (s *Store) CreateDrive(name, vendor, model, serial, filesystem string, capacityBytes int64) (int64, error) {
	res, err := s.DB.Exec(`
		INSERT INTO drives (name, vendor, model, serial, filesystem, capacity_bytes, is_online)
		VALUES (?, ?, ?, ?, ?, ?, 1)`,
		name, vendor, model, serial, filesystem, capacityBytes)
	if err != nil {
		return 0, fmt.Errorf("creating drive %q: %w", name, err)
	}
	return res.LastInsertId()
}

// UpdateDriveIdentity writes freshly observed vendor, model and filesystem
// fields back to the drive row. The stored serial is the identity anchor
// and is only ever changed through an explicit operator confirmation.
func (s *Store) UpdateDriveIdentity(id int64, vendor, model, filesystem string) error {
	_, err := s.DB.Exec(`
		UPDATE drives
		SET vendor = ?, model = ?, filesystem = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, vendor, model, filesystem, id)
	if err != nil {
		return fmt.Errorf("updating drive %d identity: %w", id, err)
	}
	return nil
}

// UpdateDriveSerial replaces the stored serial after a confirmed
// identity-mismatch override.
func (s *Store) UpdateDriveSerial(id int64, serial string) error {
	_, err := s.DB.Exec(`
		UPDATE drives SET serial = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		serial, id)
	if err != nil {
		return fmt.Errorf("updating drive %d serial: %w", id, err)
	}
	return nil
}

// TouchDrive bumps the drive's updated_at after a completed scan.
func (s *Store) TouchDrive(id int64) error {
	_, err := s.DB.Exec(`UPDATE drives SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}
