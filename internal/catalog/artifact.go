package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/drivedex/drivedex/internal/db"
)

// RecoveryArtifact is a labeled output of a read-only disk-recovery or
// diagnostic command, tied to a drive and the session during which it was
// collected. Rows are append-only and never updated; the catalog keeps
// them as the drive's diagnostic history.
type RecoveryArtifact struct {
	ID              int64
	DriveID         int64
	SessionID       sql.NullInt64
	Label           string
	Kind            string
	OutputPath      string
	Size            int64
	Checksum        sql.NullString
	Success         bool
	DurationSeconds float64
	CreatedAt       time.Time
}

// AddRecoveryArtifact appends a diagnostic artifact for the drive.
func (s *Store) AddRecoveryArtifact(a *RecoveryArtifact) (int64, error) {
	res, err := s.DB.Exec(`
		INSERT INTO recovery_artifacts
			(drive_id, session_id, label, kind, output_path, size, checksum, success, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.DriveID, a.SessionID, a.Label, a.Kind, a.OutputPath, a.Size,
		a.Checksum, a.Success, a.DurationSeconds)
	if err != nil {
		return 0, fmt.Errorf("recording recovery artifact %q: %w", a.Label, err)
	}
	return res.LastInsertId()
}

// RecoveryArtifactsForDrive lists the drive's diagnostic artifacts,
// oldest first.
func (s *Store) RecoveryArtifactsForDrive(driveID int64) ([]RecoveryArtifact, error) {
	rows, err := db.QueryWithRetry(s.DB, `
		SELECT id, drive_id, session_id, label, kind, output_path, size,
		       checksum, success, duration_seconds, created_at
		FROM recovery_artifacts WHERE drive_id = ? ORDER BY id`, driveID)
	if err != nil {
		return nil, fmt.Errorf("listing recovery artifacts: %w", err)
	}
	defer rows.Close()

	var out []RecoveryArtifact
	for rows.Next() {
		var a RecoveryArtifact
		if err := rows.Scan(&a.ID, &a.DriveID, &a.SessionID, &a.Label, &a.Kind,
			&a.OutputPath, &a.Size, &a.Checksum, &a.Success,
			&a.DurationSeconds, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
