package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drivedex/drivedex/internal/db"
)

// Session statuses.
const (
	SessionRunning     = "running"
	SessionCompleted   = "completed"
	SessionInterrupted = "interrupted"
	SessionFailed      = "failed"
)

// ErrSessionRunning is returned when a new session is requested for a
// drive that already has a running one. Two concurrent scans of the same
// drive would corrupt each other's checkpoints.
var ErrSessionRunning = errors.New("a scan session is already running for this drive")

// Session is one scan run over a drive partition. An interrupted session
// keeps its checkpoint path and counters so a later run can resume it.
type Session struct {
	ID              int64
	UUID            string
	DriveID         int64
	PartitionNumber int
	Status          string
	CheckpointPath  sql.NullString
	Counters        Counters
	StartedAt       time.Time
	CompletedAt     sql.NullTime
	DurationSeconds sql.NullFloat64
}

// CreateSession opens a new running session for the drive partition.
// It fails with ErrSessionRunning if another running session exists for
// the drive, regardless of partition.
func (s *Store) CreateSession(driveID int64, partition int) (*Session, error) {
	var running int
	err := s.DB.QueryRow(`
		SELECT COUNT(*) FROM sessions WHERE drive_id = ? AND status = ?`,
		driveID, SessionRunning).Scan(&running)
	if err != nil {
		return nil, fmt.Errorf("checking for running sessions: %w", err)
	}
	if running > 0 {
		return nil, ErrSessionRunning
	}

	id := uuid.New().String()
	res, err := s.DB.Exec(`
		INSERT INTO sessions (uuid, drive_id, partition_number, status, started_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		id, driveID, partition, SessionRunning)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetSession(rowID)
}

// GetSession loads a session by row id.
func (s *Store) GetSession(id int64) (*Session, error) {
	return s.scanSession(s.DB.QueryRow(sessionSelect+` WHERE id = ?`, id))
}

const sessionSelect = `
	SELECT id, uuid, drive_id, partition_number, status, checkpoint_path,
	       items_scanned, files_added, files_updated, files_deleted, files_skipped,
	       thumbs_created, thumbs_failed,
	       started_at, completed_at, duration_seconds
	FROM sessions`

func (s *Store) scanSession(row *sql.Row) (*Session, error) {
	sess := &Session{}
	err := row.Scan(&sess.ID, &sess.UUID, &sess.DriveID, &sess.PartitionNumber,
		&sess.Status, &sess.CheckpointPath,
		&sess.Counters.Scanned, &sess.Counters.Added, &sess.Counters.Updated,
		&sess.Counters.Deleted, &sess.Counters.Skipped,
		&sess.Counters.ThumbsCreated, &sess.Counters.ThumbsFailed,
		&sess.StartedAt, &sess.CompletedAt, &sess.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

// LatestInterruptedSession returns the most recent interrupted session for
// the drive partition, or nil if there is nothing to resume.
func (s *Store) LatestInterruptedSession(driveID int64, partition int) (*Session, error) {
	sess, err := s.scanSession(s.DB.QueryRow(sessionSelect+`
		WHERE drive_id = ? AND partition_number = ? AND status = ?
		ORDER BY started_at DESC, id DESC LIMIT 1`,
		driveID, partition, SessionInterrupted))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// ReactivateSession flips an interrupted session back to running so the
// scan engine can continue it. The checkpoint and counters are kept.
func (s *Store) ReactivateSession(id int64) error {
	res, err := s.DB.Exec(`
		UPDATE sessions SET status = ?, completed_at = NULL, duration_seconds = NULL
		WHERE id = ? AND status = ?`, SessionRunning, id, SessionInterrupted)
	if err != nil {
		return fmt.Errorf("reactivating session %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %d is not interrupted", id)
	}
	return nil
}

// CheckpointSession persists the checkpoint path and counters inside the
// batch transaction. The checkpoint and the batch it describes commit
// together or not at all.
func (s *Store) CheckpointSession(tx *sql.Tx, id int64, checkpointPath string, c Counters) error {
	_, err := tx.Exec(`
		UPDATE sessions
		SET checkpoint_path = ?, items_scanned = ?, files_added = ?, files_updated = ?,
		    files_deleted = ?, files_skipped = ?, thumbs_created = ?, thumbs_failed = ?
		WHERE id = ?`,
		checkpointPath, c.Scanned, c.Added, c.Updated, c.Deleted, c.Skipped,
		c.ThumbsCreated, c.ThumbsFailed, id)
	if err != nil {
		return fmt.Errorf("checkpointing session %d: %w", id, err)
	}
	return nil
}

// FinalizeSession marks a session completed with its final counters.
func (s *Store) FinalizeSession(id int64, c Counters, duration time.Duration) error {
	_, err := db.ExecWithRetry(s.DB, `
		UPDATE sessions
		SET status = ?, checkpoint_path = NULL,
		    items_scanned = ?, files_added = ?, files_updated = ?, files_deleted = ?,
		    files_skipped = ?, thumbs_created = ?, thumbs_failed = ?,
		    completed_at = CURRENT_TIMESTAMP, duration_seconds = ?
		WHERE id = ?`,
		SessionCompleted, c.Scanned, c.Added, c.Updated, c.Deleted, c.Skipped,
		c.ThumbsCreated, c.ThumbsFailed, duration.Seconds(), id)
	if err != nil {
		return fmt.Errorf("finalizing session %d: %w", id, err)
	}
	return nil
}

// MarkInterrupted records that a session stopped before finishing. The
// checkpoint already persisted by the last committed batch stays in place,
// so the session can be resumed.
func (s *Store) MarkInterrupted(id int64, c Counters, duration time.Duration) error {
	_, err := db.ExecWithRetry(s.DB, `
		UPDATE sessions
		SET status = ?,
		    items_scanned = ?, files_added = ?, files_updated = ?, files_deleted = ?,
		    files_skipped = ?, thumbs_created = ?, thumbs_failed = ?,
		    completed_at = CURRENT_TIMESTAMP, duration_seconds = ?
		WHERE id = ?`,
		SessionInterrupted, c.Scanned, c.Added, c.Updated, c.Deleted, c.Skipped,
		c.ThumbsCreated, c.ThumbsFailed, duration.Seconds(), id)
	if err != nil {
		return fmt.Errorf("marking session %d interrupted: %w", id, err)
	}
	return nil
}

// MarkFailed records an unrecoverable session failure.
func (s *Store) MarkFailed(id int64, c Counters, duration time.Duration) error {
	_, err := db.ExecWithRetry(s.DB, `
		UPDATE sessions
		SET status = ?,
		    items_scanned = ?, files_added = ?, files_updated = ?, files_deleted = ?,
		    files_skipped = ?, thumbs_created = ?, thumbs_failed = ?,
		    completed_at = CURRENT_TIMESTAMP, duration_seconds = ?
		WHERE id = ?`,
		SessionFailed, c.Scanned, c.Added, c.Updated, c.Deleted, c.Skipped,
		c.ThumbsCreated, c.ThumbsFailed, duration.Seconds(), id)
	if err != nil {
		return fmt.Errorf("marking session %d failed: %w", id, err)
	}
	return nil
}

// PruneSessions deletes completed and failed sessions older than the
// retention window. Interrupted sessions are kept until they are resumed
// or completed. Returns the number of deleted rows.
func (s *Store) PruneSessions(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format("2006-01-02 15:04:05")
	res, err := db.ExecWithRetry(s.DB, `
		DELETE FROM sessions
		WHERE status IN (?, ?) AND started_at < ?`,
		SessionCompleted, SessionFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	return res.RowsAffected()
}
