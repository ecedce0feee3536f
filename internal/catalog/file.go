package catalog

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/drivedex/drivedex/internal/db"
)

// PathHash is the identity of a file row within a drive partition: the
// SHA-256 of the drive-relative path. Renames therefore produce a new row
// and the old one is soft-deleted at reconciliation.
func PathHash(relPath string) string {
	sum := sha256.Sum256([]byte(relPath))
	return hex.EncodeToString(sum[:])
}

// FileRecord is one cataloged file or directory on a drive partition.
type FileRecord struct {
	ID              int64
	DriveID         int64
	PartitionNumber int
	Path            string
	PathHash        string
	Name            string
	Size            int64
	ContentHash     sql.NullString
	CreatedTS       int64
	ModifiedTS      int64
	Category        string
	Metadata        sql.NullString
	RawTags         sql.NullString
	ContentType     sql.NullString
	ThumbPath       sql.NullString
	DeletedAt       sql.NullTime
	LastSessionID   sql.NullInt64
}

// ExistingFile is the slice of a stored row the scan engine needs to decide
// whether a file changed since the last scan.
type ExistingFile struct {
	ID          int64
	Size        int64
	ModifiedTS  int64
	ContentHash sql.NullString
	ThumbPath   sql.NullString
}

// LookupFile returns the stored row for a path hash, or nil if the path has
// never been cataloged. Soft-deleted rows are returned too; an upsert on
// them resurrects the row.
func (s *Store) LookupFile(q Querier, driveID int64, partition int, pathHash string) (*ExistingFile, error) {
	row := q.QueryRow(`
		SELECT id, size, modified_ts, content_hash, thumb_path
		FROM files
		WHERE drive_id = ? AND partition_number = ? AND path_hash = ?`,
		driveID, partition, pathHash)

	e := &ExistingFile{}
	err := row.Scan(&e.ID, &e.Size, &e.ModifiedTS, &e.ContentHash, &e.ThumbPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up file %s: %w", pathHash, err)
	}
	return e, nil
}

// HasFile reports whether a live (not soft-deleted) row exists for the path.
// Used by skip-existing mode, where presence alone decides the skip.
func (s *Store) HasFile(q Querier, driveID int64, partition int, pathHash string) (bool, error) {
	var n int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM files
		WHERE drive_id = ? AND partition_number = ? AND path_hash = ? AND deleted_at IS NULL`,
		driveID, partition, pathHash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking file %s: %w", pathHash, err)
	}
	return n > 0, nil
}

// UpsertFile writes the record into the batch transaction. The existing row,
// if any, must be the one returned by LookupFile for the same path hash; an
// explicit insert-or-update avoids inferring the outcome from rows-affected
// counts. Updates clear deleted_at so reappeared files come back to life.
// Returns the row id and whether a new row was inserted.
func (s *Store) UpsertFile(tx *sql.Tx, rec *FileRecord, existing *ExistingFile) (int64, bool, error) {
	if existing == nil {
		res, err := tx.Exec(`
			INSERT INTO files (drive_id, partition_number, path, path_hash, name, size,
			                   content_hash, created_ts, modified_ts, category,
			                   metadata, raw_tags, content_type, last_session_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.DriveID, rec.PartitionNumber, rec.Path, rec.PathHash, rec.Name, rec.Size,
			rec.ContentHash, rec.CreatedTS, rec.ModifiedTS, rec.Category,
			rec.Metadata, rec.RawTags, rec.ContentType, rec.LastSessionID)
		if err != nil {
			return 0, false, fmt.Errorf("inserting file %q: %w", rec.Path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	_, err := tx.Exec(`
		UPDATE files
		SET path = ?, name = ?, size = ?, content_hash = ?, created_ts = ?,
		    modified_ts = ?, category = ?, metadata = ?, raw_tags = ?,
		    content_type = ?, deleted_at = NULL, last_session_id = ?
		WHERE id = ?`,
		rec.Path, rec.Name, rec.Size, rec.ContentHash, rec.CreatedTS,
		rec.ModifiedTS, rec.Category, rec.Metadata, rec.RawTags,
		rec.ContentType, rec.LastSessionID, existing.ID)
	if err != nil {
		return 0, false, fmt.Errorf("updating file %q: %w", rec.Path, err)
	}
	return existing.ID, false, nil
}

// TouchFile stamps an unchanged or skipped row with the current session so
// reconciliation does not soft-delete it.
func (s *Store) TouchFile(tx *sql.Tx, id, sessionID int64) error {
	_, err := tx.Exec(`UPDATE files SET deleted_at = NULL, last_session_id = ? WHERE id = ?`,
		sessionID, id)
	if err != nil {
		return fmt.Errorf("touching file %d: %w", id, err)
	}
	return nil
}

// SetThumbPath records the generated thumbnail location on the file row.
func (s *Store) SetThumbPath(tx *sql.Tx, id int64, thumbPath string) error {
	_, err := tx.Exec(`UPDATE files SET thumb_path = ? WHERE id = ?`, thumbPath, id)
	if err != nil {
		return fmt.Errorf("setting thumb path for file %d: %w", id, err)
	}
	return nil
}

// ReconcileDeleted soft-deletes every live row on the partition that the
// finished session did not touch. Runs as one bulk statement after a
// completed walk; interrupted sessions must not call it, a partial walk
// would mass-delete everything past the interruption point.
func (s *Store) ReconcileDeleted(driveID int64, partition int, sessionID int64) (int64, error) {
	res, err := db.ExecWithRetry(s.DB, `
		UPDATE files
		SET deleted_at = CURRENT_TIMESTAMP
		WHERE drive_id = ? AND partition_number = ? AND deleted_at IS NULL
		  AND (last_session_id IS NULL OR last_session_id != ?)`,
		driveID, partition, sessionID)
	if err != nil {
		return 0, fmt.Errorf("reconciling deleted files: %w", err)
	}
	return res.RowsAffected()
}
