package scan

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/drivedex/drivedex/internal/catalog"
	"github.com/drivedex/drivedex/internal/category"
	"github.com/drivedex/drivedex/internal/logger"
	"github.com/drivedex/drivedex/internal/metrics"
	"github.com/drivedex/drivedex/internal/probe"
	"github.com/drivedex/drivedex/internal/thumbs"
)

// processEntry runs the full per-entry pipeline: stat, skip checks,
// metadata extraction, hashing, upsert, and thumbnail generation. Probe
// and thumbnail failures are absorbed per entry; only storage errors and
// exhausted I/O recovery abort the walk.
func (e *Engine) processEntry(sc *scanContext, path, rel string, d fs.DirEntry, walkErr error) error {
	var info fs.FileInfo
	err := e.withRecovery(sc, rel, func() error {
		if walkErr != nil || d == nil {
			var statErr error
			info, statErr = os.Lstat(path)
			return statErr
		}
		var infoErr error
		info, infoErr = d.Info()
		return infoErr
	})
	if err != nil {
		return err
	}

	isDir := info.IsDir()
	cat := category.ForEntry(rel, isDir)
	pathHash := catalog.PathHash(rel)

	if e.Opts.SkipExisting {
		present, err := e.Store.HasFile(sc.tx, e.Opts.DriveID, e.Opts.Partition, pathHash)
		if err != nil {
			return err
		}
		if present {
			// Re-stamp the row so reconciliation keeps it, but skip all
			// extraction work.
			existing, err := e.Store.LookupFile(sc.tx, e.Opts.DriveID, e.Opts.Partition, pathHash)
			if err != nil {
				return err
			}
			if err := e.Store.TouchFile(sc.tx, existing.ID, sc.session.ID); err != nil {
				return err
			}
			sc.counters.Skipped++
			metrics.FilesSkipped.Inc()
			logger.Debugf("skipping already cataloged %q", rel)
			return nil
		}
	}

	existing, err := e.Store.LookupFile(sc.tx, e.Opts.DriveID, e.Opts.Partition, pathHash)
	if err != nil {
		return err
	}

	size := info.Size()
	mtime := info.ModTime().Unix()
	unchanged := existing != nil && !isDir && existing.Size == size && existing.ModifiedTS == mtime

	rec := &catalog.FileRecord{
		DriveID:         e.Opts.DriveID,
		PartitionNumber: e.Opts.Partition,
		Path:            rel,
		PathHash:        pathHash,
		Name:            filepath.Base(rel),
		Size:            size,
		CreatedTS:       changeTime(info),
		ModifiedTS:      mtime,
		Category:        string(cat),
		LastSessionID:   sql.NullInt64{Int64: sc.session.ID, Valid: true},
	}
	if isDir {
		rec.Size = 0
	}

	if !isDir && !e.Opts.NoHash {
		if unchanged && existing.ContentHash.Valid {
			// Size and mtime match the stored row: keep the stored hash
			// instead of re-reading the file.
			rec.ContentHash = existing.ContentHash
		} else {
			var sum string
			err := e.withRecovery(sc, rel, func() error {
				var hashErr error
				sum, hashErr = e.Hasher.HashFile(path)
				return hashErr
			})
			if err != nil {
				return err
			}
			rec.ContentHash = sql.NullString{String: sum, Valid: true}
		}
	}

	if !isDir {
		e.extractMetadata(sc, path, rel, cat, rec)
	}

	id, inserted, err := e.Store.UpsertFile(sc.tx, rec, existing)
	if err != nil {
		return err
	}
	if inserted {
		sc.counters.Added++
		metrics.FilesAdded.Inc()
		logger.Debugf("added %q (%s)", rel, cat)
	} else {
		sc.counters.Updated++
		metrics.FilesUpdated.Inc()
		logger.Debugf("updated %q (%s)", rel, cat)
	}

	if cat == category.Image && !isDir && e.thumbsEnabled() {
		e.generateThumb(sc, path, rel, id, existing)
	}
	return nil
}

// extractMetadata dispatches to the category prober, the content-type
// identifier and the raw tag snapshotter. Every failure degrades to null
// fields on the record.
func (e *Engine) extractMetadata(sc *scanContext, path, rel string, cat category.Category, rec *catalog.FileRecord) {
	fields := probe.Fields{}

	merge := func(p probe.Prober) {
		if p == nil {
			return
		}
		got, err := p.Probe(sc.ctx, path)
		if err != nil {
			logger.Debugf("probing %q: %v", rel, err)
			return
		}
		for k, v := range got {
			if _, taken := fields[k]; !taken {
				fields[k] = v
			}
		}
	}

	switch cat {
	case category.Video:
		merge(e.Extractors.AV)
	case category.Audio:
		merge(e.Extractors.AV)
		merge(e.Extractors.AudioTags)
	case category.Image:
		merge(e.Extractors.Image)
	case category.Executable:
		merge(e.Extractors.Executable)
	}

	if len(fields) > 0 {
		if blob, err := json.Marshal(fields); err == nil {
			rec.Metadata = sql.NullString{String: string(blob), Valid: true}
		}
	}

	if e.Extractors.Type != nil {
		desc, err := e.Extractors.Type.Identify(sc.ctx, path)
		if err != nil {
			logger.Debugf("identifying %q: %v", rel, err)
		} else if desc != "" {
			rec.ContentType = sql.NullString{String: desc, Valid: true}
		}
	}

	if e.Extractors.Snapshot != nil {
		snap, err := e.Extractors.Snapshot.Snapshot(path)
		if err != nil {
			logger.Debugf("snapshotting %q: %v", rel, err)
		} else if snap != "" {
			rec.RawTags = sql.NullString{String: snap, Valid: true}
		}
	}
}

func (e *Engine) thumbsEnabled() bool {
	return e.Thumbs != nil && !e.Opts.NoThumbs && !e.Opts.ExternalThumbs
}

// generateThumb creates the thumbnail unless the recorded one still
// exists on disk. Failures count and never abort the scan.
func (e *Engine) generateThumb(sc *scanContext, path, rel string, id int64, existing *catalog.ExistingFile) {
	if existing != nil && existing.ThumbPath.Valid && e.Thumbs.Exists(existing.ThumbPath.String) {
		return
	}

	thumbRel, err := e.Thumbs.Generate(path, id)
	if err != nil {
		sc.counters.ThumbsFailed++
		metrics.ThumbsFailed.Inc()
		if errors.Is(err, thumbs.ErrDegenerateImage) {
			logger.Debugf("thumbnail skipped for %q: %v", rel, err)
		} else {
			logger.Warnf("thumbnail failed for %q: %v", rel, err)
		}
		return
	}
	if err := e.Store.SetThumbPath(sc.tx, id, thumbRel); err != nil {
		sc.counters.ThumbsFailed++
		metrics.ThumbsFailed.Inc()
		logger.Warnf("recording thumbnail for %q: %v", rel, err)
		return
	}
	sc.counters.ThumbsCreated++
	metrics.ThumbsCreated.Inc()
}

// Hasher computes a file's content hash.
type Hasher interface {
	HashFile(path string) (string, error)
}

// MD5Hasher is the default content hasher.
type MD5Hasher struct{}

func (MD5Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
