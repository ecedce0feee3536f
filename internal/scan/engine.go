// Package scan implements the catalog scan engine: a single-threaded,
// resumable walk over a mounted drive that extracts metadata, hashes,
// and thumbnails for every entry and persists them in checkpointed
// batches.
package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/drivedex/drivedex/internal/catalog"
	"github.com/drivedex/drivedex/internal/clock"
	"github.com/drivedex/drivedex/internal/drive"
	"github.com/drivedex/drivedex/internal/logger"
	"github.com/drivedex/drivedex/internal/metrics"
	"github.com/drivedex/drivedex/internal/probe"
	"github.com/drivedex/drivedex/internal/thumbs"
)

// ErrInterrupted is returned when the walk stopped on a cancelled context.
// The session is left interrupted and resumable.
var ErrInterrupted = errors.New("scan interrupted")

// ErrRecoveryExhausted is returned when the I/O recovery controller used
// all its remount attempts without bringing the drive back.
var ErrRecoveryExhausted = errors.New("i/o recovery exhausted")

// Options configure one scan run.
type Options struct {
	DriveID        int64
	Partition      int
	MountPoint     string
	NoHash         bool
	NoThumbs       bool
	ExternalThumbs bool
	Resume         bool
	SkipExisting   bool
	Delay          time.Duration
	BatchSize      int
	FlushInterval  time.Duration
}

// Extractors bundle the metadata probers the engine dispatches to by
// category. Any field may be nil; extraction then yields null fields.
type Extractors struct {
	AV         probe.Prober
	AudioTags  probe.Prober
	Image      probe.Prober
	Executable probe.Prober
	Type       probe.TypeIdentifier
	Snapshot   probe.Snapshotter
}

// WALCheckpointer compacts the database write-ahead log. The engine runs
// one after every batch commit; passive checkpoints never block writers.
type WALCheckpointer interface {
	Checkpoint() error
}

// Engine runs scan sessions against the catalog.
type Engine struct {
	Store      *catalog.Store
	Clock      clock.Clock
	Extractors Extractors
	Hasher     Hasher
	Thumbs     *thumbs.Generator
	Remounter  drive.Remounter
	Device     *drive.DeviceInfo
	WAL        WALCheckpointer
	Opts       Options
}

// scanContext carries the mutable state of one running scan: the open
// session, the current batch transaction, counters, and the resume
// suppression flag. Passed explicitly instead of living in globals so
// the signal path and the walk share one source of truth.
type scanContext struct {
	ctx        context.Context
	session    *catalog.Session
	tx         *sql.Tx
	counters   catalog.Counters
	batchCount int
	lastFlush  time.Time

	// committed mirrors counters as of the last batch commit. Abnormal
	// exits persist these, not the live counters: the in-flight batch
	// rolls back, and totals that include rolled-back entries would be
	// double-counted after a resume.
	committed catalog.Counters

	suppressing bool
	checkpoint  string

	// checkpointPath is the relative path of the last fully processed
	// entry, written with each batch commit.
	checkpointPath string
}

// Run executes the scan and returns its final counters. On interruption
// or a fatal mid-scan error the session is persisted as interrupted with
// its last committed checkpoint before Run returns.
func (e *Engine) Run(ctx context.Context) (catalog.Counters, error) {
	sc, err := e.acquireSession(ctx)
	if err != nil {
		return catalog.Counters{}, err
	}
	started := e.Clock.Now()

	completed := false
	defer func() {
		if completed {
			return
		}
		// Abnormal exit: roll back the in-flight batch and leave the
		// session resumable at its last committed checkpoint.
		if sc.tx != nil {
			sc.tx.Rollback()
		}
		if err := e.Store.MarkInterrupted(sc.session.ID, sc.committed, e.Clock.Now().Sub(started)); err != nil {
			logger.Errorf("persisting interrupted session %d: %v", sc.session.ID, err)
		} else {
			logger.Warnf("session %s interrupted after %d committed entries, re-run with --resume to continue",
				sc.session.UUID, sc.committed.Scanned)
		}
	}()

	if sc.tx, err = e.Store.DB.Begin(); err != nil {
		return sc.committed, fmt.Errorf("opening batch transaction: %w", err)
	}
	sc.lastFlush = e.Clock.Now()

	if err := e.walk(sc); err != nil {
		return sc.committed, err
	}

	if sc.suppressing {
		logger.Warnf("resume checkpoint %q was not found in the tree; no entries were processed", sc.checkpoint)
	}

	if err := e.flush(sc, true); err != nil {
		return sc.committed, err
	}

	// Reconciliation only after a full, uninterrupted walk. A partial
	// walk would soft-delete everything past the stopping point.
	deleted, err := e.Store.ReconcileDeleted(e.Opts.DriveID, e.Opts.Partition, sc.session.ID)
	if err != nil {
		return sc.counters, err
	}
	sc.counters.Deleted += deleted

	duration := e.Clock.Now().Sub(started)
	if err := e.Store.FinalizeSession(sc.session.ID, sc.counters, duration); err != nil {
		return sc.counters, err
	}
	if err := e.Store.TouchDrive(e.Opts.DriveID); err != nil {
		logger.Warnf("touching drive %d: %v", e.Opts.DriveID, err)
	}
	metrics.ScanDuration.Set(duration.Seconds())
	completed = true

	logger.Infof("session %s completed: scanned=%d added=%d updated=%d deleted=%d skipped=%d thumbs=%d/%d",
		sc.session.UUID, sc.counters.Scanned, sc.counters.Added, sc.counters.Updated,
		sc.counters.Deleted, sc.counters.Skipped, sc.counters.ThumbsCreated, sc.counters.ThumbsFailed)
	return sc.counters, nil
}

// acquireSession opens a new session, or reactivates the latest
// interrupted one when resuming. Resumed sessions restore their counters
// and enable walk suppression up to the stored checkpoint.
func (e *Engine) acquireSession(ctx context.Context) (*scanContext, error) {
	sc := &scanContext{ctx: ctx}

	if e.Opts.Resume {
		prev, err := e.Store.LatestInterruptedSession(e.Opts.DriveID, e.Opts.Partition)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			if err := e.Store.ReactivateSession(prev.ID); err != nil {
				return nil, err
			}
			sc.session = prev
			sc.counters = prev.Counters
			sc.committed = prev.Counters
			if prev.CheckpointPath.Valid && prev.CheckpointPath.String != "" {
				sc.suppressing = true
				sc.checkpoint = prev.CheckpointPath.String
				sc.checkpointPath = prev.CheckpointPath.String
				logger.Infof("resuming session %s from checkpoint %q", prev.UUID, sc.checkpoint)
			} else {
				logger.Infof("resuming session %s from the beginning (no checkpoint)", prev.UUID)
			}
			return sc, nil
		}
		logger.Infof("no interrupted session for drive %d partition %d, starting fresh",
			e.Opts.DriveID, e.Opts.Partition)
	}

	sess, err := e.Store.CreateSession(e.Opts.DriveID, e.Opts.Partition)
	if err != nil {
		return nil, err
	}
	sc.session = sess
	logger.Infof("session %s started for drive %d partition %d at %s",
		sess.UUID, e.Opts.DriveID, e.Opts.Partition, e.Opts.MountPoint)
	return sc, nil
}

// walk iterates the tree in deterministic depth-first, self-first order.
// Cancellation is polled once per entry; the entry in flight always
// finishes before the walk stops.
func (e *Engine) walk(sc *scanContext) error {
	root := e.Opts.MountPoint
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := sc.ctx.Err(); err != nil {
			return ErrInterrupted
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return walkErr
		}

		if sc.suppressing {
			if rel == sc.checkpoint {
				sc.suppressing = false
				logger.Debugf("checkpoint %q reached, resuming normal processing", rel)
			}
			// The checkpointed entry itself was already committed.
			return nil
		}

		if e.Opts.Delay > 0 {
			e.Clock.Sleep(sc.ctx, e.Opts.Delay)
		}

		if err := e.processEntry(sc, path, rel, d, walkErr); err != nil {
			return err
		}

		sc.checkpointPath = rel
		sc.counters.Scanned++
		metrics.EntriesScanned.Inc()
		sc.batchCount++
		return e.flush(sc, false)
	})
}

// withRecovery runs a file operation, and on a transient I/O error asks
// the recovery controller to remount the drive and retries the operation
// once. Exhausted recovery is fatal to the walk but keeps the session
// resumable.
func (e *Engine) withRecovery(sc *scanContext, rel string, op func() error) error {
	err := op()
	if err == nil || !drive.IsTransientIO(err) {
		return err
	}

	logger.Warnf("transient i/o error at %q: %v, attempting drive recovery", rel, err)
	attempts, recErr := e.Remounter.Recover(sc.ctx, e.Opts.MountPoint, e.Device.Serial, e.Device.PartitionName)
	metrics.RecoveryAttempts.Add(float64(attempts))
	if recErr != nil {
		return fmt.Errorf("%w: %v (while processing %q)", ErrRecoveryExhausted, recErr, rel)
	}
	return op()
}
