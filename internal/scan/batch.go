package scan

import (
	"fmt"

	"github.com/drivedex/drivedex/internal/logger"
	"github.com/drivedex/drivedex/internal/metrics"
)

// flush commits the current batch together with the session checkpoint
// once the count or time threshold is reached, then opens the next
// transaction. With force set it always commits and leaves no open
// transaction. A crash loses at most one uncommitted batch.
func (e *Engine) flush(sc *scanContext, force bool) error {
	if !force {
		if sc.batchCount < e.Opts.BatchSize &&
			e.Clock.Now().Sub(sc.lastFlush) < e.Opts.FlushInterval {
			return nil
		}
		if sc.batchCount == 0 {
			sc.lastFlush = e.Clock.Now()
			return nil
		}
	}
	if sc.tx == nil {
		return nil
	}

	checkpoint := sc.checkpointPath
	if err := e.Store.CheckpointSession(sc.tx, sc.session.ID, checkpoint, sc.counters); err != nil {
		sc.tx.Rollback()
		sc.tx = nil
		return err
	}
	if err := sc.tx.Commit(); err != nil {
		sc.tx = nil
		return fmt.Errorf("committing batch: %w", err)
	}
	metrics.BatchCommits.Inc()
	logger.Debugf("batch committed: %d entries, checkpoint %q", sc.batchCount, checkpoint)

	sc.tx = nil
	sc.committed = sc.counters
	sc.batchCount = 0
	sc.lastFlush = e.Clock.Now()

	// Fold the committed batch back into the main database file so the
	// WAL does not grow unbounded over a multi-hour scan.
	if e.WAL != nil {
		if err := e.WAL.Checkpoint(); err != nil {
			logger.Warnf("wal checkpoint: %v", err)
		}
	}

	if force {
		return nil
	}
	tx, err := e.Store.DB.Begin()
	if err != nil {
		return fmt.Errorf("opening batch transaction: %w", err)
	}
	sc.tx = tx
	return nil
}
