package semindex

import (
	"context"
	"log/slog"
	"time"

	"bookforge/internal/config"
	"bookforge/internal/versions"
)

const maxRetryDelay = 30 * time.Second

// Ledger is the slice of the version store the worker uses to bootstrap.
type Ledger interface {
	Scan(ctx context.Context, afterID int64, limit int) ([]*versions.Version, int64, error)
}

// Worker indexes committed versions in the background. Appends are enqueued
// by the store observer; the queue never blocks the write path. When the
// queue is full the notification is dropped and a catch-up flag is set, and
// the run loop services it with a full ledger rescan, so every committed
// version is still indexed without waiting for a restart.
type Worker struct {
	index  *Index
	ledger Ledger
	logger *slog.Logger

	queue          chan versions.Version
	catchup        chan struct{}
	maxAttempts    int
	retryDelay     time.Duration
	bootstrapBatch int
}

func NewWorker(index *Index, ledger Ledger, cfg config.Index, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 128
	}
	maxAttempts := cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	retryDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	batch := cfg.BootstrapBatch
	if batch <= 0 {
		batch = 100
	}
	return &Worker{
		index:          index,
		ledger:         ledger,
		logger:         logger,
		queue:          make(chan versions.Version, queueSize),
		catchup:        make(chan struct{}, 1),
		maxAttempts:    maxAttempts,
		retryDelay:     retryDelay,
		bootstrapBatch: batch,
	}
}

// Enqueue accepts a committed version for indexing. Safe to pass to
// Store.Subscribe. A full queue schedules a catch-up rescan instead of
// losing the version.
func (w *Worker) Enqueue(version versions.Version) {
	select {
	case w.queue <- version:
	default:
		w.logger.Warn("index queue full, scheduling catch-up rescan",
			"chapter", version.ChapterID,
			"sequence", version.Sequence)
		select {
		case w.catchup <- struct{}{}:
		default:
		}
	}
}

// Run consumes the queue until the context is cancelled, rescanning the
// ledger whenever an overflow was signalled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("index worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("index worker stopped")
			return
		case version := <-w.queue:
			w.process(ctx, version)
		case <-w.catchup:
			if err := w.Bootstrap(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("catch-up rescan failed", "error", err)
			}
		}
	}
}

// Bootstrap walks the whole ledger and indexes every version, restarting
// from a row id cursor between batches. Used at daemon startup to repair
// entries missed while the worker was down.
func (w *Worker) Bootstrap(ctx context.Context) error {
	var cursor int64
	var indexed, failed int
	for {
		batch, next, err := w.ledger.Scan(ctx, cursor, w.bootstrapBatch)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		for _, version := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := w.index.IndexVersion(ctx, *version); err != nil {
				failed++
				w.logger.Warn("bootstrap index failed",
					"chapter", version.ChapterID,
					"sequence", version.Sequence,
					"error", err)
				continue
			}
			indexed++
		}
		cursor = next
	}
	w.logger.Info("index bootstrap complete", "indexed", indexed, "failed", failed)
	return nil
}

func (w *Worker) process(ctx context.Context, version versions.Version) {
	delay := w.retryDelay
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.index.IndexVersion(ctx, version)
		if err == nil {
			w.logger.Debug("version indexed",
				"chapter", version.ChapterID,
				"sequence", version.Sequence,
				"attempt", attempt)
			return
		}
		w.logger.Warn("index attempt failed",
			"chapter", version.ChapterID,
			"sequence", version.Sequence,
			"attempt", attempt,
			"error", err)
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	w.logger.Error("giving up on version after retries",
		"chapter", version.ChapterID,
		"sequence", version.Sequence,
		"attempts", w.maxAttempts)
}
