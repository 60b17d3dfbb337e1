package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"bookforge/internal/config"
	"bookforge/internal/pipeline"
	"bookforge/internal/semindex"
	"bookforge/internal/versions"
)

// Daemon coordinates the index worker and API server and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *versions.Store
	index    *semindex.Index
	worker   *semindex.Worker
	pipeline *pipeline.Pipeline

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	api *apiServer
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *versions.Store, index *semindex.Index, worker *semindex.Worker, pl *pipeline.Pipeline, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || index == nil || worker == nil || pl == nil {
		return nil, errors.New("daemon requires config, store, index, worker, and pipeline")
	}
	if logger == nil {
		logger = slog.Default()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		index:    index,
		worker:   worker,
		pipeline: pl,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, bootstraps the index, and launches the
// worker and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bookforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.store.Subscribe(d.worker.Enqueue)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.worker.Bootstrap(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("index bootstrap failed", "error", err)
		}
		d.worker.Run(runCtx)
	}()

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			cancel()
			d.wg.Wait()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("bookforge daemon started", "lock", d.lockPath)
	return nil
}

// Stop shuts down background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.api != nil {
		d.api.stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", "error", err)
	}
	d.running.Store(false)
	d.logger.Info("bookforge daemon stopped")
}

// Close stops the daemon and closes its stores.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports runtime information for the status endpoint.
func (d *Daemon) Status(ctx context.Context) (running bool, pid int, stats map[versions.Type]int, indexed int64) {
	running = d.running.Load()
	pid = os.Getpid()
	var err error
	stats, err = d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("version stats unavailable", "error", err)
		stats = map[versions.Type]int{}
	}
	indexed, err = d.index.Count(ctx)
	if err != nil {
		d.logger.Warn("index count unavailable", "error", err)
	}
	return running, pid, stats, indexed
}
