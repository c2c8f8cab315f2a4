package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	hsync "github.com/Yoshino-s/hitokoto-api/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// Interval is how often a sync is attempted regardless of file
	// changes. Zero disables periodic syncs.
	Interval time.Duration

	// Debounce is how long bundle files must stay quiet before a change
	// triggers a sync. This batches the many writes of a bundle update.
	Debounce time.Duration

	// Watch enables the bundle file watcher.
	Watch bool

	// Logger for daemon activity. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval: 10 * time.Minute,
		Debounce: 2 * time.Second,
		Watch:    true,
	}
}

// Runner performs one sync attempt. sync.Syncer satisfies it.
type Runner interface {
	Run(ctx context.Context) (*hsync.Result, error)
}

// Observer is told about the outcome of every run.
type Observer interface {
	SyncComplete(res *hsync.Result)
	SyncFailed(err error)
}

// Stats summarises what the daemon has done so far.
type Stats struct {
	Runs       int
	Failures   int
	LastRun    time.Time
	LastResult *hsync.Result
	LastError  error
}

// Daemon schedules sync runs and guarantees they never overlap.
//
// Runs are started by:
//   - Start, once, before anything else
//   - a ticker every Config.Interval
//   - bundle file changes, after Config.Debounce of quiet
//   - Trigger
//
// A failed run is logged and reported to the observer; the next trigger
// retries it.
type Daemon struct {
	runner   Runner
	root     string
	config   *Config
	logger   *slog.Logger
	observer Observer

	watcher       *FileWatcher
	changeQueue   map[string]time.Time // path -> last event
	changeQueueMu sync.Mutex

	trigger chan string

	runMu   sync.Mutex
	statsMu sync.Mutex
	stats   Stats

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a daemon that runs runner for the bundle at root.
//
// Use Start() to begin scheduling.
func New(runner Runner, root string, config *Config) (*Daemon, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if root == "" {
		return nil, fmt.Errorf("bundle root cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var watcher *FileWatcher
	if config.Watch {
		var err error
		watcher, err = NewFileWatcher()
		if err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		runner:      runner,
		root:        root,
		config:      config,
		logger:      logger.With("component", "daemon"),
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		trigger:     make(chan string, 1),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// SetObserver registers o to hear about run outcomes. Call before Start.
func (d *Daemon) SetObserver(o Observer) {
	d.observer = o
}

// Start runs an initial sync, starts the watcher and the scheduling loops,
// and blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Info("starting daemon",
		"root", d.root,
		"interval", d.config.Interval,
		"debounce", d.config.Debounce,
		"watch", d.config.Watch)

	if d.watcher != nil {
		if err := d.watcher.Start(d.root); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		d.wg.Add(2)
		go d.watchFileEvents()
		go d.processChangeQueue()
	}

	d.wg.Add(1)
	go d.schedule()

	d.Trigger("startup")

	select {
	case <-ctx.Done():
		d.logger.Info("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon, waiting for an in-flight run.
func (d *Daemon) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		d.logger.Info("stopping daemon")
		d.cancel()
		if d.watcher != nil {
			if werr := d.watcher.Stop(); werr != nil {
				d.logger.Warn("error closing watcher", "error", werr)
				err = werr
			}
		}
		d.wg.Wait()
		d.logger.Info("daemon stopped")
	})
	return err
}

// Trigger requests a sync. It never blocks; requests made while one is
// already pending are merged.
func (d *Daemon) Trigger(reason string) {
	select {
	case d.trigger <- reason:
	default:
	}
}

// RunOnce performs a sync now, waiting for any in-flight run to finish
// first.
func (d *Daemon) RunOnce(ctx context.Context) (*hsync.Result, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	res, err := d.runner.Run(ctx)

	d.statsMu.Lock()
	d.stats.Runs++
	d.stats.LastRun = time.Now()
	d.stats.LastResult, d.stats.LastError = res, err
	if err != nil {
		d.stats.Failures++
	}
	d.statsMu.Unlock()

	if d.observer != nil {
		if err != nil {
			d.observer.SyncFailed(err)
		} else {
			d.observer.SyncComplete(res)
		}
	}
	return res, err
}

// Stats returns a copy of the run statistics.
func (d *Daemon) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

// schedule is the only goroutine that starts runs on its own.
func (d *Daemon) schedule() {
	defer d.wg.Done()

	var tick <-chan time.Time
	if d.config.Interval > 0 {
		ticker := time.NewTicker(d.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-tick:
			d.run("interval")
		case reason := <-d.trigger:
			d.run(reason)
		}
	}
}

func (d *Daemon) run(reason string) {
	d.logger.Debug("running sync", "reason", reason)
	res, err := d.RunOnce(d.ctx)
	switch {
	case err != nil && errors.Is(err, context.Canceled) && d.ctx.Err() != nil:
		d.logger.Info("sync interrupted by shutdown")
	case err != nil:
		d.logger.Error("sync failed, will retry on next trigger", "reason", reason, "error", err)
	case res.Promoted():
		d.logger.Info("sync promoted slot",
			"reason", reason,
			"decision", res.Decision,
			"live", res.To,
			"version", res.BundleVersion,
			"total", res.Total,
			"duration", res.Duration)
	default:
		d.logger.Debug("sync found nothing to do", "reason", reason)
	}
}

// watchFileEvents queues bundle file changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			d.logger.Debug("bundle file event", "op", event.Op, "path", event.Path)
			d.queueChange(event.Path)

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.logger.Warn("watcher error", "error", err)
		}
	}
}

// queueChange records a file change for debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue triggers a sync once queued changes have settled.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if paths := d.settledChanges(); len(paths) > 0 {
				d.logger.Info("bundle changed", "files", len(paths))
				d.Trigger("bundle change")
			}
		}
	}
}

// settledChanges drains the queue once no file changed for Debounce and
// returns the drained paths. While any change is still fresh the whole
// queue is kept, so one bundle update triggers one sync.
func (d *Daemon) settledChanges() []string {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	if len(d.changeQueue) == 0 {
		return nil
	}
	now := time.Now()
	for _, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.Debounce {
			return nil
		}
	}

	paths := make([]string, 0, len(d.changeQueue))
	for path := range d.changeQueue {
		paths = append(paths, path)
		delete(d.changeQueue, path)
	}
	return paths
}
