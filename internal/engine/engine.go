// Package engine implements the public facade described in spec §4.5:
// it owns the Store and EventBus, enforces the lifecycle state machine,
// and spawns/cancels Transfer Workers, one per path.
//
// Grounded on down-kingo-downkingo's internal/downloader.Manager: a
// path-keyed map of running work guarded by a mutex, with every mutation
// following read -> validate -> write Store -> emit event -> spawn/cancel
// worker, the same shape as Manager.processJob's status transitions.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"downforge/internal/config"
	"downforge/internal/errors"
	"downforge/internal/eventbus"
	"downforge/internal/logger"
	"downforge/internal/record"
	"downforge/internal/resumecache"
	"downforge/internal/store"
	"downforge/internal/transfer"
)

// ActionResponse is the result of a mutating Engine call (spec §6.3):
// the Record after the call, the status the caller was expecting to
// reach, and whether that expectation was actually met. A false
// IsExpectedStatus marks a no-op: the call was legal but did not change
// anything because the Record was already past (or not at) the
// required prior status.
type ActionResponse struct {
	Download         record.Record `json:"download"`
	ExpectedStatus   record.Status `json:"expectedStatus"`
	IsExpectedStatus bool          `json:"isExpectedStatus"`
}

func response(r record.Record, expected record.Status) ActionResponse {
	return ActionResponse{Download: r, ExpectedStatus: expected, IsExpectedStatus: r.Status == expected}
}

// worker tracks one running Transfer Worker for a path.
type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine is the process-wide facade over Store, EventBus, and the set
// of currently running Transfer Workers.
type Engine struct {
	store  *store.Store
	bus    *eventbus.Bus
	cfg    *config.Config
	resume *resumecache.Cache

	mu      sync.Mutex
	workers map[string]*worker
}

// New constructs an Engine rooted at dataDir using default tunables.
// Tests should call New directly against a temp directory rather than
// going through Get, per spec §9's "tests instantiate a fresh Engine"
// note.
func New(dataDir string) (*Engine, error) {
	return NewWithConfig(dataDir, config.Default())
}

// NewWithConfig constructs an Engine rooted at dataDir, loading (or
// creating) its Store file, applying cfg's EventBus/HTTP tunables, and
// performing startup reconciliation (spec §4.5.7).
func NewWithConfig(dataDir string, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	storePath := filepath.Join(dataDir, "downloads.json")
	st, err := store.Open(storePath)
	if err != nil {
		return nil, errors.Wrap("Engine.New", err)
	}

	// The resume-hint cache is a pure optimization (spec §9's "no
	// invariant depends on resumeHint"): a failure to open it is logged
	// and the Engine runs on, falling back to Range-based resume alone.
	resumeCache, err := resumecache.Open(dataDir)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("engine: resume-hint cache unavailable, falling back to Range-only resume")
		resumeCache = nil
	}

	e := &Engine{
		store:   st,
		bus:     eventbus.New(cfg.EventBufferSize),
		cfg:     cfg,
		resume:  resumeCache,
		workers: make(map[string]*worker),
	}

	e.reconcile()
	return e, nil
}

// reconcile implements spec §4.5.7: any Record left InProgress by a
// prior process is demoted to Paused (if it made progress) or Idle
// (if it never started streaming). No events are emitted here.
func (e *Engine) reconcile() {
	for _, r := range e.store.List() {
		if r.Status != record.StatusInProgress {
			continue
		}
		next := record.StatusPaused
		if r.Progress == 0 {
			next = record.StatusIdle
		}
		if err := e.store.Update(r.WithStatus(next), true); err != nil {
			logger.Log.Error().Err(err).Str("path", r.Path).Msg("engine: reconciliation save failed")
		}
	}
}

// List returns a snapshot of every Record (spec §4.5.1).
func (e *Engine) List() []record.Record {
	return e.store.List()
}

// Get returns the Record at path, or a synthetic Pending Record if none
// exists (spec §4.5.2).
func (e *Engine) Get(path string) record.Record {
	if r, ok := e.store.FindByPath(path); ok {
		return r
	}
	return record.Pending(path)
}

// Subscribe attaches a new EventBus subscriber (spec §6.3's `changed`).
func (e *Engine) Subscribe() *eventbus.Subscription {
	return e.bus.Subscribe()
}

// Create registers a new download (spec §4.5.3).
func (e *Engine) Create(path, url string) (ActionResponse, error) {
	if existing, ok := e.store.FindByPath(path); ok {
		return response(existing, record.StatusIdle), nil
	}

	r := record.New(path, url)
	if e.resume != nil {
		if hint, err := e.resume.Put(path); err != nil {
			logger.Log.Warn().Err(err).Str("path", path).Msg("engine: failed to record resume hint")
		} else {
			r = r.WithResumeHint(hint)
		}
	}

	if err := e.store.Append(r); err != nil {
		return ActionResponse{}, errors.Wrap("Engine.Create", err)
	}
	e.bus.Emit(r)
	return response(r, record.StatusIdle), nil
}

// Start begins a fresh transfer for an Idle Record (spec §4.5.4).
func (e *Engine) Start(path string) (ActionResponse, error) {
	return e.launch(path, record.StatusIdle)
}

// Resume restarts a transfer for a Paused Record (spec §4.5.4).
func (e *Engine) Resume(path string) (ActionResponse, error) {
	return e.launch(path, record.StatusPaused)
}

// launch implements the shared start/resume logic: validate legal
// prior status, flip to InProgress, spawn (or replace) the worker.
func (e *Engine) launch(path string, legalFrom record.Status) (ActionResponse, error) {
	r, ok := e.store.FindByPath(path)
	if !ok {
		return ActionResponse{}, errors.New("Engine.launch", errors.ErrNotFound)
	}
	if r.Status != legalFrom {
		return response(r, record.StatusInProgress), nil
	}

	r = r.WithStatus(record.StatusInProgress)
	if err := e.store.Update(r, true); err != nil {
		return ActionResponse{}, errors.Wrap("Engine.launch", err)
	}
	e.bus.Emit(r)

	e.spawn(r.Path, r.URL)
	return response(r, record.StatusInProgress), nil
}

// Pause stops an InProgress transfer cooperatively (spec §4.5.5). Only
// the status flip is persisted and emitted; the worker is not signaled
// or cancelled. It stops when its next throttled progress tick finds
// the Record Paused. A transfer of unknown size reports no progress
// ticks, so it keeps streaming until the body ends, and finishTransfer
// then leaves the temp file in place without renaming it.
func (e *Engine) Pause(path string) (ActionResponse, error) {
	r, ok := e.store.FindByPath(path)
	if !ok {
		return ActionResponse{}, errors.New("Engine.Pause", errors.ErrNotFound)
	}
	if r.Status != record.StatusInProgress {
		return response(r, record.StatusPaused), nil
	}

	r = r.WithStatus(record.StatusPaused)
	if err := e.store.Update(r, true); err != nil {
		return ActionResponse{}, errors.Wrap("Engine.Pause", err)
	}
	e.bus.Emit(r)

	// No explicit signal beyond the status flip: the worker observes
	// Paused on its next throttled progress tick (spec §4.4 step 8).
	return response(r, record.StatusPaused), nil
}

// Cancel stops any running worker, deletes the temp file, and removes
// the Record (spec §4.5.6). The worker's Failed hook does not call
// Cancel; it shares the cleanup through cancelRecord.
func (e *Engine) Cancel(path string) (ActionResponse, error) {
	r, ok := e.store.FindByPath(path)
	if !ok {
		return ActionResponse{}, errors.New("Engine.Cancel", errors.ErrNotFound)
	}
	if !r.Persistable() {
		return response(r, record.StatusCancelled), nil
	}

	e.stopWorker(path)
	return e.cancelRecord(r)
}

// cancelRecord removes path's temp file and Record and emits Cancelled.
// It assumes any worker for path has already been stopped (or, when
// called from the Failed hook below, is the very goroutine invoking
// it and is about to exit on its own) — it never waits on a worker.
func (e *Engine) cancelRecord(r record.Record) (ActionResponse, error) {
	path := r.Path

	if err := os.Remove(path + ".download"); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn().Err(err).Str("path", path).Msg("engine: failed to remove temp file on cancel")
	}

	if err := e.store.Remove(path); err != nil {
		return ActionResponse{}, errors.Wrap("Engine.Cancel", err)
	}
	e.forgetResumeHint(path)

	cancelled := r.WithStatus(record.StatusCancelled)
	e.bus.Emit(cancelled)
	return response(cancelled, record.StatusCancelled), nil
}

// spawn starts a Transfer Worker for path/url, replacing any worker
// already running for that path (spec's unique-work rule, §5).
func (e *Engine) spawn(path, url string) {
	e.mu.Lock()
	if existing, ok := e.workers[path]; ok {
		existing.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{cancel: cancel, done: make(chan struct{})}
	e.workers[path] = w
	e.mu.Unlock()

	go func() {
		defer close(w.done)
		defer e.clearWorker(path, w)

		hooks := transfer.Hooks{
			Started: func() {
				// No-op: the Engine already flips the Record to
				// InProgress and emits before spawn is called.
			},
			Progress: func(percent float64) transfer.Disposition {
				r, ok := e.store.FindByPath(path)
				if !ok {
					return transfer.StopOther
				}
				switch r.Status {
				case record.StatusInProgress:
					if err := e.store.Update(r.WithProgress(percent), false); err != nil {
						logger.Log.Error().Err(err).Str("path", path).Msg("engine: progress update failed")
					}
					e.bus.Emit(r.WithProgress(percent))
					return transfer.Continue
				case record.StatusPaused:
					return transfer.StopPaused
				default:
					return transfer.StopOther
				}
			},
			Completed: func() {
				e.finishTransfer(path)
			},
			Failed: func(reason error) {
				logger.Log.Error().Err(reason).Str("path", path).Msg("engine: transfer failed")

				// Cleanup only: called from this worker's own goroutine,
				// so it must not route through Cancel/stopWorker, which
				// waits on w.done — this goroutine hasn't returned yet
				// and that wait would never be satisfied.
				r, ok := e.store.FindByPath(path)
				if !ok || !r.Persistable() {
					return
				}
				if _, err := e.cancelRecord(r); err != nil {
					logger.Log.Error().Err(err).Str("path", path).Msg("engine: cancel-on-failure failed")
				}
			},
		}

		tw := transfer.NewWithTimeouts(e.cfg.ConnectTimeout(), e.cfg.IdleReadTimeout())
		tw.Run(ctx, url, path, hooks)
	}()
}

// finishTransfer implements spec §4.4 step 9's success path: only a
// still-InProgress Record gets renamed into place and removed; any
// other status means the user already paused/cancelled and the
// finished download's outcome is discarded.
func (e *Engine) finishTransfer(path string) {
	r, ok := e.store.FindByPath(path)
	if !ok || r.Status != record.StatusInProgress {
		return
	}

	temp := path + ".download"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Log.Error().Err(err).Str("path", path).Msg("engine: failed to prepare destination directory")
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Log.Error().Err(err).Str("path", path).Msg("engine: failed to remove existing destination")
		return
	}
	if err := os.Rename(temp, path); err != nil {
		logger.Log.Error().Err(err).Str("path", path).Msg("engine: failed to finalize download")
		return
	}

	completed := r.WithStatus(record.StatusCompleted)
	if err := e.store.Remove(path); err != nil {
		logger.Log.Error().Err(err).Str("path", path).Msg("engine: failed to remove completed record")
	}
	e.forgetResumeHint(path)
	e.bus.Emit(completed)
}

// forgetResumeHint best-effort deletes path's resume-hint cache entry,
// if a cache is attached. Failures are logged, never surfaced: the
// cache is purely an optimization (spec §9).
func (e *Engine) forgetResumeHint(path string) {
	if e.resume == nil {
		return
	}
	if err := e.resume.Delete(path); err != nil {
		logger.Log.Warn().Err(err).Str("path", path).Msg("engine: failed to clear resume hint")
	}
}

// stopWorker cancels and waits for the worker running path, if any.
func (e *Engine) stopWorker(path string) {
	e.mu.Lock()
	w, ok := e.workers[path]
	e.mu.Unlock()
	if !ok {
		return
	}
	w.cancel()
	<-w.done
}

func (e *Engine) clearWorker(path string, w *worker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if current, ok := e.workers[path]; ok && current == w {
		delete(e.workers, path)
	}
}

// Close detaches every EventBus subscriber and stops all running
// workers without mutating the Store, for orderly process shutdown.
func (e *Engine) Close() {
	e.mu.Lock()
	paths := make([]string, 0, len(e.workers))
	for p := range e.workers {
		paths = append(paths, p)
	}
	e.mu.Unlock()

	for _, p := range paths {
		e.stopWorker(p)
	}
	e.bus.Close()

	if e.resume != nil {
		if err := e.resume.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("engine: failed to close resume-hint cache")
		}
	}
}
