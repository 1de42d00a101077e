/*
 * MIT License
 *
 * Copyright (c) 2026 Nguyen Thanh Phuong
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package dashboard drives the history tracker from a telemetry source and
// builds the derived views served to clients.
package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/phuonguno98/unopulse/internal/history"
	"github.com/phuonguno98/unopulse/internal/proctable"
	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// ErrNoSnapshot is returned for views requested before the first snapshot.
var ErrNoSnapshot = errors.New("no snapshot received yet")

// Event is one delivery from a streaming source.
type Event struct {
	Snapshot *metrics.Snapshot
	Err      error
}

// Source delivers telemetry snapshots.
type Source interface {
	// Current fetches one snapshot on demand.
	Current(ctx context.Context) (*metrics.Snapshot, error)
	// Subscribe streams snapshots until ctx is done. The channel is closed afterwards.
	Subscribe(ctx context.Context) <-chan Event
}

// Status is the lifecycle state of the data feed.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// State describes the feed for status displays.
type State struct {
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
	Samples    int       `json:"samples"`
	Platform   string    `json:"platform,omitempty"`
}

// Options configures an Engine.
type Options struct {
	Capacity          int
	RangeWindow       int
	ProcessStaleAfter int
	Clock             func() time.Time
}

// Engine owns the latest snapshot, the histories derived from it and the
// process table's sort state.
type Engine struct {
	source  Source
	tracker *history.Tracker
	logger  *slog.Logger
	clock   func() time.Time
	window  int

	ingestMu sync.Mutex

	mu         sync.RWMutex
	latest     *metrics.Snapshot
	status     Status
	lastErr    error
	lastUpdate time.Time
	sortState  proctable.SortState

	watchMu  sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

// NewEngine creates an engine reading from src. src may be nil when snapshots
// are only pushed through Ingest.
func NewEngine(src Source, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RangeWindow <= 0 {
		opts.RangeWindow = metrics.RangeWindow
	}

	return &Engine{
		source: src,
		tracker: history.NewTracker(history.TrackerOptions{
			Capacity:          opts.Capacity,
			ProcessStaleAfter: opts.ProcessStaleAfter,
			Clock:             opts.Clock,
		}),
		logger:    logger,
		clock:     opts.Clock,
		window:    opts.RangeWindow,
		status:    StatusIdle,
		sortState: proctable.DefaultSortState(),
		watchers:  make(map[int]chan struct{}),
	}
}

// Run fetches the current snapshot once, then applies streamed events until
// ctx is done or the source closes its stream.
func (e *Engine) Run(ctx context.Context) error {
	if e.source == nil {
		return errors.New("engine has no source")
	}

	e.setStatus(StatusLoading)
	snap, err := e.source.Current(ctx)
	if err != nil {
		e.Fail(err)
	} else {
		e.Ingest(snap)
	}

	events := e.source.Subscribe(ctx)
	e.logger.Info("Dashboard engine started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Dashboard engine stopping...")
			return nil
		case ev, ok := <-events:
			if !ok {
				e.logger.Info("Telemetry stream closed")
				return nil
			}
			e.Apply(ev)
		}
	}
}

// Apply handles one streamed event.
func (e *Engine) Apply(ev Event) {
	switch {
	case ev.Err != nil:
		e.Fail(ev.Err)
	case ev.Snapshot != nil:
		e.Ingest(ev.Snapshot)
	}
}

// Ingest records snap as the latest snapshot and advances every history.
// snap must not be modified afterwards.
func (e *Engine) Ingest(snap *metrics.Snapshot) {
	if snap == nil {
		return
	}

	// ingestMu spans both the histories and latest so concurrent feeders
	// cannot leave latest behind the newest history sample.
	e.ingestMu.Lock()
	report := e.tracker.Ingest(snap)

	e.mu.Lock()
	e.latest = snap
	e.status = StatusSucceeded
	e.lastErr = nil
	e.lastUpdate = e.clock()
	e.mu.Unlock()
	e.ingestMu.Unlock()

	for name, err := range report.Unresolved {
		e.logger.Debug("Metric unresolvable", "entity", name, "error", err)
	}
	if report.Substituted > 0 {
		e.logger.Debug("Non-finite samples substituted", "count", report.Substituted)
	}
	if len(report.EvictedProcs) > 0 {
		e.logger.Debug("Stale process histories dropped", "count", len(report.EvictedProcs))
	}

	e.notify()
}

// Fail records a transport error. No history advances.
func (e *Engine) Fail(err error) {
	e.logger.Error("Telemetry source failed", "error", err)

	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()
	e.mu.Lock()
	e.status = StatusFailed
	e.lastErr = err
	e.mu.Unlock()

	e.notify()
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

// State returns the current feed state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := State{
		Status:  e.status,
		Samples: e.tracker.Samples(),
	}
	if !e.lastUpdate.IsZero() {
		ts := e.lastUpdate
		st.LastUpdate = &ts
	}
	if e.lastErr != nil {
		st.Error = e.lastErr.Error()
	}
	if e.latest != nil {
		st.Platform = e.latest.Platform
	}
	return st
}

// Latest returns the most recent snapshot. It must be treated as read-only.
func (e *Engine) Latest() (*metrics.Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest, e.latest != nil
}

// Tracker exposes the underlying histories.
func (e *Engine) Tracker() *history.Tracker {
	return e.tracker
}

// SortState returns the process table's current ordering.
func (e *Engine) SortState() proctable.SortState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sortState
}

// SelectSort applies a column selection to the process table and returns the new state.
func (e *Engine) SelectSort(key proctable.SortKey) proctable.SortState {
	e.mu.Lock()
	e.sortState = e.sortState.Select(key)
	st := e.sortState
	e.mu.Unlock()
	return st
}

// Watch returns a channel signalled after every ingest or failure.
// Signals coalesce when the receiver lags. Call cancel to stop watching.
func (e *Engine) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	e.watchMu.Lock()
	id := e.nextID
	e.nextID++
	e.watchers[id] = ch
	e.watchMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.watchMu.Lock()
			delete(e.watchers, id)
			e.watchMu.Unlock()
		})
	}
	return ch, cancel
}

func (e *Engine) notify() {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	for _, ch := range e.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
