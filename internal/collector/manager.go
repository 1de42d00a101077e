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

package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/phuonguno98/unopulse/internal/config"
	"github.com/phuonguno98/unopulse/internal/dashboard"
	"github.com/phuonguno98/unopulse/internal/history"
	"github.com/phuonguno98/unopulse/pkg/metrics"
)

var startUpDelay = 1 * time.Second

// ErrNoData is returned when every collector failed in one cycle.
var ErrNoData = errors.New("no metrics could be collected")

// Manager orchestrates all metric collectors and acts as the local telemetry source.
type Manager struct {
	config   *config.Config
	cpu      *CPUCollector
	memory   *MemoryCollector
	disk     *DiskCollector
	network  *NetworkCollector
	process  *ProcessCollector
	platform string

	cpuHistory    *history.Store[int]
	memoryHistory *history.Series

	collectMu sync.Mutex // Serializes collection cycles
	primed    bool

	ticker *time.Ticker
	logger *slog.Logger
}

var _ dashboard.Source = (*Manager)(nil)

// NewManager creates a new collector manager instance.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	historyLength := cfg.HistoryCapacity
	if historyLength <= 0 {
		historyLength = metrics.HistoryLength
	}

	return &Manager{
		config:        cfg,
		cpu:           NewCPUCollector(),
		memory:        NewMemoryCollector(),
		disk:          NewDiskCollector(cfg.IncludeDisks, cfg.ExcludeDisks, historyLength),
		network:       NewNetworkCollector(cfg.IncludeNetworks, cfg.ExcludeNetworks, historyLength),
		process:       NewProcessCollector(cfg.TopProcesses),
		platform:      platformName(),
		cpuHistory:    history.NewStore[int](historyLength),
		memoryHistory: history.NewSeries(historyLength),
		logger:        logger,
	}
}

// platformName describes the operating system, e.g. "ubuntu 24.04".
func platformName() string {
	info, err := host.Info()
	if err != nil || info.Platform == "" {
		return runtime.GOOS
	}
	return strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
}

// Current collects one snapshot on demand. The first call takes a baseline
// and waits briefly so rates are meaningful.
func (m *Manager) Current(ctx context.Context) (*metrics.Snapshot, error) {
	if err := m.prime(ctx); err != nil {
		return nil, err
	}
	return m.collectOnce(ctx)
}

// Subscribe streams snapshots at the configured interval until ctx is done.
func (m *Manager) Subscribe(ctx context.Context) <-chan dashboard.Event {
	events := make(chan dashboard.Event, 10)
	go func() {
		defer close(events)
		if err := m.Start(ctx, events); err != nil {
			m.logger.Error("Collector manager stopped with error", "error", err)
		}
	}()
	return events
}

// prime performs the baseline collection once.
func (m *Manager) prime(ctx context.Context) error {
	m.collectMu.Lock()
	primed := m.primed
	m.collectMu.Unlock()
	if primed {
		return nil
	}

	m.logger.Info("Performing baseline collection...")
	if _, err := m.collectOnce(ctx); err != nil {
		m.logger.Warn("Baseline collection had errors", "error", err)
	}

	// Wait a bit before starting regular collection
	select {
	case <-time.After(startUpDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	m.collectMu.Lock()
	m.primed = true
	m.collectMu.Unlock()
	return nil
}

// Start begins the collection loop, delivering every snapshot or failure on out.
// It performs an initial baseline collection, then collects metrics at the configured interval.
func (m *Manager) Start(ctx context.Context, out chan<- dashboard.Event) error {
	m.logger.Info("Starting collector manager",
		"interval", m.config.SamplingInterval,
	)

	if err := m.prime(ctx); err != nil {
		return nil
	}

	// Start ticker for regular collection
	m.ticker = time.NewTicker(m.config.SamplingInterval)
	defer m.ticker.Stop()

	m.logger.Info("Collector manager started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Collector manager stopping...")
			return nil

		case <-m.ticker.C:
			snapshot, err := m.collectOnce(ctx)
			if err != nil {
				m.logger.Error("Collection failed", "error", err)
			}
			m.send(out, dashboard.Event{Snapshot: snapshot, Err: err})
		}
	}
}

// send delivers ev without blocking the collection loop.
func (m *Manager) send(out chan<- dashboard.Event, ev dashboard.Event) {
	select {
	case out <- ev:
		if ev.Snapshot != nil {
			m.logger.Debug("Snapshot sent",
				"cores", len(ev.Snapshot.CPUUsage),
				"memory_used", ev.Snapshot.MemoryUsed,
				"disks", len(ev.Snapshot.Disks),
				"networks", len(ev.Snapshot.Networks),
				"processes", len(ev.Snapshot.Processes),
			)
		}
	default:
		m.logger.Warn("Event channel full, dropping snapshot")
	}
}

// collectOnce performs a single collection cycle concurrently.
// It gathers metrics from all collectors in parallel to minimize total collection time.
func (m *Manager) collectOnce(ctx context.Context) (*metrics.Snapshot, error) {
	m.collectMu.Lock()
	defer m.collectMu.Unlock()

	snapshot := &metrics.Snapshot{
		Timestamp: time.Now(),
		Platform:  m.platform,
		Disks:     make(map[string]metrics.DiskRecord),
		Networks:  make(map[string]metrics.NetworkRecord),
		GPUs:      []metrics.GPURecord{},
		Processes: []metrics.Process{},
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex // Protects snapshot updates
		failed []error
	)

	fail := func(name string, err error) {
		m.logger.Warn("Failed to collect metrics", "collector", name, "error", err)
		mu.Lock()
		failed = append(failed, err)
		mu.Unlock()
	}

	// We have 5 collectors to run in parallel
	wg.Add(5)

	// Collect CPU metrics
	go func() {
		defer wg.Done()
		usage, err := m.cpu.Collect()
		if err != nil {
			fail(m.cpu.Name(), err)
			return
		}
		mu.Lock()
		snapshot.CPUUsage = usage
		mu.Unlock()
	}()

	// Collect Memory metrics
	go func() {
		defer wg.Done()
		used, total, err := m.memory.Collect()
		if err != nil {
			fail(m.memory.Name(), err)
			return
		}
		mu.Lock()
		snapshot.MemoryUsed = used
		snapshot.MemoryTotal = total
		mu.Unlock()
	}()

	// Collect Disk metrics
	go func() {
		defer wg.Done()
		res, err := m.disk.Collect(ctx)
		if err != nil {
			fail(m.disk.Name(), err)
			return
		}
		mu.Lock()
		snapshot.Disks = res.Disks
		snapshot.DiskReadPerSec = res.ReadPerSec
		snapshot.DiskWritePerSec = res.WritePerSec
		snapshot.DiskReadHistory = res.ReadHistory
		snapshot.DiskWriteHistory = res.WriteHistory
		mu.Unlock()
	}()

	// Collect Network metrics
	go func() {
		defer wg.Done()
		nets, err := m.network.Collect(ctx)
		if err != nil {
			fail(m.network.Name(), err)
			return
		}
		mu.Lock()
		snapshot.Networks = nets
		mu.Unlock()
	}()

	// Collect Process metrics
	go func() {
		defer wg.Done()
		procs, err := m.process.Collect(ctx)
		if err != nil {
			fail(m.process.Name(), err)
			return
		}
		mu.Lock()
		snapshot.Processes = procs
		mu.Unlock()
	}()

	// Wait for all collectors to finish
	wg.Wait()

	if len(failed) == 5 {
		return nil, fmt.Errorf("%w: %w", ErrNoData, errors.Join(failed...))
	}

	m.recordHistories(snapshot)
	return snapshot, nil
}

// recordHistories attaches the host-side CPU and memory histories to snapshot.
func (m *Manager) recordHistories(snapshot *metrics.Snapshot) {
	snapshot.CPUHistory = make([][]float64, len(snapshot.CPUUsage))
	for i, v := range snapshot.CPUUsage {
		m.cpuHistory.Append(i, v, time.Time{})
		snapshot.CPUHistory[i] = m.cpuHistory.Values(i)
	}

	if pct, err := metrics.ResolveMemory(snapshot.MemoryUsed, snapshot.MemoryTotal); err == nil {
		m.memoryHistory.Append(pct, time.Time{})
	}
	snapshot.MemoryHistory = m.memoryHistory.Values()
}

// Stop gracefully stops the collector manager.
func (m *Manager) Stop() {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	m.logger.Info("Collector manager stopped")
}
