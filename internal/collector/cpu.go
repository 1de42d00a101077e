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
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// CPUCollector collects per-core CPU utilization.
type CPUCollector struct {
	prevStats []metrics.CPUTimeStats
	firstRun  bool
	timesFunc func(percpu bool) ([]cpu.TimesStat, error)
}

// NewCPUCollector creates a new CPU collector instance.
func NewCPUCollector() *CPUCollector {
	return &CPUCollector{
		firstRun:  true,
		timesFunc: cpu.Times,
	}
}

// Collect gathers current CPU times and calculates utilization per core.
// The first call only stores a baseline and reports zero for every core.
func (c *CPUCollector) Collect() ([]float64, error) {
	currentStats, err := c.getCPUTimeStats()
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU stats: %w", err)
	}

	usage := make([]float64, len(currentStats))

	// First run, or the core count changed (CPU hotplug)
	if c.firstRun || len(c.prevStats) != len(currentStats) {
		c.prevStats = currentStats
		c.firstRun = false
		return usage, nil
	}

	for i := range currentStats {
		usage[i] = metrics.CalculateCPUUtilization(&c.prevStats[i], &currentStats[i])
	}

	// Update previous stats
	c.prevStats = currentStats

	return usage, nil
}

// getCPUTimeStats retrieves per-core CPU time statistics from the system.
func (c *CPUCollector) getCPUTimeStats() ([]metrics.CPUTimeStats, error) {
	times, err := c.timesFunc(true)
	if err != nil {
		return nil, err
	}

	if len(times) == 0 {
		return nil, fmt.Errorf("no CPU time stats available")
	}

	now := time.Now()
	stats := make([]metrics.CPUTimeStats, len(times))
	for i := range times {
		t := &times[i]
		stats[i] = metrics.CPUTimeStats{
			User:      t.User,
			System:    t.System,
			Idle:      t.Idle,
			IOWait:    c.getIOWait(t),
			Irq:       t.Irq,
			SoftIrq:   t.Softirq,
			Steal:     t.Steal,
			Guest:     t.Guest,
			GuestNice: t.GuestNice,
			Timestamp: now,
		}
	}

	return stats, nil
}

// getIOWait extracts the iowait share of busy time.
// Only Linux reports it separately; elsewhere it is folded into idle.
func (c *CPUCollector) getIOWait(t *cpu.TimesStat) float64 {
	if runtime.GOOS == "linux" {
		return t.Iowait
	}
	return 0
}

// Name returns the collector name for logging purposes.
func (c *CPUCollector) Name() string {
	return "CPU"
}
