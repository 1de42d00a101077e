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
	"fmt"
	"sort"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// ProcessCollector collects the busiest processes.
type ProcessCollector struct {
	limit int
	// CPU percent is measured between calls on the same handle.
	handles   map[int32]*process.Process
	processes func(ctx context.Context) ([]*process.Process, error)
}

// NewProcessCollector creates a collector reporting at most limit processes.
func NewProcessCollector(limit int) *ProcessCollector {
	return &ProcessCollector{
		limit:     limit,
		handles:   make(map[int32]*process.Process),
		processes: process.ProcessesWithContext,
	}
}

// Collect returns the processes with the highest CPU usage, busiest first.
// Processes that exit while being inspected are skipped.
func (c *ProcessCollector) Collect(ctx context.Context) ([]metrics.Process, error) {
	procs, err := c.processes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	alive := make(map[int32]*process.Process, len(procs))
	result := make([]metrics.Process, 0, len(procs))

	for _, p := range procs {
		if p.Pid < 0 {
			continue
		}

		handle, ok := c.handles[p.Pid]
		if !ok {
			handle = p
		}

		name, err := handle.NameWithContext(ctx)
		if err != nil {
			continue
		}
		alive[p.Pid] = handle

		cpuPercent, err := handle.PercentWithContext(ctx, 0)
		if err != nil {
			cpuPercent = 0
		}

		var memMB float64
		if info, err := handle.MemoryInfoWithContext(ctx); err == nil && info != nil {
			memMB = float64(info.RSS) / (1024 * 1024)
		}

		result = append(result, metrics.Process{
			PID:      uint32(p.Pid),
			Name:     name,
			CPU:      cpuPercent,
			MemoryMB: memMB,
		})
	}

	// Forget processes that exited
	c.handles = alive

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CPU != result[j].CPU {
			return result[i].CPU > result[j].CPU
		}
		return result[i].MemoryMB > result[j].MemoryMB
	})

	if c.limit > 0 && len(result) > c.limit {
		result = result[:c.limit]
	}

	return result, nil
}

// Name returns the collector name for logging purposes.
func (c *ProcessCollector) Name() string {
	return "Process"
}
