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

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// MemoryCollector collects memory usage.
type MemoryCollector struct {
	virtualMemory func() (*mem.VirtualMemoryStat, error)
}

// NewMemoryCollector creates a new memory collector instance.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{virtualMemory: mem.VirtualMemory}
}

// Collect gathers current memory metrics.
// Returns used and total memory in GB.
func (m *MemoryCollector) Collect() (used, total float64, err error) {
	vmStat, err := m.virtualMemory()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get memory stats: %w", err)
	}

	if vmStat.Total == 0 {
		return 0, 0, fmt.Errorf("total memory is zero")
	}

	return metrics.BytesToGB(vmStat.Used), metrics.BytesToGB(vmStat.Total), nil
}

// Name returns the collector name for logging purposes.
func (m *MemoryCollector) Name() string {
	return "Memory"
}
