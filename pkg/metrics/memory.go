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

package metrics

import "math"

// BytesPerGB converts between the host's GB figures and bytes.
const BytesPerGB = 1 << 30

// MemoryUsage is the resolved memory state of one snapshot.
type MemoryUsage struct {
	UsedGB       float64 `json:"used_gb"`
	TotalGB      float64 `json:"total_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

// BytesToGB converts a byte count to GB.
func BytesToGB(b uint64) float64 {
	return float64(b) / BytesPerGB
}

// ResolveMemory returns memory usage as a percentage of total, clamped to [0, 100].
func ResolveMemory(used, total float64) (float64, error) {
	if !isFinite(total) || total <= 0 {
		return 0, ErrCapacityIndeterminate
	}
	if !isFinite(used) {
		return 0, ErrUsageIndeterminate
	}
	return ClampPercent(used / total * 100), nil
}

// Memory resolves the memory figures carried by s.
func (s *Snapshot) Memory() (MemoryUsage, error) {
	pct, err := ResolveMemory(s.MemoryUsed, s.MemoryTotal)
	if err != nil {
		return MemoryUsage{}, err
	}
	return MemoryUsage{
		UsedGB:       s.MemoryUsed,
		TotalGB:      s.MemoryTotal,
		AvailableGB:  math.Max(0, s.MemoryTotal-s.MemoryUsed),
		UsagePercent: pct,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
