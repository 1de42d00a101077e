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

import (
	"math"
	"testing"
	"time"
)

func TestCalculateCPUUtilization(t *testing.T) {
	tests := []struct {
		name     string
		prev     CPUTimeStats
		current  CPUTimeStats
		expected float64
	}{
		{
			name: "Normal usage",
			prev: CPUTimeStats{
				User: 100, System: 50, Idle: 800, IOWait: 10,
				Timestamp: time.Now(),
			},
			current: CPUTimeStats{
				User: 110, System: 60, Idle: 810, IOWait: 15, // Deltas: U:10, S:10, I:10, IO:5 -> Total: 35
				Timestamp: time.Now().Add(1 * time.Second),
			},
			// Total Delta = 10 (User) + 10 (System) + 10 (Idle) + 5 (IO) = 35
			// Idle Delta = 10
			// Util = 100 * (1 - 10/35) = 100 * (25/35) = 100 * 0.7142857 = 71.42857
			expected: 71.42857142857143,
		},
		{
			name: "Zero timestamp (First run)",
			prev: CPUTimeStats{}, // Zero timestamp
			current: CPUTimeStats{
				User:      100,
				Timestamp: time.Now(),
			},
			expected: 0.0,
		},
		{
			name: "No change (Zero delta total)",
			prev: CPUTimeStats{
				User: 100, Idle: 100,
				Timestamp: time.Now(),
			},
			current: CPUTimeStats{
				User: 100, Idle: 100,
				Timestamp: time.Now().Add(1 * time.Second),
			},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCPUUtilization(&tt.prev, &tt.current)
			if math.Abs(got-tt.expected) > 0.00001 {
				t.Errorf("CalculateCPUUtilization() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateKBPerSec(t *testing.T) {
	tests := []struct {
		name     string
		prev     uint64
		current  uint64
		seconds  float64
		expected float64
		ok       bool
	}{
		{name: "1 KB over 1s", prev: 1000, current: 2024, seconds: 1, expected: 1.0, ok: true},
		{name: "10 KB over 2s", prev: 0, current: 10240, seconds: 2, expected: 5.0, ok: true},
		{name: "Counter reset", prev: 5000, current: 100, seconds: 1, expected: 0.0, ok: true},
		{name: "Zero interval", prev: 0, current: 1024, seconds: 0, expected: 0.0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CalculateKBPerSec(tt.prev, tt.current, tt.seconds)
			if ok != tt.ok {
				t.Fatalf("CalculateKBPerSec() ok = %v, want %v", ok, tt.ok)
			}
			if math.Abs(got-tt.expected) > 0.00001 {
				t.Errorf("CalculateKBPerSec() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateNetworkRates(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		prev    NetworkIOStats
		current NetworkIOStats
		rx, tx  float64
		ok      bool
	}{
		{
			name: "Normal traffic",
			prev: NetworkIOStats{BytesRecv: 1000, BytesSent: 1000, Timestamp: now},
			current: NetworkIOStats{
				BytesRecv: 1000 + 4096, // 4 KB
				BytesSent: 1000 + 2048, // 2 KB
				Timestamp: now.Add(2 * time.Second),
			},
			rx: 2.0,
			tx: 1.0,
			ok: true,
		},
		{
			name:    "First sample",
			prev:    NetworkIOStats{},
			current: NetworkIOStats{BytesRecv: 4096, Timestamp: now},
			ok:      false,
		},
		{
			name:    "Zero time delta",
			prev:    NetworkIOStats{BytesRecv: 10, Timestamp: now},
			current: NetworkIOStats{BytesRecv: 20, Timestamp: now},
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rx, tx, ok := CalculateNetworkRates(tt.prev, tt.current)
			if ok != tt.ok {
				t.Fatalf("CalculateNetworkRates() ok = %v, want %v", ok, tt.ok)
			}
			if math.Abs(rx-tt.rx) > 0.00001 || math.Abs(tx-tt.tx) > 0.00001 {
				t.Errorf("CalculateNetworkRates() = (%v, %v), want (%v, %v)", rx, tx, tt.rx, tt.tx)
			}
		})
	}
}

func TestCalculateDiskRates(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	prev := DiskIOStats{ReadBytes: 1 << 20, WriteBytes: 0, Timestamp: now}
	current := DiskIOStats{
		ReadBytes:  1<<20 + 512*1024, // 512 KB
		WriteBytes: 1024,             // 1 KB
		Timestamp:  now.Add(time.Second),
	}

	read, write, ok := CalculateDiskRates(prev, current)
	if !ok {
		t.Fatal("CalculateDiskRates() ok = false, want true")
	}
	if math.Abs(read-512) > 0.00001 {
		t.Errorf("read = %v, want 512", read)
	}
	if math.Abs(write-1) > 0.00001 {
		t.Errorf("write = %v, want 1", write)
	}

	if _, _, ok := CalculateDiskRates(DiskIOStats{}, current); ok {
		t.Error("CalculateDiskRates(empty, valid) ok = true, want false")
	}
}

func TestCalculateEdgeCases(t *testing.T) {
	emptyCPU := CPUTimeStats{}
	validCPU := CPUTimeStats{Timestamp: time.Now()}

	if val := CalculateCPUUtilization(&emptyCPU, &validCPU); val != 0.0 {
		t.Errorf("CalculateCPUUtilization(empty, valid) = %v, want 0.0", val)
	}

	// Idle going backwards must not exceed 100%.
	cpu1 := CPUTimeStats{User: 100, Idle: 500, Timestamp: time.Now()}
	cpu2 := CPUTimeStats{User: 200, Idle: 450, Timestamp: time.Now().Add(time.Second)}
	if val := CalculateCPUUtilization(&cpu1, &cpu2); val < 0 || val > 100 {
		t.Errorf("CalculateCPUUtilization(idle regressed) = %v, want within [0, 100]", val)
	}
}
