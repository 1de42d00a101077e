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
	"encoding/json"
	"fmt"
	"time"
)

// HistoryLength is the number of samples the host keeps in its delivered histories.
const HistoryLength = 100

// Snapshot represents one full delivery of all current metrics from the host.
type Snapshot struct {
	CPUUsage      []float64                `json:"cpu_usage"`   // Per-core utilization percentage
	CPUHistory    [][]float64              `json:"cpu_history"` // Host-delivered per-core history
	MemoryUsed    float64                  `json:"memory_used"` // GB
	MemoryTotal   float64                  `json:"memory_total"`
	MemoryHistory []float64                `json:"memory_history"` // Percentage samples
	Processes     []Process                `json:"top_processes"`
	Networks      map[string]NetworkRecord `json:"network_data"` // Key: interface name
	GPUs          []GPURecord              `json:"gpu_data"`
	Disks         map[string]DiskRecord    `json:"disk_data"` // Key: disk name
	Timestamp     time.Time                `json:"timestamp"`
	Platform      string                   `json:"platform_name"`

	// System-wide disk throughput in KB/s.
	DiskReadPerSec   float64   `json:"system_disk_read_per_sec"`
	DiskWritePerSec  float64   `json:"system_disk_write_per_sec"`
	DiskReadHistory  []float64 `json:"system_disk_read_history"`
	DiskWriteHistory []float64 `json:"system_disk_write_history"`
}

// DiskRecord represents a single disk as delivered by the host.
// Usage arrives in at most one of several shapes; absent fields are nil.
type DiskRecord struct {
	Name           string   `json:"name"`
	MountPoint     string   `json:"mount_point"`
	DiskType       string   `json:"disk_type"`
	TotalSpace     *float64 `json:"total_space,omitempty"` // GB
	UsedSpace      *float64 `json:"used_space,omitempty"`
	AvailableSpace *float64 `json:"available_space,omitempty"`
	UsedPercentage *float64 `json:"used_percentage,omitempty"`

	ReadBytesPerSec  float64   `json:"read_bytes_per_sec"` // KB/s
	WriteBytesPerSec float64   `json:"write_bytes_per_sec"`
	ReadHistory      []float64 `json:"read_history"`
	WriteHistory     []float64 `json:"write_history"`
}

// NetworkRecord represents a single network interface.
type NetworkRecord struct {
	CurrentRxSpeed float64   `json:"current_rx_speed"` // KB/s
	CurrentTxSpeed float64   `json:"current_tx_speed"`
	RxBytes        uint64    `json:"rx_bytes"`
	TxBytes        uint64    `json:"tx_bytes"`
	RxHistory      []float64 `json:"rx_history"`
	TxHistory      []float64 `json:"tx_history"`
}

// GPURecord represents a single GPU.
type GPURecord struct {
	Name               string    `json:"name"`
	Utilization        float64   `json:"utilization"`
	Temperature        float64   `json:"temperature"`
	MemoryUsed         float64   `json:"memory_used"`
	MemoryTotal        float64   `json:"memory_total"`
	PowerUsage         float64   `json:"power_usage"`
	UtilizationHistory []float64 `json:"utilization_history"`
}

// Process is one row of the host's process list.
// On the wire it is the tuple [pid, name, cpu, memory_mb].
type Process struct {
	PID      uint32
	Name     string
	CPU      float64 // Percentage
	MemoryMB float64
}

// ProcessKey correlates a process across snapshots. PIDs get reused by the
// operating system, so the name is part of the identity.
type ProcessKey struct {
	PID  uint32
	Name string
}

// Key returns the composite identity of the process.
func (p Process) Key() ProcessKey {
	return ProcessKey{PID: p.PID, Name: p.Name}
}

// String renders the key for logs and JSON object keys.
func (k ProcessKey) String() string {
	return fmt.Sprintf("%d-%s", k.PID, k.Name)
}

// MarshalJSON encodes the process as the host's 4-tuple.
func (p Process) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.PID, p.Name, p.CPU, p.MemoryMB})
}

// UnmarshalJSON decodes the host's 4-tuple.
func (p *Process) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("process entry is not a tuple: %w", err)
	}
	if len(tuple) != 4 {
		return fmt.Errorf("process entry has %d fields, want 4", len(tuple))
	}

	var out Process
	if err := json.Unmarshal(tuple[0], &out.PID); err != nil {
		return fmt.Errorf("invalid process pid: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &out.Name); err != nil {
		return fmt.Errorf("invalid process name: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &out.CPU); err != nil {
		return fmt.Errorf("invalid process cpu: %w", err)
	}
	if err := json.Unmarshal(tuple[3], &out.MemoryMB); err != nil {
		return fmt.Errorf("invalid process memory: %w", err)
	}

	*p = out
	return nil
}

// AverageCPU returns the mean utilization across all cores.
func (s *Snapshot) AverageCPU() float64 {
	if len(s.CPUUsage) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.CPUUsage {
		sum += v
	}
	return sum / float64(len(s.CPUUsage))
}

// Float returns a pointer to v, for building DiskRecord fields.
func Float(v float64) *float64 {
	return &v
}

// CPUTimeStats represents CPU time statistics for delta calculations.
type CPUTimeStats struct {
	User      float64
	System    float64
	Idle      float64
	IOWait    float64
	Irq       float64
	SoftIrq   float64
	Steal     float64
	Guest     float64
	GuestNice float64
	Timestamp time.Time
}

// DiskIOStats represents disk I/O byte counters for delta calculations.
type DiskIOStats struct {
	ReadBytes  uint64
	WriteBytes uint64
	Timestamp  time.Time
}

// NetworkIOStats represents network I/O counters for delta calculations.
type NetworkIOStats struct {
	BytesSent uint64
	BytesRecv uint64
	Timestamp time.Time
}
