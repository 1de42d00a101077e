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
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/phuonguno98/unopulse/internal/history"
	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// DiskResult is one collection of disk usage and throughput.
type DiskResult struct {
	Disks        map[string]metrics.DiskRecord
	ReadPerSec   float64 // System-wide KB/s
	WritePerSec  float64
	ReadHistory  []float64
	WriteHistory []float64
}

// DiskCollector collects disk capacity and I/O metrics.
type DiskCollector struct {
	prevStats      map[string]metrics.DiskIOStats
	includeDevices []string // Devices to monitor (empty = all)
	excludeDevices []string // Devices to exclude
	readHistory    *history.Store[string]
	writeHistory   *history.Store[string]

	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
	ioCounters func(ctx context.Context, names ...string) (map[string]disk.IOCountersStat, error)
}

// systemKey holds the system-wide series in the history stores.
const systemKey = ""

// normalizeDeviceName strips /dev/ prefix from device names for consistent comparison.
// This allows users to specify devices as shown in list-devices (/dev/sdd)
// while internally matching against disk.IOCounters() format (sdd).
func normalizeDeviceName(name string) string {
	if len(name) >= 5 && name[:5] == "/dev/" {
		return name[5:]
	}
	return name
}

// normalizeDeviceList normalizes all device names in a list.
func normalizeDeviceList(devices []string) []string {
	normalized := make([]string, len(devices))
	for i, device := range devices {
		normalized[i] = normalizeDeviceName(device)
	}
	return normalized
}

// NewDiskCollector creates a new disk collector instance.
// Device names can be specified with or without /dev/ prefix (e.g., "sdd" or "/dev/sdd").
// historyLength bounds the read/write histories delivered with each record.
func NewDiskCollector(includeDevices, excludeDevices []string, historyLength int) *DiskCollector {
	return &DiskCollector{
		prevStats:      make(map[string]metrics.DiskIOStats),
		includeDevices: normalizeDeviceList(includeDevices),
		excludeDevices: normalizeDeviceList(excludeDevices),
		readHistory:    history.NewStore[string](historyLength),
		writeHistory:   history.NewStore[string](historyLength),
		partitions:     disk.PartitionsWithContext,
		usage:          disk.UsageWithContext,
		ioCounters:     disk.IOCountersWithContext,
	}
}

// Collect gathers capacity for every mounted partition and throughput for
// its device. Rates are zero until a device has a baseline.
func (d *DiskCollector) Collect(ctx context.Context) (*DiskResult, error) {
	partitions, err := d.partitions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk partitions: %w", err)
	}

	ioCounters, err := d.ioCounters(ctx)
	if err != nil {
		// Capacity is still useful without throughput.
		ioCounters = nil
	}

	result := &DiskResult{Disks: make(map[string]metrics.DiskRecord)}
	now := time.Now()

	for i := range partitions {
		p := &partitions[i]
		name := normalizeDeviceName(p.Device)

		// Apply filters
		if !d.shouldMonitor(name) {
			continue
		}
		// Same device mounted twice
		if _, seen := result.Disks[name]; seen {
			continue
		}

		rec := metrics.DiskRecord{
			Name:       name,
			MountPoint: p.Mountpoint,
			DiskType:   p.Fstype,
		}

		if u, err := d.usage(ctx, p.Mountpoint); err == nil {
			rec.TotalSpace = metrics.Float(metrics.BytesToGB(u.Total))
			rec.UsedSpace = metrics.Float(metrics.BytesToGB(u.Used))
			rec.AvailableSpace = metrics.Float(metrics.BytesToGB(u.Free))
		}

		if counter, ok := ioCounters[name]; ok {
			current := metrics.DiskIOStats{
				ReadBytes:  counter.ReadBytes,
				WriteBytes: counter.WriteBytes,
				Timestamp:  now,
			}
			if prev, exists := d.prevStats[name]; exists {
				if read, write, ok := metrics.CalculateDiskRates(prev, current); ok {
					rec.ReadBytesPerSec = read
					rec.WriteBytesPerSec = write
				}
			}
			d.prevStats[name] = current
		}

		d.readHistory.Append(name, rec.ReadBytesPerSec, time.Time{})
		d.writeHistory.Append(name, rec.WriteBytesPerSec, time.Time{})
		rec.ReadHistory = d.readHistory.Values(name)
		rec.WriteHistory = d.writeHistory.Values(name)

		result.ReadPerSec += rec.ReadBytesPerSec
		result.WritePerSec += rec.WriteBytesPerSec
		result.Disks[name] = rec
	}

	d.readHistory.Append(systemKey, result.ReadPerSec, time.Time{})
	d.writeHistory.Append(systemKey, result.WritePerSec, time.Time{})
	result.ReadHistory = d.readHistory.Values(systemKey)
	result.WriteHistory = d.writeHistory.Values(systemKey)

	return result, nil
}

// shouldMonitor checks if a device should be monitored based on include/exclude filters.
func (d *DiskCollector) shouldMonitor(deviceName string) bool {
	return matchFilters(deviceName, d.includeDevices, d.excludeDevices)
}

// Name returns the collector name for logging purposes.
func (d *DiskCollector) Name() string {
	return "Disk"
}

// matchFilters reports whether name passes the include and exclude lists.
// Exclusion wins; an empty include list admits everything.
func matchFilters(name string, include, exclude []string) bool {
	for _, excluded := range exclude {
		if excluded == name {
			return false
		}
	}

	if len(include) == 0 {
		return true
	}

	for _, included := range include {
		if included == name {
			return true
		}
	}

	return false
}
