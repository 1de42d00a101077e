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

	"github.com/shirou/gopsutil/v3/net"

	"github.com/phuonguno98/unopulse/internal/history"
	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// NetworkCollector collects network throughput metrics.
type NetworkCollector struct {
	prevStats         map[string]metrics.NetworkIOStats
	includeInterfaces []string // Interfaces to monitor (empty = all)
	excludeInterfaces []string // Interfaces to exclude
	rxHistory         *history.Store[string]
	txHistory         *history.Store[string]

	ioCounters func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
}

// NewNetworkCollector creates a new network collector instance.
// includeInterfaces: list of interface names to monitor (empty = all available)
// excludeInterfaces: list of interface names to exclude
func NewNetworkCollector(includeInterfaces, excludeInterfaces []string, historyLength int) *NetworkCollector {
	return &NetworkCollector{
		prevStats:         make(map[string]metrics.NetworkIOStats),
		includeInterfaces: includeInterfaces,
		excludeInterfaces: excludeInterfaces,
		rxHistory:         history.NewStore[string](historyLength),
		txHistory:         history.NewStore[string](historyLength),
		ioCounters:        net.IOCountersWithContext,
	}
}

// Collect gathers current network I/O metrics.
// Returns map of interface names to records; speeds are zero until an
// interface has a baseline.
func (n *NetworkCollector) Collect(ctx context.Context) (map[string]metrics.NetworkRecord, error) {
	ioCounters, err := n.ioCounters(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get network I/O counters: %w", err)
	}

	result := make(map[string]metrics.NetworkRecord)
	now := time.Now()

	for i := range ioCounters {
		counter := &ioCounters[i]
		interfaceName := counter.Name

		// Skip loopback interfaces
		if n.isLoopback(interfaceName) {
			continue
		}

		// Apply filters
		if !n.shouldMonitor(interfaceName) {
			continue
		}

		current := metrics.NetworkIOStats{
			BytesSent: counter.BytesSent,
			BytesRecv: counter.BytesRecv,
			Timestamp: now,
		}

		rec := metrics.NetworkRecord{
			RxBytes: counter.BytesRecv,
			TxBytes: counter.BytesSent,
		}
		if prev, exists := n.prevStats[interfaceName]; exists {
			if rx, tx, ok := metrics.CalculateNetworkRates(prev, current); ok {
				rec.CurrentRxSpeed = rx
				rec.CurrentTxSpeed = tx
			}
		}
		n.prevStats[interfaceName] = current

		n.rxHistory.Append(interfaceName, rec.CurrentRxSpeed, time.Time{})
		n.txHistory.Append(interfaceName, rec.CurrentTxSpeed, time.Time{})
		rec.RxHistory = n.rxHistory.Values(interfaceName)
		rec.TxHistory = n.txHistory.Values(interfaceName)

		result[interfaceName] = rec
	}

	return result, nil
}

// isLoopback checks if an interface is a loopback interface.
func (n *NetworkCollector) isLoopback(interfaceName string) bool {
	// Common loopback interface names
	loopbacks := []string{"lo", "lo0", "Loopback"}
	for _, lo := range loopbacks {
		if interfaceName == lo {
			return true
		}
	}
	return false
}

// shouldMonitor checks if an interface should be monitored based on include/exclude filters.
func (n *NetworkCollector) shouldMonitor(interfaceName string) bool {
	return matchFilters(interfaceName, n.includeInterfaces, n.excludeInterfaces)
}

// Name returns the collector name for logging purposes.
func (n *NetworkCollector) Name() string {
	return "Network"
}
