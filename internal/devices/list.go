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

// Package devices lists the disks and network interfaces the collector can monitor.
package devices

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// Dependency injection points for testing
var (
	diskPartitions = disk.Partitions
	diskUsage      = disk.Usage
	netInterfaces  = net.Interfaces
)

// DiskInfo represents disk device information.
type DiskInfo struct {
	Name       string
	Mountpoint string
	Filesystem string
	Record     metrics.DiskRecord // Capacity in GB, as the collector reports it
}

// Usage resolves the disk's usage. It fails when the capacity could not be read.
func (d DiskInfo) Usage() (metrics.DiskUsage, error) {
	return metrics.ResolveRecord(d.Record)
}

// NetworkInfo represents network interface information.
type NetworkInfo struct {
	Name       string
	MacAddress string
	Addresses  []string
	Loopback   bool // Loopback interfaces are never monitored
}

// ListDisks returns a list of available disk devices.
func ListDisks() ([]DiskInfo, error) {
	partitions, err := diskPartitions(false)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk partitions: %w", err)
	}

	disks := make([]DiskInfo, 0)
	seen := make(map[string]bool)

	for _, partition := range partitions {
		// Skip duplicate devices
		if seen[partition.Device] {
			continue
		}
		seen[partition.Device] = true

		rec := metrics.DiskRecord{
			Name:       partition.Device,
			MountPoint: partition.Mountpoint,
			DiskType:   partition.Fstype,
		}
		if usage, err := diskUsage(partition.Mountpoint); err == nil {
			rec.TotalSpace = metrics.Float(metrics.BytesToGB(usage.Total))
			rec.UsedSpace = metrics.Float(metrics.BytesToGB(usage.Used))
			rec.AvailableSpace = metrics.Float(metrics.BytesToGB(usage.Free))
		}

		disks = append(disks, DiskInfo{
			Name:       partition.Device,
			Mountpoint: partition.Mountpoint,
			Filesystem: partition.Fstype,
			Record:     rec,
		})
	}

	// Sort by device name
	sort.Slice(disks, func(i, j int) bool {
		return disks[i].Name < disks[j].Name
	})

	return disks, nil
}

// ListNetworkInterfaces returns a list of available network interfaces.
func ListNetworkInterfaces() ([]NetworkInfo, error) {
	interfaces, err := netInterfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	networks := make([]NetworkInfo, 0)

	for _, iface := range interfaces {
		// Skip interfaces without addresses
		if len(iface.Addrs) == 0 {
			continue
		}

		addresses := make([]string, 0, len(iface.Addrs))
		for _, addr := range iface.Addrs {
			addresses = append(addresses, addr.Addr)
		}

		networks = append(networks, NetworkInfo{
			Name:       iface.Name,
			MacAddress: iface.HardwareAddr,
			Addresses:  addresses,
			Loopback:   isLoopback(iface.Flags),
		})
	}

	// Sort by interface name
	sort.Slice(networks, func(i, j int) bool {
		return networks[i].Name < networks[j].Name
	})

	return networks, nil
}

func isLoopback(flags []string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, "loopback") {
			return true
		}
	}
	return false
}

// FormatDisksTable formats disk information as a table.
func FormatDisksTable(disks []DiskInfo) string {
	var sb strings.Builder

	sb.WriteString("\nAvailable Disk Devices:\n")
	sb.WriteString(strings.Repeat("=", 90))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-30s %-20s %-12s %-12s %s\n", "DEVICE", "MOUNTPOINT", "FILESYSTEM", "SIZE", "USED"))
	sb.WriteString(strings.Repeat("-", 90))
	sb.WriteString("\n")

	for _, d := range disks {
		size, used := metrics.NotAvailable, metrics.NotAvailable
		if u, err := d.Usage(); err == nil {
			size = metrics.FormatBytes(u.Total*metrics.BytesPerGB, 1)
			used = fmt.Sprintf("%s (%s)", metrics.FormatPercent(u.UsagePercent, 1), metrics.UsageLevel(u.UsagePercent, metrics.KindCapacity))
		}
		sb.WriteString(fmt.Sprintf("%-30s %-20s %-12s %-12s %s\n",
			d.Name,
			truncate(d.Mountpoint, 20),
			d.Filesystem,
			size,
			used,
		))
	}

	sb.WriteString(strings.Repeat("=", 90))
	sb.WriteString("\n")

	return sb.String()
}

// FormatNetworksTable formats network interface information as a table.
func FormatNetworksTable(networks []NetworkInfo) string {
	var sb strings.Builder

	sb.WriteString("\nAvailable Network Interfaces:\n")
	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-40s %-17s %s\n", "INTERFACE", "MAC ADDRESS", "IP ADDRESSES"))
	sb.WriteString(strings.Repeat("-", 80))
	sb.WriteString("\n")

	for _, n := range networks {
		mac := n.MacAddress
		if mac == "" {
			mac = metrics.NotAvailable
		}

		name := n.Name
		if n.Loopback {
			name += " (not monitored)"
		}

		// Show first IP address on same line
		firstIP := metrics.NotAvailable
		if len(n.Addresses) > 0 {
			firstIP = n.Addresses[0]
		}

		sb.WriteString(fmt.Sprintf("%-40s %-17s %s\n",
			name,
			mac,
			firstIP,
		))

		// Show additional IPs on separate lines
		for i := 1; i < len(n.Addresses); i++ {
			sb.WriteString(fmt.Sprintf("%-40s %-17s %s\n", "", "", n.Addresses[i]))
		}
	}

	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n")

	return sb.String()
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
