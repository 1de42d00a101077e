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

package exporter

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phuonguno98/unopulse/internal/config"
	"github.com/phuonguno98/unopulse/internal/dashboard"
	"github.com/phuonguno98/unopulse/pkg/metrics"
)

func newTestExporter(t *testing.T, outputPath string) (*CSVExporter, chan dashboard.Event) {
	t.Helper()

	events := make(chan dashboard.Event, 10)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		OutputPath:       outputPath,
		Timezone:         "UTC",
		FlushInterval:    100 * time.Millisecond,
		BufferSize:       10,
		SamplingInterval: 1 * time.Second,
	}

	exporter, err := NewCSVExporter(cfg, events, logger)
	if err != nil {
		t.Fatalf("NewCSVExporter() error = %v", err)
	}
	return exporter, events
}

// runExporter feeds events to the exporter, then stops and closes it.
func runExporter(t *testing.T, exporter *CSVExporter, events chan dashboard.Event, feed ...dashboard.Event) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- exporter.Start(ctx)
	}()

	for _, ev := range feed {
		events <- ev
	}

	// Give it a moment to process
	time.Sleep(200 * time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Exporter finished with error: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Errorf("Failed to close exporter: %v", err)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open output file: %v", err)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	return records
}

func TestCSVExporter_Export(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "export_test.csv")
	exporter, events := newTestExporter(t, outputPath)

	now := time.Date(2023, 10, 26, 12, 0, 0, 0, time.UTC)
	snapshot := &metrics.Snapshot{
		Timestamp:   now,
		CPUUsage:    []float64{40, 51},
		MemoryUsed:  6,
		MemoryTotal: 8,
		Disks: map[string]metrics.DiskRecord{
			"sda": {
				Name:             "sda",
				TotalSpace:       metrics.Float(200),
				UsedSpace:        metrics.Float(50),
				ReadBytesPerSec:  12.5,
				WriteBytesPerSec: 3,
			},
		},
		Networks: map[string]metrics.NetworkRecord{
			"eth0": {CurrentRxSpeed: 100, CurrentTxSpeed: 20.25},
		},
	}

	runExporter(t, exporter, events, dashboard.Event{Snapshot: snapshot})

	records := readCSV(t, outputPath)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records (Header + 1 Row), got %d", len(records))
	}

	expectedHeader := []string{
		"Timestamp",
		"CPU Utilization (%)",
		"Memory Utilization (%)",
		"Disk [sda] Usage (%)",
		"Disk [sda] Read (KB/s)",
		"Disk [sda] Write (KB/s)",
		"Network [eth0] RX (KB/s)",
		"Network [eth0] TX (KB/s)",
	}

	header := records[0]
	if len(header) != len(expectedHeader) {
		t.Fatalf("Header length mismatch. Got %d, want %d", len(header), len(expectedHeader))
	}
	for i, h := range header {
		if h != expectedHeader[i] {
			t.Errorf("Header[%d] = %q, want %q", i, h, expectedHeader[i])
		}
	}

	expectedRow := []string{
		"2023-10-26 12:00:00",
		"45.50",
		"75.00",
		"25.00",
		"12.50",
		"3.00",
		"100.00",
		"20.25",
	}

	row := records[1]
	for i, v := range row {
		if v != expectedRow[i] {
			t.Errorf("Row[%d] = %q, want %q", i, v, expectedRow[i])
		}
	}
}

func TestCSVExporter_NA_Handling(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "export_na.csv")
	exporter, events := newTestExporter(t, outputPath)

	runExporter(t, exporter, events,
		// Defines structure (sda, eth0)
		dashboard.Event{Snapshot: &metrics.Snapshot{
			Timestamp:   time.Now(),
			CPUUsage:    []float64{10},
			MemoryUsed:  1,
			MemoryTotal: 4,
			Disks:       map[string]metrics.DiskRecord{"sda": {Name: "sda"}},
			Networks:    map[string]metrics.NetworkRecord{"eth0": {}},
		}},
		// Failed collection: no row
		dashboard.Event{Err: errors.New("host unreachable")},
		// Missing sda and eth0, memory total unknown
		dashboard.Event{Snapshot: &metrics.Snapshot{
			Timestamp: time.Now(),
			CPUUsage:  []float64{10},
			Disks:     map[string]metrics.DiskRecord{},
			Networks:  map[string]metrics.NetworkRecord{},
		}},
	)

	records := readCSV(t, outputPath)
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	// sda has no total: usage is N/A, rates are still written
	row1 := records[1]
	if row1[3] != naString {
		t.Errorf("Expected unresolvable disk usage to be N/A, got %q", row1[3])
	}
	if row1[4] != "0.00" {
		t.Errorf("Expected disk read rate 0.00, got %q", row1[4])
	}

	// Header: Time, CPU, Mem, DiskUsage, DiskRead, DiskWrite, Rx, Tx
	row2 := records[2]
	if len(row2) != 8 {
		t.Fatalf("Row 2 has %d columns, want 8", len(row2))
	}
	if row2[2] != naString {
		t.Errorf("Expected memory to be N/A, got %q", row2[2])
	}
	for i := 3; i < 8; i++ {
		if row2[i] != naString {
			t.Errorf("Row2[%d] = %q, want N/A", i, row2[i])
		}
	}
	if exporter.failures != 1 {
		t.Errorf("failures = %d, want 1", exporter.failures)
	}
}

func TestCSVExporter_ChannelClosed(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "closed.csv")
	exporter, events := newTestExporter(t, outputPath)

	events <- dashboard.Event{Snapshot: &metrics.Snapshot{Timestamp: time.Now()}}
	close(events)

	if err := exporter.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if records := readCSV(t, outputPath); len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
}

func TestCSVExporter_FileRotation(t *testing.T) {
	tempDir := t.TempDir()
	outputPath := filepath.Join(tempDir, "rotation_test.csv")
	exporter, events := newTestExporter(t, outputPath)

	// Manually set size to trigger rotation
	exporter.currentSize = config.DefaultMaxOutputFileSize + 1

	runExporter(t, exporter, events, dashboard.Event{Snapshot: &metrics.Snapshot{
		Timestamp: time.Now(),
		CPUUsage:  []float64{50},
		Disks:     map[string]metrics.DiskRecord{"sda": {Name: "sda"}},
		Networks:  map[string]metrics.NetworkRecord{"eth0": {CurrentRxSpeed: 1}},
	}})

	rotatedPath := filepath.Join(tempDir, "rotation_test_1.csv")
	if _, err := os.Stat(rotatedPath); os.IsNotExist(err) {
		t.Fatalf("Rotated file does not exist: %s", rotatedPath)
	}

	records := readCSV(t, rotatedPath)
	if len(records) != 2 {
		t.Fatalf("Rotated file should have header and row, got %d records", len(records))
	}
	if records[0][0] != "Timestamp" {
		t.Errorf("Rotated file header starts with %q", records[0][0])
	}
}

func TestCSVExporter_FileRotation_NoOverwrite(t *testing.T) {
	tempDir := t.TempDir()
	outputPath := filepath.Join(tempDir, "overwrite_test.csv")

	// Create pre-existing rotated file
	existingFile1 := filepath.Join(tempDir, "overwrite_test_1.csv")
	if err := os.WriteFile(existingFile1, []byte("existing data 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	exporter, events := newTestExporter(t, outputPath)
	exporter.currentSize = config.DefaultMaxOutputFileSize + 1

	runExporter(t, exporter, events, dashboard.Event{Snapshot: &metrics.Snapshot{
		Timestamp: time.Now(),
		CPUUsage:  []float64{50},
	}})

	oldContent, err := os.ReadFile(existingFile1)
	if err != nil {
		t.Fatal(err)
	}
	if string(oldContent) != "existing data 1" {
		t.Error("Original file was overwritten")
	}

	newFile := filepath.Join(tempDir, "overwrite_test_2.csv")
	if _, err := os.Stat(newFile); os.IsNotExist(err) {
		t.Errorf("New rotated file with index 2 should exist: %s", newFile)
	}
}

func TestCSVExporter_InvalidTimezone(t *testing.T) {
	cfg := &config.Config{
		OutputPath:    filepath.Join(t.TempDir(), "test.csv"),
		Timezone:      "Invalid/Timezone",
		FlushInterval: 100 * time.Millisecond,
		BufferSize:    10,
	}

	_, err := NewCSVExporter(cfg, make(chan dashboard.Event), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Error("Expected error for invalid timezone, got nil")
	}
}
