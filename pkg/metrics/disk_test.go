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
	"errors"
	"math"
	"testing"
)

func TestResolveDisk(t *testing.T) {
	tests := []struct {
		name      string
		rec       DiskRecord
		total     *float64
		used      float64
		available float64
		percent   float64
	}{
		{
			name:      "Percentage only",
			rec:       DiskRecord{UsedPercentage: Float(40)},
			total:     Float(100),
			used:      40,
			available: 60,
			percent:   40,
		},
		{
			name:      "Used and available",
			rec:       DiskRecord{UsedSpace: Float(30), AvailableSpace: Float(70)},
			total:     Float(100),
			used:      30,
			available: 70,
			percent:   30,
		},
		{
			name:      "Used only",
			rec:       DiskRecord{UsedSpace: Float(25)},
			total:     Float(200),
			used:      25,
			available: 175,
			percent:   12.5,
		},
		{
			name:      "Available only",
			rec:       DiskRecord{AvailableSpace: Float(150)},
			total:     Float(200),
			used:      50,
			available: 150,
			percent:   25,
		},
		{
			name:      "Percentage wins over absolute values",
			rec:       DiskRecord{UsedPercentage: Float(10), UsedSpace: Float(90), AvailableSpace: Float(10)},
			total:     Float(100),
			used:      10,
			available: 90,
			percent:   10,
		},
		{
			name:      "Used over capacity is clamped",
			rec:       DiskRecord{UsedSpace: Float(130)},
			total:     Float(100),
			used:      130,
			available: -30,
			percent:   100,
		},
		{
			name:      "Zero capacity",
			rec:       DiskRecord{UsedSpace: Float(5)},
			total:     Float(0),
			used:      5,
			available: -5,
			percent:   0,
		},
		{
			name:      "Negative percentage treated as absent",
			rec:       DiskRecord{UsedPercentage: Float(-1), UsedSpace: Float(20)},
			total:     Float(100),
			used:      20,
			available: 80,
			percent:   20,
		},
		{
			name:      "NaN used falls through to available",
			rec:       DiskRecord{UsedSpace: Float(math.NaN()), AvailableSpace: Float(60)},
			total:     Float(100),
			used:      40,
			available: 60,
			percent:   40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDisk(tt.rec, tt.total)
			if err != nil {
				t.Fatalf("ResolveDisk() error = %v", err)
			}
			if math.Abs(got.Used-tt.used) > 0.00001 {
				t.Errorf("Used = %v, want %v", got.Used, tt.used)
			}
			if math.Abs(got.Available-tt.available) > 0.00001 {
				t.Errorf("Available = %v, want %v", got.Available, tt.available)
			}
			if math.Abs(got.UsagePercent-tt.percent) > 0.00001 {
				t.Errorf("UsagePercent = %v, want %v", got.UsagePercent, tt.percent)
			}
			if got.UsagePercent < 0 || got.UsagePercent > 100 {
				t.Errorf("UsagePercent = %v, outside [0, 100]", got.UsagePercent)
			}
		})
	}
}

func TestResolveDiskErrors(t *testing.T) {
	tests := []struct {
		name  string
		rec   DiskRecord
		total *float64
		want  error
	}{
		{name: "Missing total", rec: DiskRecord{UsedPercentage: Float(10)}, total: nil, want: ErrCapacityIndeterminate},
		{name: "Negative total", rec: DiskRecord{UsedPercentage: Float(10)}, total: Float(-1), want: ErrCapacityIndeterminate},
		{name: "Infinite total", rec: DiskRecord{UsedPercentage: Float(10)}, total: Float(math.Inf(1)), want: ErrCapacityIndeterminate},
		{name: "No usage fields", rec: DiskRecord{}, total: Float(100), want: ErrUsageIndeterminate},
		{name: "All usage fields invalid", rec: DiskRecord{UsedSpace: Float(-3), AvailableSpace: Float(math.NaN())}, total: Float(100), want: ErrUsageIndeterminate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveDisk(tt.rec, tt.total)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ResolveDisk() error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrUnresolvable) {
				t.Errorf("error %v does not wrap ErrUnresolvable", err)
			}
		})
	}
}

func TestClassifyUsage(t *testing.T) {
	tests := []struct {
		name string
		rec  DiskRecord
		want string
	}{
		{name: "Percent", rec: DiskRecord{UsedPercentage: Float(0)}, want: "used_percentage"},
		{name: "Both", rec: DiskRecord{UsedSpace: Float(1), AvailableSpace: Float(2)}, want: "used_space+available_space"},
		{name: "Used", rec: DiskRecord{UsedSpace: Float(1)}, want: "used_space"},
		{name: "Available", rec: DiskRecord{AvailableSpace: Float(2)}, want: "available_space"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, ok := ClassifyUsage(tt.rec)
			if !ok {
				t.Fatal("ClassifyUsage() ok = false")
			}
			if shape.String() != tt.want {
				t.Errorf("ClassifyUsage() = %s, want %s", shape, tt.want)
			}
		})
	}

	if _, ok := ClassifyUsage(DiskRecord{}); ok {
		t.Error("ClassifyUsage(empty) ok = true, want false")
	}
}

func TestResolveRecord(t *testing.T) {
	rec := DiskRecord{Name: "sda1", TotalSpace: Float(500), UsedSpace: Float(125)}
	got, err := ResolveRecord(rec)
	if err != nil {
		t.Fatalf("ResolveRecord() error = %v", err)
	}
	if got.Total != 500 || math.Abs(got.UsagePercent-25) > 0.00001 {
		t.Errorf("ResolveRecord() = %+v", got)
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0}, {0, 0}, {55.5, 55.5}, {100, 100}, {250, 100}, {math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampPercent(tt.in); got != tt.want {
			t.Errorf("ClampPercent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
