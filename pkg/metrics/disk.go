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
	"fmt"
	"math"
)

var (
	// ErrUnresolvable is wrapped by every normalization failure.
	ErrUnresolvable = errors.New("metric unresolvable")
	// ErrCapacityIndeterminate means the total capacity is missing or invalid.
	ErrCapacityIndeterminate = fmt.Errorf("%w: capacity indeterminate", ErrUnresolvable)
	// ErrUsageIndeterminate means no usage field was usable.
	ErrUsageIndeterminate = fmt.Errorf("%w: usage indeterminate", ErrUnresolvable)
)

// DiskUsage is the canonical, complete form of a disk's usage.
type DiskUsage struct {
	Total        float64 `json:"total"`
	Used         float64 `json:"used"`
	Available    float64 `json:"available"`
	UsagePercent float64 `json:"usage_percent"`
}

// UsageShape is one of the mutually exclusive ways a host reports disk usage.
type UsageShape interface {
	// Resolve derives used and available space against total.
	Resolve(total float64) (used, available float64)
	String() string
}

// PercentShape carries only used_percentage.
type PercentShape struct{ Percent float64 }

// UsedAvailableShape carries both used_space and available_space.
type UsedAvailableShape struct{ Used, Available float64 }

// UsedOnlyShape carries only used_space.
type UsedOnlyShape struct{ Used float64 }

// AvailableOnlyShape carries only available_space.
type AvailableOnlyShape struct{ Available float64 }

// Resolve derives used space from the percentage of total.
func (s PercentShape) Resolve(total float64) (used, available float64) {
	used = total * s.Percent / 100
	return used, total - used
}

// Resolve returns both amounts as delivered. total is not consulted.
func (s UsedAvailableShape) Resolve(float64) (used, available float64) {
	return s.Used, s.Available
}

// Resolve derives available space as total minus used.
func (s UsedOnlyShape) Resolve(total float64) (used, available float64) {
	return s.Used, total - s.Used
}

// Resolve derives used space as total minus available.
func (s AvailableOnlyShape) Resolve(total float64) (used, available float64) {
	return total - s.Available, s.Available
}

// String names the wire field the shape is built from.
func (PercentShape) String() string { return "used_percentage" }

// String names the wire fields the shape is built from.
func (UsedAvailableShape) String() string { return "used_space+available_space" }

// String names the wire field the shape is built from.
func (UsedOnlyShape) String() string { return "used_space" }

// String names the wire field the shape is built from.
func (AvailableOnlyShape) String() string { return "available_space" }

// IsValidAmount reports whether v is present, finite and non-negative.
func IsValidAmount(v *float64) bool {
	return v != nil && isFinite(*v) && *v >= 0
}

// ClassifyUsage picks the usage shape of rec.
// Percentage wins over absolute values because it is the host's own figure.
func ClassifyUsage(rec DiskRecord) (UsageShape, bool) {
	hasUsed := IsValidAmount(rec.UsedSpace)
	hasAvailable := IsValidAmount(rec.AvailableSpace)

	switch {
	case IsValidAmount(rec.UsedPercentage):
		return PercentShape{Percent: *rec.UsedPercentage}, true
	case hasUsed && hasAvailable:
		return UsedAvailableShape{Used: *rec.UsedSpace, Available: *rec.AvailableSpace}, true
	case hasUsed:
		return UsedOnlyShape{Used: *rec.UsedSpace}, true
	case hasAvailable:
		return AvailableOnlyShape{Available: *rec.AvailableSpace}, true
	default:
		return nil, false
	}
}

// ResolveDisk derives a complete usage record for rec against total.
// The returned percentage is always within [0, 100].
func ResolveDisk(rec DiskRecord, total *float64) (DiskUsage, error) {
	if !IsValidAmount(total) {
		return DiskUsage{}, ErrCapacityIndeterminate
	}

	shape, ok := ClassifyUsage(rec)
	if !ok {
		return DiskUsage{}, ErrUsageIndeterminate
	}

	used, available := shape.Resolve(*total)

	var percent float64
	if p, isPercent := shape.(PercentShape); isPercent {
		percent = p.Percent
	} else {
		percent = percentOf(used, *total)
	}

	return DiskUsage{
		Total:        *total,
		Used:         used,
		Available:    available,
		UsagePercent: ClampPercent(percent),
	}, nil
}

// ResolveRecord resolves rec against its own TotalSpace.
func ResolveRecord(rec DiskRecord) (DiskUsage, error) {
	return ResolveDisk(rec, rec.TotalSpace)
}

// ClampPercent limits v to [0, 100]. NaN becomes 0.
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func percentOf(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
