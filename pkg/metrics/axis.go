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

// Unit selects the domain rules of the range estimator.
type Unit int

const (
	// UnitOther is any non-negative quantity without an upper bound.
	UnitOther Unit = iota
	// UnitPercent is bounded to [0, 100].
	UnitPercent
)

// RangeWindow is the number of most recent samples considered for an axis.
const RangeWindow = 50

const (
	percentMinSpan     = 0.5
	otherMinSpan       = 1.0
	paddingRatio       = 0.1
	percentMinPadding  = 2.0
	percentUpperBound  = 100.0
	domainLowerBound   = 0.0
	minValidForScaling = 2
)

// AxisRange is a chart's vertical span.
type AxisRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (r AxisRange) Span() float64 {
	return r.Max - r.Min
}

func (u Unit) String() string {
	if u == UnitPercent {
		return "%"
	}
	return ""
}

func (u Unit) minSpan() float64 {
	if u == UnitPercent {
		return percentMinSpan
	}
	return otherMinSpan
}

// FiniteSamples returns the finite values of series, in order.
func FiniteSamples(series []float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// EstimateRange computes a stable axis for the last RangeWindow samples of series.
// ok is false when the consumer should auto-scale.
func EstimateRange(series []float64, unit Unit) (r AxisRange, ok bool) {
	return EstimateRangeWindow(series, unit, RangeWindow)
}

// EstimateRangeWindow is EstimateRange with a caller-chosen window.
// A window <= 0 considers the whole series.
func EstimateRangeWindow(series []float64, unit Unit, window int) (r AxisRange, ok bool) {
	if window > 0 && len(series) > window {
		series = series[len(series)-window:]
	}

	valid := FiniteSamples(series)
	if len(valid) < minValidForScaling {
		if unit == UnitPercent {
			return AxisRange{Min: domainLowerBound, Max: percentUpperBound}, true
		}
		return AxisRange{}, false
	}

	dataMin, dataMax := valid[0], valid[0]
	for _, v := range valid[1:] {
		dataMin = math.Min(dataMin, v)
		dataMax = math.Max(dataMax, v)
	}

	minSpan := unit.minSpan()
	span := math.Max(dataMax-dataMin, minSpan)

	padding := span * paddingRatio
	if unit == UnitPercent {
		padding = math.Max(padding, percentMinPadding)
	}

	r.Min = math.Max(domainLowerBound, dataMin-padding)
	r.Max = dataMax + padding
	if unit == UnitPercent {
		r.Max = math.Min(percentUpperBound, r.Max)
	}

	// Samples near the float64 limit overflow the padding.
	if !isFinite(r.Min) || !isFinite(r.Max) {
		return AxisRange{}, false
	}

	if r.Min >= r.Max {
		r.Max = r.Min + minSpan
		if unit == UnitPercent && r.Max > percentUpperBound {
			r.Max = percentUpperBound
			r.Min = percentUpperBound - minSpan
		}
	}

	return r, true
}
