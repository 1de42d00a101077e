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

// Package history keeps bounded rolling histories of metric samples.
package history

import (
	"math"
	"time"
)

// DefaultCapacity is the number of samples a series retains unless configured otherwise.
const DefaultCapacity = 100

// SampleInterval is the spacing used when timestamps are synthesized.
const SampleInterval = time.Second

// Snapshot is a copy of a series' contents, oldest sample first.
type Snapshot struct {
	Values     []float64   `json:"values"`
	Timestamps []time.Time `json:"timestamps"`
}

// Series is a fixed-capacity FIFO of samples.
// The zero value is not usable; create one with NewSeries.
type Series struct {
	values      []float64
	times       []time.Time
	head        int // index of the oldest sample
	size        int
	substituted int
}

// NewSeries returns an empty series holding at most capacity samples.
// A non-positive capacity falls back to DefaultCapacity.
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{
		values: make([]float64, capacity),
		times:  make([]time.Time, capacity),
	}
}

// Append adds one sample, evicting the oldest when full.
// Non-finite values are stored as 0; Append then returns false.
// A zero ts marks the sample as carrying no host timestamp.
func (s *Series) Append(v float64, ts time.Time) bool {
	valid := !math.IsNaN(v) && !math.IsInf(v, 0)
	if !valid {
		v = 0
		s.substituted++
	}

	idx := (s.head + s.size) % len(s.values)
	if s.size == len(s.values) {
		idx = s.head
		s.head = (s.head + 1) % len(s.values)
	} else {
		s.size++
	}

	s.values[idx] = v
	s.times[idx] = ts
	return valid
}

// Len returns the number of retained samples.
func (s *Series) Len() int { return s.size }

// Cap returns the maximum number of retained samples.
func (s *Series) Cap() int { return len(s.values) }

// Substituted returns how many non-finite samples were replaced by 0.
func (s *Series) Substituted() int { return s.substituted }

// Last returns the newest sample.
func (s *Series) Last() (float64, bool) {
	if s.size == 0 {
		return 0, false
	}
	return s.values[(s.head+s.size-1)%len(s.values)], true
}

// Values returns a copy of the samples, oldest first.
func (s *Series) Values() []float64 {
	out := make([]float64, s.size)
	for i := range out {
		out[i] = s.values[(s.head+i)%len(s.values)]
	}
	return out
}

// Timestamps returns one timestamp per sample, oldest first.
// Host timestamps are used only when every retained sample has one;
// otherwise the whole series is synthesized back from now.
func (s *Series) Timestamps(now time.Time) []time.Time {
	out := make([]time.Time, s.size)
	for i := range out {
		ts := s.times[(s.head+i)%len(s.values)]
		if ts.IsZero() {
			return SynthesizeTimestamps(now, s.size)
		}
		out[i] = ts
	}
	return out
}

// Snapshot copies the series' values and timestamps.
func (s *Series) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Values:     s.Values(),
		Timestamps: s.Timestamps(now),
	}
}

// SynthesizeTimestamps returns n timestamps one SampleInterval apart,
// the newest at now truncated to the second.
func SynthesizeTimestamps(now time.Time, n int) []time.Time {
	if n <= 0 {
		return []time.Time{}
	}
	end := now.Truncate(time.Second)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = end.Add(-time.Duration(n-1-i) * SampleInterval)
	}
	return out
}
