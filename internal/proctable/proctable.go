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

// Package proctable projects a process list into a sorted, filtered table.
package proctable

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// HistoryPanelSize is the number of leading rows whose histories are displayed.
const HistoryPanelSize = 5

// SortKey is a process table column.
type SortKey string

const (
	SortPID    SortKey = "pid"
	SortName   SortKey = "name"
	SortCPU    SortKey = "cpu"
	SortMemory SortKey = "memory"
)

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var (
	// ErrUnknownSortKey is returned for a column that does not exist.
	ErrUnknownSortKey = errors.New("unknown sort key")
	// ErrUnknownDirection is returned for anything other than asc or desc.
	ErrUnknownDirection = errors.New("unknown sort direction")
)

// SortState is the table's current ordering.
type SortState struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSortState orders by CPU usage, highest first.
func DefaultSortState() SortState {
	return SortState{Key: SortCPU, Direction: Desc}
}

// Select returns the state after the user picks column key.
// Picking the current column flips the direction; a new column starts
// descending, except name which starts ascending.
func (s SortState) Select(key SortKey) SortState {
	if s.Key == key {
		if s.Direction == Asc {
			s.Direction = Desc
		} else {
			s.Direction = Asc
		}
		return s
	}

	s.Key = key
	s.Direction = Desc
	if key == SortName {
		s.Direction = Asc
	}
	return s
}

// ParseSortKey validates a column name.
func ParseSortKey(v string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(v))); k {
	case SortPID, SortName, SortCPU, SortMemory:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, v)
	}
}

// ParseDirection validates a sort direction.
func ParseDirection(v string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(v))); d {
	case Asc, Desc:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, v)
	}
}

// Project returns a sorted and filtered copy of procs. procs is not modified.
// A non-empty filter keeps rows whose lowercased name contains the lowercased
// filter, or whose decimal PID contains the filter.
func Project(procs []metrics.Process, state SortState, filter string) []metrics.Process {
	out := make([]metrics.Process, len(procs))
	copy(out, procs)

	less := lessFunc(state.Key)
	if state.Direction == Asc {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return less(out[j], out[i]) })
	}

	if filter == "" {
		return out
	}

	needle := strings.ToLower(filter)
	kept := out[:0]
	for _, p := range out {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strconv.FormatUint(uint64(p.PID), 10), filter) {
			kept = append(kept, p)
		}
	}
	return kept
}

// Top returns at most n leading rows of a projection.
func Top(projected []metrics.Process, n int) []metrics.Process {
	if n < 0 {
		n = 0
	}
	if len(projected) > n {
		projected = projected[:n]
	}
	out := make([]metrics.Process, len(projected))
	copy(out, projected)
	return out
}

func lessFunc(key SortKey) func(a, b metrics.Process) bool {
	switch key {
	case SortPID:
		return func(a, b metrics.Process) bool { return a.PID < b.PID }
	case SortName:
		c := collate.New(language.Und)
		return func(a, b metrics.Process) bool { return c.CompareString(a.Name, b.Name) < 0 }
	case SortMemory:
		return func(a, b metrics.Process) bool { return a.MemoryMB < b.MemoryMB }
	default:
		return func(a, b metrics.Process) bool { return a.CPU < b.CPU }
	}
}
