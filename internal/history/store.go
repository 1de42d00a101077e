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

package history

import "time"

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	staleAfter int
}

// WithStaleAfter drops a key after n consecutive sweeps without an append.
// n = 0 keeps every key for the lifetime of the store.
func WithStaleAfter(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.staleAfter = n
		}
	}
}

type entry struct {
	series  *Series
	touched bool
	missed  int
}

// Store holds one Series per entity key. It is not safe for concurrent use.
type Store[K comparable] struct {
	capacity   int
	staleAfter int
	entries    map[K]*entry
	order      []K
}

// NewStore creates a store whose series retain capacity samples.
func NewStore[K comparable](capacity int, opts ...Option) *Store[K] {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store[K]{
		capacity:   capacity,
		staleAfter: o.staleAfter,
		entries:    make(map[K]*entry),
	}
}

func (st *Store[K]) get(key K) *entry {
	e, ok := st.entries[key]
	if !ok {
		e = &entry{series: NewSeries(st.capacity)}
		st.entries[key] = e
		st.order = append(st.order, key)
	}
	return e
}

// Append adds one sample to key's series, creating it on first use.
func (st *Store[K]) Append(key K, v float64, ts time.Time) bool {
	e := st.get(key)
	e.touched = true
	return e.series.Append(v, ts)
}

// Seed fills a new key's series from a host-delivered history.
// It returns false and changes nothing when key already exists or values is empty.
func (st *Store[K]) Seed(key K, values []float64) bool {
	if _, ok := st.entries[key]; ok || len(values) == 0 {
		return false
	}
	if len(values) > st.capacity {
		values = values[len(values)-st.capacity:]
	}
	e := st.get(key)
	e.touched = true
	for _, v := range values {
		e.series.Append(v, time.Time{})
	}
	return true
}

// Has reports whether key has a series.
func (st *Store[K]) Has(key K) bool {
	_, ok := st.entries[key]
	return ok
}

// Series returns a copy of key's series.
func (st *Store[K]) Series(key K, now time.Time) (Snapshot, bool) {
	e, ok := st.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return e.series.Snapshot(now), true
}

// Values returns a copy of key's samples, or nil.
func (st *Store[K]) Values(key K) []float64 {
	if e, ok := st.entries[key]; ok {
		return e.series.Values()
	}
	return nil
}

// Keys returns the keys in first-observation order.
func (st *Store[K]) Keys() []K {
	out := make([]K, len(st.order))
	copy(out, st.order)
	return out
}

// Len returns the number of keys.
func (st *Store[K]) Len() int { return len(st.entries) }

// Sweep closes one observation round. Keys not appended to since the previous
// sweep accumulate a miss; keys reaching the stale limit are removed and returned.
func (st *Store[K]) Sweep() []K {
	var evicted []K
	for key, e := range st.entries {
		if e.touched {
			e.touched = false
			e.missed = 0
			continue
		}
		e.missed++
		if st.staleAfter > 0 && e.missed >= st.staleAfter {
			delete(st.entries, key)
			evicted = append(evicted, key)
		}
	}

	if len(evicted) > 0 {
		kept := st.order[:0]
		for _, key := range st.order {
			if _, ok := st.entries[key]; ok {
				kept = append(kept, key)
			}
		}
		st.order = kept
	}
	return evicted
}
