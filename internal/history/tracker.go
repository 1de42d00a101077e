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

import (
	"sort"
	"sync"
	"time"

	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// DefaultProcessStaleAfter is the number of snapshots a process may be absent
// before its series are dropped.
const DefaultProcessStaleAfter = 30

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	Capacity          int
	ProcessStaleAfter int
	Clock             func() time.Time
}

// DiskSeries groups the histories of one disk.
type DiskSeries struct {
	Usage Snapshot `json:"usage"` // Percentage
	Read  Snapshot `json:"read"`  // KB/s
	Write Snapshot `json:"write"` // KB/s
}

// NetworkSeries groups the histories of one interface.
type NetworkSeries struct {
	Rx Snapshot `json:"rx"` // KB/s
	Tx Snapshot `json:"tx"` // KB/s
}

// ProcessSeries groups the histories of one process.
type ProcessSeries struct {
	Key    metrics.ProcessKey `json:"-"`
	CPU    Snapshot           `json:"cpu"`
	Memory Snapshot           `json:"memory"` // MB
}

// IngestReport summarizes what one Ingest changed.
type IngestReport struct {
	Substituted  int
	Unresolved   map[string]error // Disk name to normalization error
	EvictedProcs []metrics.ProcessKey
}

// Tracker maintains every rolling history derived from host snapshots.
// Ingest is expected from a single goroutine; reads may come from any.
type Tracker struct {
	mu    sync.RWMutex
	clock func() time.Time

	cpuCores   *Store[int]
	cpuAverage *Store[struct{}]
	memory     *Store[struct{}]
	diskIO     *Store[string] // Keys: "read", "write"

	diskUsage *Store[string]
	diskRead  *Store[string]
	diskWrite *Store[string]
	netRx     *Store[string]
	netTx     *Store[string]
	gpuUtil   *Store[string]
	procCPU   *Store[metrics.ProcessKey]
	procMem   *Store[metrics.ProcessKey]

	samples int
}

// NewTracker creates an empty tracker.
func NewTracker(opts TrackerOptions) *Tracker {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.ProcessStaleAfter < 0 {
		opts.ProcessStaleAfter = 0
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := opts.Capacity
	stale := WithStaleAfter(opts.ProcessStaleAfter)
	return &Tracker{
		clock:      opts.Clock,
		cpuCores:   NewStore[int](c),
		cpuAverage: NewStore[struct{}](c),
		memory:     NewStore[struct{}](c),
		diskIO:     NewStore[string](c),
		diskUsage:  NewStore[string](c),
		diskRead:   NewStore[string](c),
		diskWrite:  NewStore[string](c),
		netRx:      NewStore[string](c),
		netTx:      NewStore[string](c),
		gpuUtil:    NewStore[string](c),
		procCPU:    NewStore[metrics.ProcessKey](c, stale),
		procMem:    NewStore[metrics.ProcessKey](c, stale),
	}
}

// record seeds key from history on first observation, otherwise appends v.
// Host histories already end with the current value.
func record[K comparable](st *Store[K], key K, v float64, hist []float64, ts time.Time) bool {
	if st.Seed(key, hist) {
		return true
	}
	return st.Append(key, v, ts)
}

// Ingest appends the values of one snapshot to every affected series.
func (t *Tracker) Ingest(snap *metrics.Snapshot) IngestReport {
	report := IngestReport{Unresolved: make(map[string]error)}
	count := func(valid bool) {
		if !valid {
			report.Substituted++
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var none time.Time

	for i, v := range snap.CPUUsage {
		var hist []float64
		if i < len(snap.CPUHistory) {
			hist = snap.CPUHistory[i]
		}
		count(record(t.cpuCores, i, v, hist, none))
	}
	if len(snap.CPUUsage) > 0 {
		count(t.cpuAverage.Append(struct{}{}, snap.AverageCPU(), none))
	}

	if pct, err := metrics.ResolveMemory(snap.MemoryUsed, snap.MemoryTotal); err == nil {
		count(record(t.memory, struct{}{}, pct, snap.MemoryHistory, none))
	} else {
		report.Unresolved["memory"] = err
	}

	count(record(t.diskIO, "read", snap.DiskReadPerSec, snap.DiskReadHistory, none))
	count(record(t.diskIO, "write", snap.DiskWritePerSec, snap.DiskWriteHistory, none))

	for name, rec := range snap.Disks {
		if usage, err := metrics.ResolveRecord(rec); err == nil {
			count(t.diskUsage.Append(name, usage.UsagePercent, none))
		} else {
			report.Unresolved[name] = err
		}
		count(record(t.diskRead, name, rec.ReadBytesPerSec, rec.ReadHistory, none))
		count(record(t.diskWrite, name, rec.WriteBytesPerSec, rec.WriteHistory, none))
	}

	for name, rec := range snap.Networks {
		count(record(t.netRx, name, rec.CurrentRxSpeed, rec.RxHistory, none))
		count(record(t.netTx, name, rec.CurrentTxSpeed, rec.TxHistory, none))
	}

	for _, gpu := range snap.GPUs {
		count(record(t.gpuUtil, gpu.Name, gpu.Utilization, gpu.UtilizationHistory, none))
	}

	for _, p := range snap.Processes {
		key := p.Key()
		count(t.procCPU.Append(key, p.CPU, snap.Timestamp))
		count(t.procMem.Append(key, p.MemoryMB, snap.Timestamp))
	}
	report.EvictedProcs = t.procCPU.Sweep()
	t.procMem.Sweep()

	t.samples++
	return report
}

// Samples returns how many snapshots were ingested.
func (t *Tracker) Samples() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.samples
}

// CPUCores returns the per-core histories, ordered by core index.
func (t *Tracker) CPUCores() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock()
	keys := t.cpuCores.Keys()
	sort.Ints(keys)
	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		s, _ := t.cpuCores.Series(k, now)
		out = append(out, s)
	}
	return out
}

// CPUAverage returns the history of the mean utilization across cores.
func (t *Tracker) CPUAverage() Snapshot {
	return single(t, t.cpuAverage, struct{}{})
}

// Memory returns the memory usage percentage history.
func (t *Tracker) Memory() Snapshot {
	return single(t, t.memory, struct{}{})
}

// SystemDiskIO returns the system-wide read and write rate histories.
func (t *Tracker) SystemDiskIO() (read, write Snapshot) {
	return single(t, t.diskIO, "read"), single(t, t.diskIO, "write")
}

// Disks returns the histories of every disk seen so far.
func (t *Tracker) Disks() map[string]DiskSeries {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock()
	out := make(map[string]DiskSeries)
	for _, name := range t.diskRead.Keys() {
		var ds DiskSeries
		ds.Usage = orEmpty(t.diskUsage.Series(name, now))
		ds.Read = orEmpty(t.diskRead.Series(name, now))
		ds.Write = orEmpty(t.diskWrite.Series(name, now))
		out[name] = ds
	}
	return out
}

// Networks returns the histories of every interface seen so far.
func (t *Tracker) Networks() map[string]NetworkSeries {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock()
	out := make(map[string]NetworkSeries)
	for _, name := range t.netRx.Keys() {
		out[name] = NetworkSeries{
			Rx: orEmpty(t.netRx.Series(name, now)),
			Tx: orEmpty(t.netTx.Series(name, now)),
		}
	}
	return out
}

// GPUs returns the utilization history of every GPU seen so far.
func (t *Tracker) GPUs() map[string]Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock()
	out := make(map[string]Snapshot)
	for _, name := range t.gpuUtil.Keys() {
		out[name] = orEmpty(t.gpuUtil.Series(name, now))
	}
	return out
}

// Process returns the histories of one process.
func (t *Tracker) Process(key metrics.ProcessKey) (ProcessSeries, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock()
	cpu, ok := t.procCPU.Series(key, now)
	if !ok {
		return ProcessSeries{}, false
	}
	return ProcessSeries{
		Key:    key,
		CPU:    cpu,
		Memory: orEmpty(t.procMem.Series(key, now)),
	}, true
}

// ProcessKeys returns the keys of every tracked process.
func (t *Tracker) ProcessKeys() []metrics.ProcessKey {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.procCPU.Keys()
}

func single[K comparable](t *Tracker, st *Store[K], key K) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return orEmpty(st.Series(key, t.clock()))
}

func orEmpty(s Snapshot, ok bool) Snapshot {
	if !ok {
		return Snapshot{Values: []float64{}, Timestamps: []time.Time{}}
	}
	return s
}
