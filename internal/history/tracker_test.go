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
	"errors"
	"math"
	"testing"
	"time"

	"github.com/phuonguno98/unopulse/pkg/metrics"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTracker(capacity, staleAfter int) *Tracker {
	return NewTracker(TrackerOptions{
		Capacity:          capacity,
		ProcessStaleAfter: staleAfter,
		Clock:             func() time.Time { return fixedNow },
	})
}

func sampleSnapshot(ts time.Time) *metrics.Snapshot {
	return &metrics.Snapshot{
		CPUUsage:    []float64{20, 40},
		MemoryUsed:  4,
		MemoryTotal: 16,
		Disks: map[string]metrics.DiskRecord{
			"sda1": {Name: "sda1", TotalSpace: metrics.Float(100), UsedPercentage: metrics.Float(40), ReadBytesPerSec: 5},
			"bad":  {Name: "bad"},
		},
		Networks: map[string]metrics.NetworkRecord{
			"eth0": {CurrentRxSpeed: 10, CurrentTxSpeed: 2},
		},
		GPUs: []metrics.GPURecord{{Name: "gpu0", Utilization: 33}},
		Processes: []metrics.Process{
			{PID: 1, Name: "init", CPU: 0.5, MemoryMB: 12},
			{PID: 42, Name: "beam", CPU: 12, MemoryMB: 300},
		},
		Timestamp: ts,
	}
}

func TestTrackerIngest(t *testing.T) {
	tr := newTestTracker(100, 30)
	report := tr.Ingest(sampleSnapshot(fixedNow))

	if !errors.Is(report.Unresolved["bad"], metrics.ErrUsageIndeterminate) {
		t.Errorf("Unresolved[bad] = %v, want ErrUsageIndeterminate", report.Unresolved["bad"])
	}

	cores := tr.CPUCores()
	if len(cores) != 2 || cores[1].Values[0] != 40 {
		t.Errorf("CPUCores() = %+v", cores)
	}
	if avg := tr.CPUAverage().Values; len(avg) != 1 || avg[0] != 30 {
		t.Errorf("CPUAverage() = %v, want [30]", avg)
	}
	if mem := tr.Memory().Values; len(mem) != 1 || math.Abs(mem[0]-25) > 0.00001 {
		t.Errorf("Memory() = %v, want [25]", mem)
	}

	disks := tr.Disks()
	if got := disks["sda1"].Usage.Values; len(got) != 1 || got[0] != 40 {
		t.Errorf("Disks()[sda1].Usage = %v, want [40]", got)
	}
	if got := disks["bad"].Usage.Values; len(got) != 0 {
		t.Errorf("Disks()[bad].Usage = %v, want empty", got)
	}
	if got := tr.Networks()["eth0"].Rx.Values; len(got) != 1 || got[0] != 10 {
		t.Errorf("Networks()[eth0].Rx = %v", got)
	}
	if got := tr.GPUs()["gpu0"].Values; len(got) != 1 || got[0] != 33 {
		t.Errorf("GPUs()[gpu0] = %v", got)
	}

	ps, ok := tr.Process(metrics.ProcessKey{PID: 42, Name: "beam"})
	if !ok {
		t.Fatal("Process(42-beam) not tracked")
	}
	if ps.CPU.Values[0] != 12 || ps.Memory.Values[0] != 300 {
		t.Errorf("Process() = %+v", ps)
	}
	if !ps.CPU.Timestamps[0].Equal(fixedNow) {
		t.Errorf("process timestamp = %v, want snapshot time", ps.CPU.Timestamps[0])
	}
	if tr.Samples() != 1 {
		t.Errorf("Samples() = %d, want 1", tr.Samples())
	}
}

func TestTrackerCapacityAfterManySnapshots(t *testing.T) {
	const capacity = 100
	tr := newTestTracker(capacity, 0)
	for i := 0; i < capacity+50; i++ {
		tr.Ingest(sampleSnapshot(fixedNow.Add(time.Duration(i) * time.Second)))
	}

	for i, core := range tr.CPUCores() {
		if len(core.Values) != capacity {
			t.Errorf("core %d has %d samples, want %d", i, len(core.Values), capacity)
		}
	}
	if got := len(tr.Networks()["eth0"].Tx.Values); got != capacity {
		t.Errorf("eth0 tx has %d samples, want %d", got, capacity)
	}
	ps, _ := tr.Process(metrics.ProcessKey{PID: 1, Name: "init"})
	if len(ps.CPU.Values) != capacity || len(ps.Memory.Values) != capacity {
		t.Errorf("process series have %d/%d samples", len(ps.CPU.Values), len(ps.Memory.Values))
	}
}

func TestTrackerSeedsFromHostHistory(t *testing.T) {
	tr := newTestTracker(100, 0)

	snap := sampleSnapshot(fixedNow)
	snap.CPUHistory = [][]float64{{5, 10, 20}, {}}
	snap.Networks["eth0"] = metrics.NetworkRecord{CurrentRxSpeed: 3, RxHistory: []float64{1, 2, 3}}
	tr.Ingest(snap)

	cores := tr.CPUCores()
	if got := cores[0].Values; len(got) != 3 || got[2] != 20 {
		t.Errorf("core 0 = %v, want seeded [5 10 20]", got)
	}
	if got := cores[1].Values; len(got) != 1 || got[0] != 40 {
		t.Errorf("core 1 = %v, want [40]", got)
	}
	if got := tr.Networks()["eth0"].Rx.Values; len(got) != 3 {
		t.Errorf("eth0 rx = %v, want seeded history", got)
	}

	// Later snapshots append only the current value.
	snap.CPUUsage = []float64{30, 50}
	tr.Ingest(snap)
	if got := tr.CPUCores()[0].Values; len(got) != 4 || got[3] != 30 {
		t.Errorf("core 0 = %v, want 4 samples ending with 30", got)
	}
}

func TestTrackerEvictsStaleProcesses(t *testing.T) {
	tr := newTestTracker(100, 2)
	tr.Ingest(sampleSnapshot(fixedNow))

	snap := sampleSnapshot(fixedNow)
	snap.Processes = snap.Processes[:1]

	tr.Ingest(snap)
	if _, ok := tr.Process(metrics.ProcessKey{PID: 42, Name: "beam"}); !ok {
		t.Fatal("process evicted after one missed snapshot")
	}

	report := tr.Ingest(snap)
	if len(report.EvictedProcs) != 1 || report.EvictedProcs[0].PID != 42 {
		t.Fatalf("EvictedProcs = %v, want [42-beam]", report.EvictedProcs)
	}
	if _, ok := tr.Process(metrics.ProcessKey{PID: 42, Name: "beam"}); ok {
		t.Error("stale process still tracked")
	}
	if keys := tr.ProcessKeys(); len(keys) != 1 {
		t.Errorf("ProcessKeys() = %v", keys)
	}
}

func TestTrackerReusedPIDIsNewEntity(t *testing.T) {
	tr := newTestTracker(100, 0)
	snap := sampleSnapshot(fixedNow)
	tr.Ingest(snap)

	snap.Processes = []metrics.Process{{PID: 42, Name: "other", CPU: 1}}
	tr.Ingest(snap)

	ps, ok := tr.Process(metrics.ProcessKey{PID: 42, Name: "other"})
	if !ok || len(ps.CPU.Values) != 1 {
		t.Errorf("reused pid shares history: %+v", ps)
	}
}

func TestTrackerSubstitutesNonFinite(t *testing.T) {
	tr := newTestTracker(10, 0)
	snap := sampleSnapshot(fixedNow)
	snap.CPUUsage = []float64{math.NaN(), 10}

	report := tr.Ingest(snap)
	if report.Substituted == 0 {
		t.Error("Substituted = 0, want at least one")
	}
	if got := tr.CPUCores()[0].Values; got[0] != 0 {
		t.Errorf("core 0 = %v, want [0]", got)
	}
}
