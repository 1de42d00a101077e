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

package dashboard

import (
	"errors"
	"sort"
	"strconv"

	"github.com/phuonguno98/unopulse/internal/history"
	"github.com/phuonguno98/unopulse/internal/proctable"
	"github.com/phuonguno98/unopulse/pkg/metrics"
)

// Chart is one continuously updating series together with its axis.
type Chart struct {
	Label   string             `json:"label"`
	Unit    string             `json:"unit"`
	Current float64            `json:"current"`
	Display string             `json:"display"`
	Level   metrics.Level      `json:"level,omitempty"`
	Range   *metrics.AxisRange `json:"range"` // nil means auto-scale
	Series  history.Snapshot   `json:"series"`
}

// OverviewView is the summary of every subsystem.
type OverviewView struct {
	State     State         `json:"state"`
	CPU       Chart         `json:"cpu"`
	Cores     int           `json:"cores"`
	Memory    Chart         `json:"memory"`
	DiskRead  Chart         `json:"disk_read"`
	DiskWrite Chart         `json:"disk_write"`
	Network   NetworkTotals `json:"network"`
	Disks     []DiskView    `json:"disks"`
	GPUs      []GPUView     `json:"gpus"`
	Top       []ProcessRow  `json:"top_processes"`
}

// NetworkTotals sums the current speed of every interface.
type NetworkTotals struct {
	RxPerSec float64 `json:"rx_per_sec"`
	TxPerSec float64 `json:"tx_per_sec"`
	Display  string  `json:"display"`
	Chart    Chart   `json:"chart"`
}

// CPUView holds the average and per-core charts.
type CPUView struct {
	Average Chart   `json:"average"`
	Cores   []Chart `json:"cores"`
}

// MemoryView holds resolved memory usage and its chart.
type MemoryView struct {
	Usage     *metrics.MemoryUsage `json:"usage,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Used      string               `json:"used"`
	Total     string               `json:"total"`
	Available string               `json:"available"`
	Chart     Chart                `json:"chart"`
}

// DiskView is one disk with normalized usage, or the reason it could not be resolved.
type DiskView struct {
	Name       string             `json:"name"`
	MountPoint string             `json:"mount_point"`
	DiskType   string             `json:"disk_type"`
	Usage      *metrics.DiskUsage `json:"usage,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Total      string             `json:"total"`
	Used       string             `json:"used"`
	Available  string             `json:"available"`
	Level      metrics.Level      `json:"level,omitempty"`
	UsageChart Chart              `json:"usage_chart"`
	Read       Chart              `json:"read"`
	Write      Chart              `json:"write"`
}

// DisksView lists every disk plus system-wide throughput.
type DisksView struct {
	Disks      []DiskView `json:"disks"`
	ReadTotal  Chart      `json:"read_total"`
	WriteTotal Chart      `json:"write_total"`
}

// InterfaceView is one network interface.
type InterfaceView struct {
	Name    string `json:"name"`
	RxTotal string `json:"rx_total"`
	TxTotal string `json:"tx_total"`
	Rx      Chart  `json:"rx"`
	Tx      Chart  `json:"tx"`
}

// GPUView is one GPU.
type GPUView struct {
	Name             string        `json:"name"`
	Temperature      float64       `json:"temperature"`
	TemperatureLevel metrics.Level `json:"temperature_level"`
	Memory           string        `json:"memory"`
	PowerUsage       float64       `json:"power_usage"`
	Utilization      Chart         `json:"utilization"`
}

// ProcessRow is one row of the process table.
type ProcessRow struct {
	PID      uint32  `json:"pid"`
	Name     string  `json:"name"`
	CPU      float64 `json:"cpu"`
	MemoryMB float64 `json:"memory_mb"`
	Memory   string  `json:"memory"`
}

// ProcessHistory holds the charts of one leading process.
type ProcessHistory struct {
	PID    uint32 `json:"pid"`
	Name   string `json:"name"`
	CPU    Chart  `json:"cpu"`
	Memory Chart  `json:"memory"`
}

// ProcessView is the projected process table.
type ProcessView struct {
	Sort    proctable.SortState `json:"sort"`
	Filter  string              `json:"filter"`
	Total   int                 `json:"total"`
	Rows    []ProcessRow        `json:"rows"`
	History []ProcessHistory    `json:"history"`
}

func (e *Engine) chart(label string, unit metrics.Unit, s history.Snapshot, display func(float64) string) Chart {
	c := Chart{Label: label, Unit: unit.String(), Series: s}
	if n := len(s.Values); n > 0 {
		c.Current = s.Values[n-1]
	}
	if r, ok := metrics.EstimateRangeWindow(s.Values, unit, e.window); ok {
		c.Range = &r
	}
	c.Display = display(c.Current)
	return c
}

func percentDisplay(v float64) string { return metrics.FormatPercent(v, 1) }

func memoryDisplay(mb float64) string { return metrics.FormatBytes(mb*1024*1024, 1) }

func (e *Engine) latestOrErr() (*metrics.Snapshot, error) {
	snap, ok := e.Latest()
	if !ok {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Overview builds the summary view.
func (e *Engine) Overview() (OverviewView, error) {
	snap, err := e.latestOrErr()
	if err != nil {
		return OverviewView{}, err
	}

	cpu := e.cpuAverage()
	mem := e.memoryChart()
	read, write := e.systemDiskCharts()

	disks := e.disks(snap)
	gpus := e.gpus(snap)
	procs := e.Processes(nil, "")

	return OverviewView{
		State:     e.State(),
		CPU:       cpu,
		Cores:     len(snap.CPUUsage),
		Memory:    mem,
		DiskRead:  read,
		DiskWrite: write,
		Network:   e.networkTotals(snap),
		Disks:     disks,
		GPUs:      gpus,
		Top:       procs.Rows[:min(len(procs.Rows), proctable.HistoryPanelSize)],
	}, nil
}

// CPU builds the processor view.
func (e *Engine) CPU() (CPUView, error) {
	if _, err := e.latestOrErr(); err != nil {
		return CPUView{}, err
	}

	cores := e.tracker.CPUCores()
	view := CPUView{
		Average: e.cpuAverage(),
		Cores:   make([]Chart, 0, len(cores)),
	}
	for i, s := range cores {
		c := e.chart("Core "+strconv.Itoa(i), metrics.UnitPercent, s, percentDisplay)
		c.Level = metrics.UsageLevel(c.Current, metrics.KindCPU)
		view.Cores = append(view.Cores, c)
	}
	return view, nil
}

func (e *Engine) cpuAverage() Chart {
	c := e.chart("CPU", metrics.UnitPercent, e.tracker.CPUAverage(), percentDisplay)
	c.Level = metrics.UsageLevel(c.Current, metrics.KindCPU)
	return c
}

// Memory builds the memory view.
func (e *Engine) Memory() (MemoryView, error) {
	snap, err := e.latestOrErr()
	if err != nil {
		return MemoryView{}, err
	}

	view := MemoryView{
		Chart:     e.memoryChart(),
		Used:      metrics.FormatGB(snap.MemoryUsed),
		Total:     metrics.FormatGB(snap.MemoryTotal),
		Available: metrics.NotAvailable,
	}
	usage, err := snap.Memory()
	if err != nil {
		view.Reason = err.Error()
		return view, nil
	}
	view.Usage = &usage
	view.Available = metrics.FormatGB(usage.AvailableGB)
	return view, nil
}

func (e *Engine) memoryChart() Chart {
	c := e.chart("Memory", metrics.UnitPercent, e.tracker.Memory(), percentDisplay)
	c.Level = metrics.UsageLevel(c.Current, metrics.KindCapacity)
	return c
}

func (e *Engine) systemDiskCharts() (read, write Chart) {
	r, w := e.tracker.SystemDiskIO()
	return e.chart("Disk Read", metrics.UnitOther, r, metrics.FormatSpeed),
		e.chart("Disk Write", metrics.UnitOther, w, metrics.FormatSpeed)
}

// Disks builds the disk view.
func (e *Engine) Disks() (DisksView, error) {
	snap, err := e.latestOrErr()
	if err != nil {
		return DisksView{}, err
	}
	read, write := e.systemDiskCharts()
	return DisksView{
		Disks:      e.disks(snap),
		ReadTotal:  read,
		WriteTotal: write,
	}, nil
}

func (e *Engine) disks(snap *metrics.Snapshot) []DiskView {
	series := e.tracker.Disks()
	names := sortedKeys(snap.Disks)
	out := make([]DiskView, 0, len(names))

	for _, name := range names {
		rec := snap.Disks[name]
		hist := series[name]

		dv := DiskView{
			Name:       name,
			MountPoint: rec.MountPoint,
			DiskType:   rec.DiskType,
			Total:      metrics.FormatCapacity(rec.TotalSpace),
			Used:       metrics.NotAvailable,
			Available:  metrics.NotAvailable,
			UsageChart: e.chart(name, metrics.UnitPercent, hist.Usage, percentDisplay),
			Read:       e.chart(name+" Read", metrics.UnitOther, hist.Read, metrics.FormatSpeed),
			Write:      e.chart(name+" Write", metrics.UnitOther, hist.Write, metrics.FormatSpeed),
		}

		usage, err := metrics.ResolveRecord(rec)
		switch {
		case err == nil:
			dv.Usage = &usage
			dv.Used = metrics.FormatCapacity(metrics.Float(usage.Used))
			dv.Available = metrics.FormatCapacity(metrics.Float(usage.Available))
			dv.Level = metrics.UsageLevel(usage.UsagePercent, metrics.KindCapacity)
		case errors.Is(err, metrics.ErrUnresolvable):
			dv.Reason = err.Error()
		}
		out = append(out, dv)
	}
	return out
}

// Network builds the per-interface view.
func (e *Engine) Network() ([]InterfaceView, error) {
	snap, err := e.latestOrErr()
	if err != nil {
		return nil, err
	}

	series := e.tracker.Networks()
	names := sortedKeys(snap.Networks)
	out := make([]InterfaceView, 0, len(names))
	for _, name := range names {
		rec := snap.Networks[name]
		hist := series[name]
		out = append(out, InterfaceView{
			Name:    name,
			RxTotal: metrics.FormatBytes(float64(rec.RxBytes), 1),
			TxTotal: metrics.FormatBytes(float64(rec.TxBytes), 1),
			Rx:      e.chart(name+" Download", metrics.UnitOther, hist.Rx, metrics.FormatSpeed),
			Tx:      e.chart(name+" Upload", metrics.UnitOther, hist.Tx, metrics.FormatSpeed),
		})
	}
	return out, nil
}

func (e *Engine) networkTotals(snap *metrics.Snapshot) NetworkTotals {
	var t NetworkTotals
	for _, rec := range snap.Networks {
		t.RxPerSec += rec.CurrentRxSpeed
		t.TxPerSec += rec.CurrentTxSpeed
	}
	t.Display = "↓" + metrics.FormatSpeed(t.RxPerSec) + " ↑" + metrics.FormatSpeed(t.TxPerSec)

	// The chart follows the first interface by name.
	var s history.Snapshot
	if names := sortedKeys(snap.Networks); len(names) > 0 {
		s = e.tracker.Networks()[names[0]].Rx
	}
	t.Chart = e.chart("Network", metrics.UnitOther, s, metrics.FormatSpeed)
	t.Chart.Current = t.RxPerSec + t.TxPerSec
	t.Chart.Display = metrics.FormatSpeed(t.Chart.Current)
	return t
}

// GPUs builds the GPU view.
func (e *Engine) GPUs() ([]GPUView, error) {
	snap, err := e.latestOrErr()
	if err != nil {
		return nil, err
	}
	return e.gpus(snap), nil
}

func (e *Engine) gpus(snap *metrics.Snapshot) []GPUView {
	series := e.tracker.GPUs()
	out := make([]GPUView, 0, len(snap.GPUs))
	for _, g := range snap.GPUs {
		c := e.chart(g.Name, metrics.UnitPercent, series[g.Name], percentDisplay)
		c.Level = metrics.UsageLevel(c.Current, metrics.KindCPU)
		out = append(out, GPUView{
			Name:             g.Name,
			Temperature:      g.Temperature,
			TemperatureLevel: metrics.TemperatureLevel(g.Temperature),
			Memory:           metrics.FormatPercent(percentOrZero(g.MemoryUsed, g.MemoryTotal), 0),
			PowerUsage:       g.PowerUsage,
			Utilization:      c,
		})
	}
	return out
}

// Processes projects the latest process list. A nil state uses the engine's
// current sort state.
func (e *Engine) Processes(state *proctable.SortState, filter string) ProcessView {
	st := e.SortState()
	if state != nil {
		st = *state
	}

	view := ProcessView{Sort: st, Filter: filter, Rows: []ProcessRow{}, History: []ProcessHistory{}}
	snap, ok := e.Latest()
	if !ok {
		return view
	}

	projected := proctable.Project(snap.Processes, st, filter)
	view.Total = len(snap.Processes)
	view.Rows = make([]ProcessRow, 0, len(projected))
	for _, p := range projected {
		view.Rows = append(view.Rows, ProcessRow{
			PID:      p.PID,
			Name:     p.Name,
			CPU:      p.CPU,
			MemoryMB: p.MemoryMB,
			Memory:   memoryDisplay(p.MemoryMB),
		})
	}

	for _, p := range proctable.Top(projected, proctable.HistoryPanelSize) {
		ps, ok := e.tracker.Process(p.Key())
		if !ok {
			continue
		}
		view.History = append(view.History, ProcessHistory{
			PID:    p.PID,
			Name:   p.Name,
			CPU:    e.chart(p.Key().String()+" CPU", metrics.UnitPercent, ps.CPU, percentDisplay),
			Memory: e.chart(p.Key().String()+" Memory", metrics.UnitOther, ps.Memory, memoryDisplay),
		})
	}
	return view
}

func percentOrZero(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return metrics.ClampPercent(part / total * 100)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
