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

// minRateInterval is the smallest interval, in seconds, a rate is computed over.
// Shorter intervals repeat the previous rate instead.
const minRateInterval = 0.001

// CalculateCPUUtilization calculates CPU utilization percentage from two CPU time snapshots.
// Formula: 100 * (1 - ΔIdle / ΔTotal)
func CalculateCPUUtilization(prev, current *CPUTimeStats) float64 {
	if prev.Timestamp.IsZero() {
		return 0.0
	}

	prevTotal := prev.User + prev.System + prev.Idle + prev.IOWait + prev.Irq + prev.SoftIrq + prev.Steal
	currentTotal := current.User + current.System + current.Idle + current.IOWait + current.Irq + current.SoftIrq + current.Steal

	deltaTotal := currentTotal - prevTotal
	deltaIdle := current.Idle - prev.Idle

	if deltaTotal <= 0 {
		return 0.0
	}

	return ClampPercent(100.0 * (1.0 - deltaIdle/deltaTotal))
}

// CalculateKBPerSec converts a counter delta into kilobytes per second.
// Counter resets (current < prev) count as zero traffic.
// ok is false when the interval is too short to measure.
func CalculateKBPerSec(prevBytes, currentBytes uint64, seconds float64) (rate float64, ok bool) {
	if seconds <= minRateInterval {
		return 0, false
	}

	var delta uint64
	if currentBytes > prevBytes {
		delta = currentBytes - prevBytes
	}

	return float64(delta) / seconds / 1024.0, true
}

// CalculateNetworkRates returns receive and transmit rates in KB/s.
func CalculateNetworkRates(prev, current NetworkIOStats) (rx, tx float64, ok bool) {
	if prev.Timestamp.IsZero() {
		return 0, 0, false
	}

	seconds := current.Timestamp.Sub(prev.Timestamp).Seconds()
	rx, ok = CalculateKBPerSec(prev.BytesRecv, current.BytesRecv, seconds)
	if !ok {
		return 0, 0, false
	}
	tx, _ = CalculateKBPerSec(prev.BytesSent, current.BytesSent, seconds)
	return rx, tx, true
}

// CalculateDiskRates returns read and write rates in KB/s.
func CalculateDiskRates(prev, current DiskIOStats) (read, write float64, ok bool) {
	if prev.Timestamp.IsZero() {
		return 0, 0, false
	}

	seconds := current.Timestamp.Sub(prev.Timestamp).Seconds()
	read, ok = CalculateKBPerSec(prev.ReadBytes, current.ReadBytes, seconds)
	if !ok {
		return 0, 0, false
	}
	write, _ = CalculateKBPerSec(prev.WriteBytes, current.WriteBytes, seconds)
	return read, write, true
}
