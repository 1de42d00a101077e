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
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// NotAvailable is rendered in place of a value that cannot be resolved.
const NotAvailable = "N/A"

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// Level classifies a usage percentage for display.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// LevelKind selects the thresholds UsageLevel applies.
type LevelKind int

const (
	// KindCPU uses 30/60/85 thresholds.
	KindCPU LevelKind = iota
	// KindCapacity uses 50/75/90 thresholds, for memory and disks.
	KindCapacity
)

// ScaleCapacity converts a GB figure to bytes when it is below one.
// Larger values are returned unchanged.
func ScaleCapacity(v float64) float64 {
	if v > 0 && v < 1 {
		return v * BytesPerGB
	}
	return v
}

// FormatBytes renders b with 1024-based units.
// Trailing zeros of the fraction are trimmed. Negative or non-finite input is N/A.
func FormatBytes(b float64, decimals int) string {
	if !isFinite(b) || b < 0 {
		return NotAvailable
	}
	if b == 0 {
		return "0 Bytes"
	}
	if decimals < 0 {
		decimals = 0
	}

	if b < 1 {
		return strconv.FormatFloat(b*1024, 'f', decimals, 64) + " Bytes"
	}

	i := int(math.Floor(math.Log(b) / math.Log(1024)))
	switch {
	case i < 0:
		i = 0
	case i >= len(byteUnits):
		i = len(byteUnits) - 1
	}

	return humanize.FtoaWithDigits(roundTo(b/math.Pow(1024, float64(i)), decimals), decimals) + " " + byteUnits[i]
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// FormatCapacity renders a disk capacity delivered in GB.
func FormatCapacity(v *float64) string {
	if v == nil || !isFinite(*v) || *v < 0 {
		return NotAvailable
	}
	return FormatBytes(ScaleCapacity(*v), 1)
}

// FormatGB renders a memory figure delivered in GB.
func FormatGB(gb float64) string {
	if !isFinite(gb) || gb < 0 {
		return NotAvailable
	}
	return strconv.FormatFloat(gb, 'f', 2, 64) + " GB"
}

// FormatSpeed renders a rate given in KB/s.
func FormatSpeed(kbps float64) string {
	if kbps < 0 {
		return "0 B/s"
	}
	if kbps < 1024 {
		return strconv.FormatFloat(kbps, 'f', 1, 64) + " KB/s"
	}
	mbps := kbps / 1024
	if mbps < 1024 {
		return strconv.FormatFloat(mbps, 'f', 1, 64) + " MB/s"
	}
	return strconv.FormatFloat(mbps/1024, 'f', 1, 64) + " GB/s"
}

// FormatNumber renders n with thousands separators.
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent renders v with a fixed number of decimals and a % sign.
func FormatPercent(v float64, decimals int) string {
	if math.IsNaN(v) {
		return NotAvailable
	}
	return strconv.FormatFloat(v, 'f', decimals, 64) + "%"
}

// UsageLevel classifies pct for display.
func UsageLevel(pct float64, kind LevelKind) Level {
	medium, high, critical := 30.0, 60.0, 85.0
	if kind == KindCapacity {
		medium, high, critical = 50, 75, 90
	}

	switch {
	case pct > critical:
		return LevelCritical
	case pct > high:
		return LevelHigh
	case pct > medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// TemperatureLevel classifies a GPU temperature in Celsius.
func TemperatureLevel(celsius float64) Level {
	switch {
	case celsius > 85:
		return LevelCritical
	case celsius > 75:
		return LevelHigh
	case celsius > 60:
		return LevelMedium
	default:
		return LevelLow
	}
}
