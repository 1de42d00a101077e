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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "Single value",
			input:    "sda",
			expected: []string{"sda"},
		},
		{
			name:     "Multiple values",
			input:    "sda,sdb",
			expected: []string{"sda", "sdb"},
		},
		{
			name:     "Whitespace handling",
			input:    " sda , sdb ",
			expected: []string{"sda", "sdb"},
		},
		{
			name:     "Empty parts",
			input:    "sda,,sdb",
			expected: []string{"sda", "sdb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommaSeparated(tt.input)
			if len(got) != len(tt.expected) {
				t.Errorf("ParseCommaSeparated() length = %v, want %v", len(got), len(tt.expected))
				return
			}
			for i, v := range got {
				if v != tt.expected[i] {
					t.Errorf("ParseCommaSeparated()[%d] = %v, want %v", i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tempDir := t.TempDir()
	validOutputPath := filepath.Join(tempDir, "test.csv")

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "Defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "Valid Output Path",
			mutate:  func(c *Config) { c.OutputPath = validOutputPath },
			wantErr: false,
		},
		{
			name:    "Missing Output Directory",
			mutate:  func(c *Config) { c.OutputPath = filepath.Join(tempDir, "missing", "out.csv") },
			wantErr: true,
		},
		{
			name:    "Invalid Sampling Interval (Too small)",
			mutate:  func(c *Config) { c.SamplingInterval = 500 * time.Millisecond },
			wantErr: true,
		},
		{
			name:    "Invalid Sampling Interval (Too large)",
			mutate:  func(c *Config) { c.SamplingInterval = 2 * time.Hour },
			wantErr: true,
		},
		{
			name:    "History Capacity Too Small",
			mutate:  func(c *Config) { c.HistoryCapacity = 1 },
			wantErr: true,
		},
		{
			name:    "Range Window Exceeds Capacity",
			mutate:  func(c *Config) { c.RangeWindow = c.HistoryCapacity + 1 },
			wantErr: true,
		},
		{
			name:    "Never Evict Processes",
			mutate:  func(c *Config) { c.ProcessStaleAfter = 0 },
			wantErr: false,
		},
		{
			name:    "Negative Stale After",
			mutate:  func(c *Config) { c.ProcessStaleAfter = -1 },
			wantErr: true,
		},
		{
			name:    "Invalid Top Processes",
			mutate:  func(c *Config) { c.TopProcesses = 0 },
			wantErr: true,
		},
		{
			name:    "Invalid Port",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "Invalid Buffer Size",
			mutate:  func(c *Config) { c.BufferSize = 0 },
			wantErr: true,
		},
		{
			name:    "Invalid Flush Interval",
			mutate:  func(c *Config) { c.FlushInterval = 0 },
			wantErr: true,
		},
		{
			name:    "Invalid Log Level",
			mutate:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
		{
			name:    "Valid Timezone",
			mutate:  func(c *Config) { c.Timezone = "UTC" },
			wantErr: false,
		},
		{
			name:    "Invalid Timezone",
			mutate:  func(c *Config) { c.Timezone = "Invalid/Timezone" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDefaultOutputPath(t *testing.T) {
	path := GetDefaultOutputPath()
	if path == "" {
		t.Error("GetDefaultOutputPath() returned empty string")
	}
	if !strings.HasSuffix(path, ".csv") {
		t.Errorf("GetDefaultOutputPath() = %v, expected .csv suffix", path)
	}
}

func newTestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Duration(KeyInterval, DefaultSamplingInterval, "")
	fs.Int(KeyPort, DefaultPort, "")
	fs.Int(KeyRangeWindow, DefaultRangeWindow, "")
	fs.String(KeyIncludeDisks, "", "")
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	v, err := NewViper("", newTestFlags(t))
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}

	cfg := Load(v)
	if cfg.SamplingInterval != DefaultSamplingInterval || cfg.Port != DefaultPort || cfg.HistoryCapacity != DefaultHistoryCapacity {
		t.Errorf("Load() = %s, want defaults", cfg)
	}
	if cfg.IncludeDisks != nil {
		t.Errorf("IncludeDisks = %v, want nil", cfg.IncludeDisks)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_Layers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unopulse.yaml")
	content := "interval: 5s\nhistory-capacity: 200\nport: 7000\ninclude-disks: \"sda, sdb\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("UNOPULSE_PROCESS_STALE_AFTER", "0")
	t.Setenv("UNOPULSE_PORT", "9090")

	v, err := NewViper(path, newTestFlags(t, "--range-window=60", "--port=9191"))
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	cfg := Load(v)

	if cfg.SamplingInterval != 5*time.Second {
		t.Errorf("SamplingInterval = %v, want 5s from file", cfg.SamplingInterval)
	}
	if cfg.HistoryCapacity != 200 {
		t.Errorf("HistoryCapacity = %d, want 200 from file", cfg.HistoryCapacity)
	}
	if cfg.ProcessStaleAfter != 0 {
		t.Errorf("ProcessStaleAfter = %d, want 0 from env", cfg.ProcessStaleAfter)
	}
	if cfg.RangeWindow != 60 {
		t.Errorf("RangeWindow = %d, want 60 from flag", cfg.RangeWindow)
	}
	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want flag to win over env and file", cfg.Port)
	}
	if len(cfg.IncludeDisks) != 2 || cfg.IncludeDisks[1] != "sdb" {
		t.Errorf("IncludeDisks = %v, want [sda sdb]", cfg.IncludeDisks)
	}
}

func TestNewViper_MissingFile(t *testing.T) {
	if _, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("NewViper() with missing file returned nil error")
	}
}

func TestConfig_AddrAndLocation(t *testing.T) {
	cfg := Default()
	if got := cfg.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
	cfg.Timezone = "UTC"
	if got := cfg.Location(); got != time.UTC {
		t.Errorf("Location() = %v, want UTC", got)
	}
	cfg.Timezone = "Not/AZone"
	if got := cfg.Location(); got != time.Local {
		t.Errorf("Location() = %v, want Local fallback", got)
	}
}
