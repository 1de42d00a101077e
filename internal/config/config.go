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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "UNOPULSE"

// Config represents application configuration.
type Config struct {
	SamplingInterval time.Duration // Interval between metric collections
	TopProcesses     int           // Number of processes reported per snapshot

	// History
	HistoryCapacity   int // Samples retained per series
	RangeWindow       int // Samples considered when estimating a chart axis
	ProcessStaleAfter int // Snapshots a process may be absent before its history is dropped (0 = never)

	// Server
	Host string
	Port int

	// Recorder
	OutputPath    string        // Path to CSV output file
	BufferSize    int           // Number of records to buffer before flush
	FlushInterval time.Duration // Maximum time before forcing a flush

	// Filters
	IncludeDisks    []string // Disk devices to monitor (empty = all)
	ExcludeDisks    []string // Disk devices to exclude
	IncludeNetworks []string // Network interfaces to monitor (empty = all)
	ExcludeNetworks []string // Network interfaces to exclude

	// Logging
	LogLevel string // Log level: debug, info, warn, error
	LogFile  string // Log file path (empty = stdout)

	// Timezone
	Timezone string // Timezone location (e.g., "Asia/Ho_Chi_Minh", "Local")
}

// Default configuration values.
const (
	DefaultSamplingInterval  = 1 * time.Second
	DefaultTopProcesses      = 50
	DefaultHistoryCapacity   = 100
	DefaultRangeWindow       = 50
	DefaultProcessStaleAfter = 30
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 8080
	DefaultBufferSize        = 100
	DefaultFlushInterval     = 5 * time.Second
	DefaultLogLevel          = "info"
	DefaultTimezone          = "Local"
	DefaultMaxOutputFileSize = 150 * 1024 * 1024 // 150MB
)

// Configuration keys. They match the command-line flag names.
const (
	KeyInterval          = "interval"
	KeyTopProcesses      = "top-processes"
	KeyHistoryCapacity   = "history-capacity"
	KeyRangeWindow       = "range-window"
	KeyProcessStaleAfter = "process-stale-after"
	KeyHost              = "host"
	KeyPort              = "port"
	KeyOutput            = "output"
	KeyBufferSize        = "buffer-size"
	KeyFlushInterval     = "flush-interval"
	KeyIncludeDisks      = "include-disks"
	KeyExcludeDisks      = "exclude-disks"
	KeyIncludeNetworks   = "include-networks"
	KeyExcludeNetworks   = "exclude-networks"
	KeyLogLevel          = "log-level"
	KeyLogFile           = "log-file"
	KeyTimezone          = "timezone"
)

// Default returns a configuration holding every default value.
func Default() *Config {
	return &Config{
		SamplingInterval:  DefaultSamplingInterval,
		TopProcesses:      DefaultTopProcesses,
		HistoryCapacity:   DefaultHistoryCapacity,
		RangeWindow:       DefaultRangeWindow,
		ProcessStaleAfter: DefaultProcessStaleAfter,
		Host:              DefaultHost,
		Port:              DefaultPort,
		BufferSize:        DefaultBufferSize,
		FlushInterval:     DefaultFlushInterval,
		LogLevel:          DefaultLogLevel,
		Timezone:          DefaultTimezone,
	}
}

// GetDefaultOutputPath generates default output path: <hostname>_<timestamp>.csv
func GetDefaultOutputPath() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	// Clean hostname (remove invalid filename characters)
	hostname = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' {
			return '_'
		}
		return r
	}, hostname)

	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s_%s.csv", hostname, timestamp)
}

// NewViper prepares a reader layering, from highest priority: flags that were
// set explicitly, UNOPULSE_* environment variables, the config file, flag defaults.
// configFile may be empty.
func NewViper(configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return v, nil
}

// Load builds a configuration from v. Keys missing from v keep their defaults.
// The result is not validated.
func Load(v *viper.Viper) *Config {
	cfg := Default()

	if v.IsSet(KeyInterval) {
		cfg.SamplingInterval = v.GetDuration(KeyInterval)
	}
	if v.IsSet(KeyTopProcesses) {
		cfg.TopProcesses = v.GetInt(KeyTopProcesses)
	}
	if v.IsSet(KeyHistoryCapacity) {
		cfg.HistoryCapacity = v.GetInt(KeyHistoryCapacity)
	}
	if v.IsSet(KeyRangeWindow) {
		cfg.RangeWindow = v.GetInt(KeyRangeWindow)
	}
	if v.IsSet(KeyProcessStaleAfter) {
		cfg.ProcessStaleAfter = v.GetInt(KeyProcessStaleAfter)
	}
	if v.IsSet(KeyHost) {
		cfg.Host = v.GetString(KeyHost)
	}
	if v.IsSet(KeyPort) {
		cfg.Port = v.GetInt(KeyPort)
	}
	if v.IsSet(KeyBufferSize) {
		cfg.BufferSize = v.GetInt(KeyBufferSize)
	}
	if v.IsSet(KeyFlushInterval) {
		cfg.FlushInterval = v.GetDuration(KeyFlushInterval)
	}
	if v.IsSet(KeyLogLevel) {
		cfg.LogLevel = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyTimezone) {
		cfg.Timezone = v.GetString(KeyTimezone)
	}

	cfg.OutputPath = v.GetString(KeyOutput)
	cfg.LogFile = v.GetString(KeyLogFile)

	// Parse filter lists
	cfg.IncludeDisks = parseCommaSeparated(v.GetString(KeyIncludeDisks))
	cfg.ExcludeDisks = parseCommaSeparated(v.GetString(KeyExcludeDisks))
	cfg.IncludeNetworks = parseCommaSeparated(v.GetString(KeyIncludeNetworks))
	cfg.ExcludeNetworks = parseCommaSeparated(v.GetString(KeyExcludeNetworks))

	return cfg
}

// parseCommaSeparated parses a comma-separated string into a slice of trimmed strings.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// ParseCommaSeparated is the exported version of parseCommaSeparated.
func ParseCommaSeparated(s string) []string {
	return parseCommaSeparated(s)
}

// Validate checks if the configuration is valid.
// The output path is only checked when set.
func (c *Config) Validate() error {
	if c.SamplingInterval < 1*time.Second {
		return errors.New("sampling interval must be at least 1 second")
	}

	if c.SamplingInterval > 1*time.Hour {
		return errors.New("sampling interval must not exceed 1 hour")
	}

	if c.HistoryCapacity < 2 {
		return errors.New("history capacity must be at least 2")
	}

	if c.RangeWindow < 2 || c.RangeWindow > c.HistoryCapacity {
		return fmt.Errorf("range window must be between 2 and the history capacity (%d)", c.HistoryCapacity)
	}

	if c.ProcessStaleAfter < 0 {
		return errors.New("process stale-after cannot be negative")
	}

	if c.TopProcesses < 1 {
		return errors.New("top processes must be at least 1")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.BufferSize < 1 {
		return errors.New("buffer size must be at least 1")
	}

	if c.FlushInterval < 1*time.Second {
		return errors.New("flush interval must be at least 1 second")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	// Validate Timezone
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %s (%w)", c.Timezone, err)
		}
	}

	if c.OutputPath != "" {
		if err := c.ensureOutputDir(); err != nil {
			return fmt.Errorf("output directory check failed: %w", err)
		}
	}

	return nil
}

// Location returns the configured timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ensureOutputDir checks if the output directory exists.
func (c *Config) ensureOutputDir() error {
	dir := filepath.Dir(c.OutputPath)

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("output path parent is not a directory: %s", dir)
	}

	return nil
}

// String returns a human-readable representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Interval=%v, History=%d, Window=%d, StaleAfter=%d, TopProcesses=%d, Addr=%s, Output=%s}, Timezone=%s",
		c.SamplingInterval, c.HistoryCapacity, c.RangeWindow, c.ProcessStaleAfter, c.TopProcesses, c.Addr(), c.OutputPath, c.Timezone)
}
