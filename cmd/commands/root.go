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

package commands

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/phuonguno98/unopulse/internal/config"
)

var (
	// Global persistent flags (shared by subcommands)
	logLevel   string
	logFile    string
	timezone   string
	configFile string
)

const (
	osWindows = "windows"
	osLinux   = "linux"
	osDarwin  = "darwin"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "unopulse",
	Short: "UnoPulse - Live hardware telemetry dashboard engine",
	Long: `UnoPulse samples CPU, memory, disks, network interfaces and processes,
keeps bounded rolling histories of every metric, normalizes partial disk
records and computes stable chart ranges for live dashboards.

Use 'unopulse serve' to start the dashboard API or 'unopulse record' to
write normalized metrics to CSV.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&logLevel, config.KeyLogLevel, config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, config.KeyLogFile, "",
		"Log file path (empty = stdout)")
	rootCmd.PersistentFlags().StringVar(&timezone, config.KeyTimezone, config.DefaultTimezone,
		"Timezone for timestamps (e.g., 'Asia/Ho_Chi_Minh', 'Local')")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file (YAML, TOML or JSON); UNOPULSE_* environment variables also apply")
}

// addCollectorFlags registers the sampling and history flags shared by serve and record.
func addCollectorFlags(fs *pflag.FlagSet) {
	fs.Duration(config.KeyInterval, config.DefaultSamplingInterval,
		"Sampling interval (e.g., 1s, 30s, 1m)")
	fs.Int(config.KeyTopProcesses, config.DefaultTopProcesses,
		"Number of busiest processes reported per snapshot")
	fs.Int(config.KeyHistoryCapacity, config.DefaultHistoryCapacity,
		"Samples retained per metric history")
	fs.Int(config.KeyRangeWindow, config.DefaultRangeWindow,
		"Recent samples considered when estimating a chart axis")
	fs.Int(config.KeyProcessStaleAfter, config.DefaultProcessStaleAfter,
		"Snapshots a process may be absent before its history is dropped (0 = never)")

	// Filter flags
	fs.String(config.KeyIncludeDisks, "",
		"Comma-separated list of disk devices to monitor (empty = all)")
	fs.String(config.KeyExcludeDisks, "",
		"Comma-separated list of disk devices to exclude")
	fs.String(config.KeyIncludeNetworks, "",
		"Comma-separated list of network interfaces to monitor (empty = all)")
	fs.String(config.KeyExcludeNetworks, "",
		"Comma-separated list of network interfaces to exclude")
}

// loadConfig merges the command's flags, the config file and the environment,
// then validates the result.
func loadConfig(cmd *cobra.Command, prepare func(*config.Config)) (*config.Config, error) {
	flags := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	flags.AddFlagSet(cmd.Flags())
	flags.AddFlagSet(cmd.InheritedFlags())

	v, err := config.NewViper(configFile, flags)
	if err != nil {
		return nil, err
	}

	cfg := config.Load(v)
	if prepare != nil {
		prepare(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// InitLogger initializes and returns a slog.Logger based on the provided settings.
// It is shared by all commands to ensure consistent logging format.
func InitLogger(levelStr, fileStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if fileStr != "" {
		f, err := os.OpenFile(fileStr, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		handler = slog.NewJSONHandler(f, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// checkPlatformCapabilities logs platform-specific capability warnings.
func checkPlatformCapabilities(logger *slog.Logger) {
	logger.Info("GPU metrics are not collected locally; push snapshots with gpu_data to POST /api/snapshot")

	switch runtime.GOOS {
	case osWindows:
		logger.Warn("Running on Windows: CPU iowait is folded into idle time")
	case osDarwin:
		logger.Info("Running on macOS: Process metrics may require sudo for other users' processes")
	case osLinux:
		logger.Info("Running on Linux: All local metrics available")
	default:
		logger.Warn("Running on unsupported platform, some metrics may not work", "os", runtime.GOOS)
	}
}
