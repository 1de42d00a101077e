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
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phuonguno98/unopulse/internal/collector"
	"github.com/phuonguno98/unopulse/internal/config"
	"github.com/phuonguno98/unopulse/internal/exporter"
	"github.com/phuonguno98/unopulse/pkg/version"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record normalized metrics to CSV",
	Long: `Sample this machine and write normalized metrics to a CSV file.
Files rotate when they grow past 150MB.

Examples:
  # Run in foreground with default settings
  unopulse record

  # Custom interval, output and filters
  unopulse record --interval 5s -o metrics.csv --include-disks "sda1"`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringP(config.KeyOutput, "o", "",
		"Output CSV file path (default: <hostname>_<timestamp>.csv)")
	recordCmd.Flags().Int(config.KeyBufferSize, config.DefaultBufferSize,
		"Buffer size for CSV writer")
	recordCmd.Flags().Duration(config.KeyFlushInterval, config.DefaultFlushInterval,
		"Flush interval for CSV writer")
	addCollectorFlags(recordCmd.Flags())
}

func runRecord(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, func(c *config.Config) {
		// Set defaults if not specified
		if c.OutputPath == "" {
			c.OutputPath = config.GetDefaultOutputPath()
		}
	})
	if err != nil {
		return err
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile)
	logger.Info("Starting UnoPulse recorder",
		"version", version.Info(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
	)
	logger.Info("Configuration loaded", "config", cfg.String())
	checkPlatformCapabilities(logger)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	manager := collector.NewManager(cfg, logger)
	events := manager.Subscribe(ctx)

	csvExporter, err := exporter.NewCSVExporter(cfg, events, logger)
	if err != nil {
		logger.Error("Failed to create CSV exporter", "error", err)
		return err
	}
	defer func() {
		if err := csvExporter.Close(); err != nil {
			logger.Error("Failed to close exporter", "error", err)
		}
	}()

	logger.Info("UnoPulse is recording", "output", cfg.OutputPath)

	// Blocks until the context is cancelled or the event stream closes
	if err := csvExporter.Start(ctx); err != nil {
		logger.Error("Exporter stopped with error", "error", err)
		return err
	}

	manager.Stop()
	logger.Info("Shutdown complete")
	return nil
}
