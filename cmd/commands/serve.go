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
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phuonguno98/unopulse/internal/collector"
	"github.com/phuonguno98/unopulse/internal/config"
	"github.com/phuonguno98/unopulse/internal/dashboard"
	"github.com/phuonguno98/unopulse/internal/server"
	"github.com/phuonguno98/unopulse/pkg/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sample this machine and serve the live dashboard API",
	Long: `Sample this machine and serve the derived dashboard views as JSON,
with live overview updates over WebSocket.

Endpoints:
  GET  /api/overview, /api/cpu, /api/memory, /api/disks, /api/network, /api/gpus
  GET  /api/processes?sort=cpu&dir=desc&q=post
  POST /api/processes/sort/{key}
  GET  /api/snapshot, POST /api/snapshot
  GET  /api/status, /api/version
  GET  /ws

Examples:
  # Serve on the default address (127.0.0.1:8080)
  unopulse serve

  # Listen on all interfaces with a 2 second interval
  unopulse serve --host 0.0.0.0 --port 3000 --interval 2s`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String(config.KeyHost, config.DefaultHost, "HTTP server listen address")
	serveCmd.Flags().IntP(config.KeyPort, "p", config.DefaultPort, "HTTP server port")
	addCollectorFlags(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile)
	logger.Info("Starting UnoPulse",
		"version", version.Info(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
	)
	logger.Info("Configuration loaded", "config", cfg.String())
	checkPlatformCapabilities(logger)

	loc := cfg.Location()
	manager := collector.NewManager(cfg, logger)
	engine := dashboard.NewEngine(manager, dashboard.Options{
		Capacity:          cfg.HistoryCapacity,
		RangeWindow:       cfg.RangeWindow,
		ProcessStaleAfter: cfg.ProcessStaleAfter,
		Clock:             func() time.Time { return time.Now().In(loc) },
	}, logger)
	srv := server.NewServer(engine, logger)

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

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil {
			logger.Error("Dashboard engine stopped with error", "error", err)
		}
	}()

	fmt.Printf("\nUnoPulse is running!\n")
	fmt.Printf("API: http://%s/api/overview\n", cfg.Addr())
	fmt.Printf("WebSocket: ws://%s/ws\n\n", cfg.Addr())

	err = srv.Run(ctx, cfg.Addr())
	cancel()
	wg.Wait()
	manager.Stop()

	logger.Info("Shutdown complete")
	return err
}
