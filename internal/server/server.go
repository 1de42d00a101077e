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

// Package server exposes the dashboard engine's derived views over HTTP
// and pushes overview updates to WebSocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/phuonguno98/unopulse/internal/dashboard"
	"github.com/phuonguno98/unopulse/internal/proctable"
	"github.com/phuonguno98/unopulse/pkg/metrics"
	"github.com/phuonguno98/unopulse/pkg/version"
)

const (
	// MaxSnapshotSize limits the body of a pushed snapshot (10MB)
	MaxSnapshotSize = 10 * 1024 * 1024

	shutdownTimeout = 10 * time.Second
)

// Server serves the dashboard views.
type Server struct {
	engine *dashboard.Engine
	hub    *Hub
	logger *slog.Logger
	router *mux.Router
}

// statusResponse is the feed state plus the number of live WebSocket clients.
type statusResponse struct {
	dashboard.State
	Clients int `json:"clients"`
}

// NewServer creates a new web server for engine.
func NewServer(engine *dashboard.Engine, logger *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		hub:    NewHub(engine, logger),
		logger: logger,
		router: mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Add CORS middleware
	s.router.Use(corsMiddleware)
	// Add logging middleware
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", s.handleGetVersion).Methods("GET")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/snapshot", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/snapshot", s.handlePushSnapshot).Methods("POST")
	api.HandleFunc("/overview", s.handleGetOverview).Methods("GET")
	api.HandleFunc("/cpu", s.handleGetCPU).Methods("GET")
	api.HandleFunc("/memory", s.handleGetMemory).Methods("GET")
	api.HandleFunc("/disks", s.handleGetDisks).Methods("GET")
	api.HandleFunc("/network", s.handleGetNetwork).Methods("GET")
	api.HandleFunc("/gpus", s.handleGetGPUs).Methods("GET")
	api.HandleFunc("/processes", s.handleGetProcesses).Methods("GET")
	api.HandleFunc("/processes/sort/{key}", s.handleSelectSort).Methods("POST")

	s.router.HandleFunc("/ws", s.hub.ServeWS)
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.hub.Run(ctx)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.hub.CloseAll()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// handleGetVersion returns version information from the version package.
func (s *Server) handleGetVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, statusResponse{State: s.engine.State(), Clients: s.hub.Clients()})
}

// handleGetSnapshot returns the latest raw snapshot.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.engine.Latest()
	if !ok {
		s.writeViewError(w, dashboard.ErrNoSnapshot)
		return
	}
	s.writeJSON(w, snap)
}

// handlePushSnapshot ingests a snapshot pushed by a foreign host.
func (s *Server) handlePushSnapshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxSnapshotSize)

	var snap metrics.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		s.writeError(w, fmt.Sprintf("Invalid snapshot: %v", err), http.StatusBadRequest)
		return
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	s.engine.Ingest(&snap)
	s.writeJSONStatus(w, http.StatusAccepted, s.engine.State())
}

func (s *Server) handleGetOverview(w http.ResponseWriter, _ *http.Request) {
	view, err := s.engine.Overview()
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	s.writeJSON(w, view)
}

func (s *Server) handleGetCPU(w http.ResponseWriter, _ *http.Request) {
	view, err := s.engine.CPU()
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	s.writeJSON(w, view)
}

func (s *Server) handleGetMemory(w http.ResponseWriter, _ *http.Request) {
	view, err := s.engine.Memory()
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	s.writeJSON(w, view)
}

func (s *Server) handleGetDisks(w http.ResponseWriter, _ *http.Request) {
	view, err := s.engine.Disks()
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	s.writeJSON(w, view)
}

func (s *Server) handleGetNetwork(w http.ResponseWriter, _ *http.Request) {
	view, err := s.engine.Network()
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	s.writeJSON(w, view)
}

func (s *Server) handleGetGPUs(w http.ResponseWriter, _ *http.Request) {
	view, err := s.engine.GPUs()
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	s.writeJSON(w, view)
}

// handleGetProcesses projects the process table.
// Without a sort parameter the engine's current sort state applies; a sort
// without dir starts in that column's default direction.
func (s *Server) handleGetProcesses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var state *proctable.SortState
	if sortParam := query.Get("sort"); sortParam != "" {
		key, err := proctable.ParseSortKey(sortParam)
		if err != nil {
			s.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		st := proctable.SortState{}.Select(key)
		if dirParam := query.Get("dir"); dirParam != "" {
			dir, err := proctable.ParseDirection(dirParam)
			if err != nil {
				s.writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			st.Direction = dir
		}
		state = &st
	}

	s.writeJSON(w, s.engine.Processes(state, query.Get("q")))
}

// handleSelectSort applies a column click to the process table.
func (s *Server) handleSelectSort(w http.ResponseWriter, r *http.Request) {
	key, err := proctable.ParseSortKey(mux.Vars(r)["key"])
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, s.engine.SelectSort(key))
}

// writeViewError maps a view failure to an HTTP status.
func (s *Server) writeViewError(w http.ResponseWriter, err error) {
	if errors.Is(err, dashboard.ErrNoSnapshot) {
		s.writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.logger.Error("Failed to build view", "error", err)
	s.writeError(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	s.writeJSONStatus(w, http.StatusOK, data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		s.logger.Error("Failed to write error response", "error", err)
	}
}
