// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package api serves the REST interface: tiering history and statistics,
// manual preview/execute/scan, configuration, logs and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coldmove/coldmove/internal/build"
	"github.com/coldmove/coldmove/internal/config"
	"github.com/coldmove/coldmove/internal/journal"
	"github.com/coldmove/coldmove/internal/orchestrator"
	"github.com/coldmove/coldmove/internal/slogutil"
	"github.com/coldmove/coldmove/internal/telemetry"
	"github.com/coldmove/coldmove/internal/tier"
)

const defaultListLimit = 100

type Service struct {
	addr     string
	cfg      *config.Wrapper
	provider telemetry.Provider
	db       *journal.DB
	orch     *orchestrator.Orchestrator

	// started is only set when run by the tests; it receives the actual
	// listen address.
	started chan string
}

func New(addr string, cfg *config.Wrapper, provider telemetry.Provider, db *journal.DB, orch *orchestrator.Orchestrator) *Service {
	return &Service{
		addr:     addr,
		cfg:      cfg,
		provider: provider,
		db:       db,
		orch:     orch,
	}
}

func (s *Service) String() string {
	return fmt.Sprintf("api.Service@%p", s)
}

// Serve listens on the configured address until the context is cancelled.
// It implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	defer listener.Close()

	srv := http.Server{
		Handler:     s.handler(),
		ReadTimeout: 15 * time.Second,
		// The things we care about we log ourselves from the handlers.
		ErrorLog: log.New(io.Discard, "", 0),
	}

	slog.InfoContext(ctx, "API listening", slog.String("address", listener.Addr().String()))
	if s.started != nil {
		select {
		case s.started <- listener.Addr().String():
		case <-ctx.Done():
		}
	}

	serveError := make(chan error, 1)
	go func() {
		serveError <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveError:
		slog.WarnContext(ctx, "API server failed", slogutil.Error(err))
	}

	timeout, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(timeout); err == timeout.Err() {
		srv.Close()
	}
	return err
}

func (s *Service) handler() http.Handler {
	restMux := httprouter.New()

	// The GET handlers
	restMux.HandlerFunc(http.MethodGet, "/rest/system/ping", s.restPing)            // -
	restMux.HandlerFunc(http.MethodGet, "/rest/system/version", s.getVersion)       // -
	restMux.HandlerFunc(http.MethodGet, "/rest/system/log", s.getLog)               // [since]
	restMux.HandlerFunc(http.MethodGet, "/rest/system/error", s.getErrors)          // [since]
	restMux.HandlerFunc(http.MethodGet, "/rest/config", s.getConfig)                // -
	restMux.HandlerFunc(http.MethodGet, "/rest/tier/shares", s.getShares)           // -
	restMux.HandlerFunc(http.MethodGet, "/rest/tier/movements", s.getMovements)     // [limit]
	restMux.HandlerFunc(http.MethodGet, "/rest/tier/evaluations", s.getEvaluations) // [share] [limit]
	restMux.HandlerFunc(http.MethodGet, "/rest/tier/summaries", s.getSummaries)     // [share] [limit]
	restMux.HandlerFunc(http.MethodGet, "/rest/tier/stats", s.getStats)             // [since]
	restMux.HandlerFunc(http.MethodGet, "/rest/tier/decisions", s.getDecisions)     // [limit]

	// The POST handlers
	restMux.HandlerFunc(http.MethodPost, "/rest/system/ping", s.restPing)       // -
	restMux.HandlerFunc(http.MethodPost, "/rest/tier/scan", s.postScan)         // [share]
	restMux.HandlerFunc(http.MethodPost, "/rest/tier/preview", s.postPreview)   // <body>
	restMux.HandlerFunc(http.MethodPost, "/rest/tier/execute", s.postExecute)   // <body>
	restMux.HandlerFunc(http.MethodPost, "/rest/tier/archive", s.postArchive)   // <body>
	restMux.HandlerFunc(http.MethodPost, "/rest/tier/restore", s.postRestore)   // <body>
	restMux.HandlerFunc(http.MethodPut, "/rest/config", s.putConfig)            // <body>
	restMux.HandlerFunc(http.MethodPost, "/rest/system/error/clear", s.clearErrors)

	mux := http.NewServeMux()
	mux.Handle("/rest/", noCacheMiddleware(restMux))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Service) restPing(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, map[string]string{"ping": "pong"})
}

func (s *Service) getVersion(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, map[string]string{
		"name":        build.ProgramName,
		"version":     build.Version,
		"commit":      build.Commit,
		"longVersion": build.LongVersion(),
	})
}

func (s *Service) getLog(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string][]slogutil.Line{
		"messages": slogutil.GlobalRecorder.Since(sinceParam(r)),
	})
}

func (s *Service) getErrors(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string][]slogutil.Line{
		"errors": slogutil.ErrorRecorder.Since(sinceParam(r)),
	})
}

func (s *Service) clearErrors(w http.ResponseWriter, _ *http.Request) {
	slogutil.ErrorRecorder.Clear()
	w.WriteHeader(http.StatusOK)
}

func (s *Service) getConfig(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, s.cfg.Snapshot())
}

func (s *Service) putConfig(w http.ResponseWriter, r *http.Request) {
	// Same strict decode as the settings file: unknown keys are rejected.
	cfg, err := config.Read(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.cfg.Replace(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sendJSON(w, cfg)
}

func (s *Service) getShares(w http.ResponseWriter, r *http.Request) {
	shares, err := s.provider.Shares(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	sendJSON(w, shares)
}

func (s *Service) getMovements(w http.ResponseWriter, r *http.Request) {
	recs, err := s.db.RecentMovements(limitParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sendJSON(w, recs)
}

func (s *Service) getEvaluations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.db.RecentEvaluations(r.URL.Query().Get("share"), limitParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sendJSON(w, recs)
}

func (s *Service) getSummaries(w http.ResponseWriter, r *http.Request) {
	recs, err := s.db.RecentSummaries(r.URL.Query().Get("share"), limitParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sendJSON(w, recs)
}

func (s *Service) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats(sinceParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sendJSON(w, map[string]interface{}{
		"archivedCount": stats.ArchivedCount,
		"archivedBytes": stats.ArchivedBytes,
		"restoredCount": stats.RestoredCount,
		"restoredBytes": stats.RestoredBytes,
	})
}

func (s *Service) getDecisions(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, s.orch.RecentDecisions(limitParam(r)))
}

func (s *Service) postScan(w http.ResponseWriter, r *http.Request) {
	if share := r.URL.Query().Get("share"); share != "" {
		entry, err := s.orch.ScanShare(r.Context(), share)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		sendJSON(w, []tier.DecisionLogEntry{entry})
		return
	}
	select {
	case entries := <-s.orch.TriggerScan():
		sendJSON(w, entries)
	case <-r.Context().Done():
		http.Error(w, r.Context().Err().Error(), http.StatusRequestTimeout)
	}
}

// planRequest is the body of the manual preview and execute operations.
type planRequest struct {
	Share     string       `json:"share"`
	Filters   tier.Filters `json:"filters"`
	Blacklist []string     `json:"blacklist,omitempty"`
}

func (s *Service) postPreview(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.orch.Preview(r.Context(), req.Share, req.Filters, req.Blacklist)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	sendJSON(w, res)
}

func (s *Service) postExecute(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.orch.Execute(r.Context(), req.Share, req.Filters, req.Blacklist)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	sendJSON(w, res)
}

// pathsRequest is the body of the direct archive and restore operations.
type pathsRequest struct {
	Share string   `json:"share,omitempty"`
	Paths []string `json:"paths"`
}

func (s *Service) postArchive(w http.ResponseWriter, r *http.Request) {
	var req pathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.orch.ArchivePaths(r.Context(), req.Share, req.Paths)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	sendJSON(w, res)
}

func (s *Service) postRestore(w http.ResponseWriter, r *http.Request) {
	var req pathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.orch.RestorePaths(r.Context(), req.Paths)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sendJSON(w, res)
}

func limitParam(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return defaultListLimit
}

func sinceParam(r *http.Request) time.Time {
	t, _ := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
	return t
}

func sendJSON(w http.ResponseWriter, jsonObject interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	// Marshalling might fail, in which case we should return a 500 with the
	// actual error.
	bs, err := json.MarshalIndent(jsonObject, "", "  ")
	if err != nil {
		bs, _ = json.Marshal(map[string]string{"error": err.Error()})
		http.Error(w, string(bs), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "%s\n", bs)
}

func noCacheMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		h.ServeHTTP(w, r)
	})
}
