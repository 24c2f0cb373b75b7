package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/marketsync/internal/app"
	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/interfaces"
)

func main() {
	configPath := os.Getenv("MARKETSYNC_CONFIG")

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	common.PrintBanner(a.Config, a.Logger)

	a.StartScheduler()

	mux := buildMux(a.SyncService, a.Store, a.Logger)

	host := a.Config.Server.Host
	port := a.Config.Server.Port

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		a.Logger.Info().Int("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	a.Logger.Info().
		Str("url", fmt.Sprintf("http://localhost:%d", port)).
		Msg("Server ready")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	common.PrintShutdownBanner(a.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	a.Close()
	a.Logger.Info().Msg("Server stopped")
}

// buildMux creates the HTTP mux with the operational endpoints.
func buildMux(syncService interfaces.SyncService, store interfaces.RefStore, logger *common.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", healthHandler)
	mux.HandleFunc("GET /api/version", versionHandler)
	mux.HandleFunc("GET /api/sync/reports", reportsHandler(store, logger))

	mux.HandleFunc("POST /api/sync", runHandler(logger, func(r *http.Request) (any, error) {
		return syncService.SyncAll(r.Context())
	}))
	mux.HandleFunc("POST /api/sync/refresh", runHandler(logger, func(r *http.Request) (any, error) {
		return syncService.ResyncStored(r.Context())
	}))
	mux.HandleFunc("POST /api/sync/exchange/{code}", runHandler(logger, func(r *http.Request) (any, error) {
		return syncService.ResyncExchange(r.Context(), r.PathValue("code"))
	}))

	return mux
}

// healthHandler responds to GET /api/health with {"status":"ok"}.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// versionHandler responds to GET /api/version with version info.
func versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// reportsHandler returns the most recent sync run reports.
func reportsHandler(store interfaces.RefStore, logger *common.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := store.ListSyncReports(r.Context(), 20)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list sync reports")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, reports)
	}
}

// runHandler executes a pipeline run and returns its report. A run failure
// still carries the partial report in the response body.
func runHandler(logger *common.Logger, run func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := run(r)
		if err != nil {
			logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Sync run failed")
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":  err.Error(),
				"report": report,
			})
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
