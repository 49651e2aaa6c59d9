package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brunobiangulo/hydraprep"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("loading .env", "error", err)
	}

	cfg := hydraprep.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = hydraprep.LoadConfigFile(*configPath); err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		slog.Error("reading environment", "error", err)
		os.Exit(1)
	}
	// Run queries need the store.
	cfg.Persist = true

	apiKey := os.Getenv("HYDRAPREP_API_KEY")
	corsOrigins := os.Getenv("HYDRAPREP_CORS_ORIGINS")

	pipeline, err := hydraprep.New(cfg)
	if err != nil {
		slog.Error("creating pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	h := newHandler(pipeline, cfg)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /process", h.handleProcess)
	mux.HandleFunc("GET /runs", h.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", h.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/fault-classes", h.handleFaultClasses)
	mux.HandleFunc("GET /runs/{id}/test-runs/{row}", h.handleTestRun)
	mux.HandleFunc("GET /runs/{id}/test-runs/{row}/similar", h.handleSimilar)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // a full run can take minutes
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
