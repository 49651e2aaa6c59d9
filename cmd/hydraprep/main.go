// Command hydraprep runs the data-preparation pipeline once.
//
// Usage:
//
//	go run ./cmd/hydraprep \
//	  --raw data/raw \
//	  --out data/processed
//
// Include unstable test runs and write the report workbook:
//
//	go run ./cmd/hydraprep --all --workbook
//
// Record the run in SQLite (requires cgo):
//
//	go run ./cmd/hydraprep --persist --db ./hydraprep.db
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/brunobiangulo/hydraprep"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (JSON)")
		envFile    = flag.String("env-file", ".env", "Optional dotenv file loaded before reading HYDRAPREP_* variables")
		rawDir     = flag.String("raw", "", "Raw data directory (default: data/raw)")
		outDir     = flag.String("out", "", "Processed data directory (default: data/processed)")
		all        = flag.Bool("all", false, "Include test runs where the system was not stable")
		strict     = flag.Bool("strict", false, "Require catalogued sample counts per sensor")
		workbook   = flag.Bool("workbook", false, "Also write report.xlsx")
		persist    = flag.Bool("persist", false, "Record the run in the SQLite store")
		dbPath     = flag.String("db", "", "Path to SQLite database (implies --persist)")
		verbose    = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("loading env file", "path", *envFile, "error", err)
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

	// Flags win over file and environment.
	if *rawDir != "" {
		cfg.RawDir = *rawDir
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *all {
		cfg.StableOnly = false
	}
	if *strict {
		cfg.StrictSampling = true
	}
	if *workbook {
		cfg.Workbook = true
	}
	if *persist {
		cfg.Persist = true
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
		cfg.Persist = true
	}

	p, err := hydraprep.New(cfg)
	if err != nil {
		slog.Error("creating pipeline", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := p.Run(ctx)
	if err != nil {
		slog.Error("run failed", "error", err)
		p.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		slog.Error("encoding result", "error", err)
		os.Exit(1)
	}
}
