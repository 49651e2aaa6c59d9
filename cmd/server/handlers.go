package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brunobiangulo/hydraprep"
)

type handler struct {
	pipeline hydraprep.Pipeline
	cfg      hydraprep.Config
}

func newHandler(p hydraprep.Pipeline, cfg hydraprep.Config) *handler {
	return &handler{pipeline: p, cfg: cfg}
}

// POST /process
// JSON body; every field is optional and falls back to the server config.
func (h *handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req struct {
		RawDir     string `json:"raw_dir"`
		OutputDir  string `json:"output_dir"`
		StableOnly *bool  `json:"stable_only"`
		Workbook   *bool  `json:"workbook"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request: expected JSON body")
		return
	}

	var opts []hydraprep.RunOption
	if req.RawDir != "" {
		absPath, err := filepath.Abs(req.RawDir)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid raw_dir")
			return
		}
		info, err := os.Stat(absPath)
		if err != nil || !info.IsDir() {
			writeError(w, http.StatusBadRequest, "raw_dir must be an existing directory")
			return
		}
		opts = append(opts, hydraprep.WithRawDir(absPath))
	}
	if req.OutputDir != "" {
		dir, err := resolveOutputDir(h.cfg.OutputDir, req.OutputDir)
		if err != nil {
			writeError(w, http.StatusBadRequest, "output_dir must be inside the configured output directory")
			return
		}
		opts = append(opts, hydraprep.WithOutputDir(dir))
	}
	if req.StableOnly != nil {
		opts = append(opts, hydraprep.WithStableOnly(*req.StableOnly))
	}
	if req.Workbook != nil {
		opts = append(opts, hydraprep.WithWorkbook(*req.Workbook))
	}

	res, err := h.pipeline.Run(ctx, opts...)
	if err != nil {
		slog.Error("process error", "error", err)
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// resolveOutputDir places dir under base. Relative paths are joined to
// base; absolute paths must already lie inside it.
func resolveOutputDir(base, dir string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	target := dir
	if !filepath.IsAbs(target) {
		target = filepath.Join(absBase, target)
	}
	target = filepath.Clean(target)
	rel, err := filepath.Rel(absBase, target)
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("output_dir %q escapes %s", dir, absBase)
	}
	return target, nil
}

// GET /runs
func (h *handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.pipeline.Runs(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), "failed to list runs")
		slog.Error("list runs error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// GET /runs/{id}
func (h *handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.pipeline.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GET /runs/{id}/fault-classes
func (h *handler) handleFaultClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.pipeline.FaultClasses(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fault_classes": classes,
	})
}

// GET /runs/{id}/test-runs/{row}
func (h *handler) handleTestRun(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(r.PathValue("row"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid test run row")
		return
	}
	t, err := h.pipeline.TestRun(r.Context(), r.PathValue("id"), row)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GET /runs/{id}/test-runs/{row}/similar?k=5
func (h *handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(r.PathValue("row"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid test run row")
		return
	}
	k := 5
	if v := r.URL.Query().Get("k"); v != "" {
		if k, err = strconv.Atoi(v); err != nil || k <= 0 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
	}
	neighbors, err := h.pipeline.SimilarTestRuns(r.Context(), r.PathValue("id"), row, k)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"row_index": row,
		"neighbors": neighbors,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"raw_dir":     h.cfg.RawDir,
		"output_dir":  h.cfg.OutputDir,
		"stable_only": h.cfg.StableOnly,
	})
}

// errorStatus maps pipeline errors to HTTP status codes.
func errorStatus(err error) int {
	var (
		missing   *hydraprep.MissingSourceError
		malformed *hydraprep.MalformedSourceError
		unmapped  *hydraprep.UnmappedFaultValueError
		mismatch  *hydraprep.RowCountMismatchError
	)
	switch {
	case errors.Is(err, hydraprep.ErrRunNotFound), errors.Is(err, hydraprep.ErrTestRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, hydraprep.ErrStoreDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, hydraprep.ErrPublishFailed):
		return http.StatusBadGateway
	case errors.As(err, &missing), errors.As(err, &malformed),
		errors.As(err, &unmapped), errors.As(err, &mismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
