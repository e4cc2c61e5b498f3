package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brunobiangulo/tabclean"
	"github.com/brunobiangulo/tabclean/chart"
	"github.com/brunobiangulo/tabclean/clean"
	"github.com/brunobiangulo/tabclean/export"
	"github.com/brunobiangulo/tabclean/logging"
	"github.com/brunobiangulo/tabclean/parser"
)

type server struct {
	sess    tabclean.Session
	cfg     tabclean.Config
	metrics *metrics
}

func newServer(sess tabclean.Session, cfg tabclean.Config) *server {
	return &server{sess: sess, cfg: cfg, metrics: newMetrics()}
}

// routes builds the router.
// Middleware chain: request id -> recovery -> logging -> cors -> rate limit -> auth.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoveryMiddleware)
	r.Use(s.logMiddleware)
	r.Use(corsMiddleware(s.cfg.CORSOrigins))
	r.Use(s.rateLimitMiddleware(s.cfg.RateLimit, s.cfg.RateBurst))
	r.Use(authMiddleware(s.cfg.APIKey))

	r.Post("/load", s.handleLoad)
	r.Post("/clean", s.handleClean)
	r.Post("/save", s.handleSave)
	r.Post("/visualize", s.handleVisualize)
	r.Post("/restore", s.handleRestore)
	r.Get("/dataset", s.handleDataset)
	r.Get("/history", s.handleHistory)
	r.Get("/charts", s.handleCharts)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	return r
}

// POST /load
// Accepts multipart file upload or JSON with file path.
func (s *server) handleLoad(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	// Try multipart upload first
	if err := r.ParseMultipartForm(32 << 20); err == nil {
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Keep only the base name; the suffix selects the parser.
			dir, err := os.MkdirTemp("", "tabclean-upload-")
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp dir", "error", err)
				return
			}
			defer os.RemoveAll(dir)

			tmpPath := filepath.Join(dir, filepath.Base(header.Filename))
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return
			}
			dst.Close()

			s.load(ctx, w, tmpPath)
			return
		}
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path'")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.load(ctx, w, req.Path)
}

func (s *server) load(ctx context.Context, w http.ResponseWriter, path string) {
	start := time.Now()
	info, err := s.sess.Load(ctx, path)
	s.metrics.observe("load", start, err)
	if err != nil {
		s.fail(ctx, w, "load", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// POST /clean
func (s *server) handleClean(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Policy string `json:"policy"`
	}
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var decide clean.PolicyFunc
	if req.Policy != "" {
		p, err := clean.ParsePolicy(req.Policy)
		if err != nil {
			s.fail(r.Context(), w, "clean", err)
			return
		}
		decide = clean.Fixed(p)
	} else if p, ok, err := s.cfg.Policy(); err == nil && ok {
		decide = clean.Fixed(p)
	} else {
		// No policy: only tables without missing cells pass.
		decide = func(context.Context, int) (clean.Policy, error) {
			return 0, errPolicyRequired
		}
	}

	start := time.Now()
	rep, err := s.sess.Clean(r.Context(), decide)
	s.metrics.observe("clean", start, err)
	if err != nil {
		s.fail(r.Context(), w, "clean", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

var errPolicyRequired = errors.New("policy is required: the dataset has missing values (use \"drop\" or \"fill\")")

// POST /save
func (s *server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	path, err := s.outputPath(req.Path)
	if err != nil {
		s.fail(r.Context(), w, "save", err)
		return
	}

	start := time.Now()
	err = s.sess.Save(r.Context(), path)
	s.metrics.observe("save", start, err)
	if err != nil {
		s.fail(r.Context(), w, "save", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "path": path})
}

var errOutsideOutputDir = errors.New("path must be relative and stay inside the output directory")

// outputPath resolves a client supplied save path inside cfg.OutputDir.
func (s *server) outputPath(p string) (string, error) {
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("%w: %q", errOutsideOutputDir, p)
	}
	full := filepath.Join(s.cfg.OutputDir, p)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	return full, nil
}

// POST /visualize
// Responds with the ECharts option JSON or the PNG/SVG bytes.
func (s *server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chart  string `json:"chart"`
		Format string `json:"format,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	kind, err := chart.ParseKind(req.Chart)
	if err != nil {
		s.fail(r.Context(), w, "visualize", err)
		return
	}

	var buf bytes.Buffer
	start := time.Now()
	contentType, err := s.sess.Visualize(r.Context(), kind, req.Format, &buf)
	s.metrics.observe("visualize", start, err)
	if err != nil {
		s.fail(r.Context(), w, "visualize", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// POST /restore
func (s *server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	start := time.Now()
	info, err := s.sess.Restore(r.Context(), req.ID)
	s.metrics.observe("restore", start, err)
	if err != nil {
		s.fail(r.Context(), w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GET /dataset
func (s *server) handleDataset(w http.ResponseWriter, r *http.Request) {
	info, err := s.sess.Summary()
	if err != nil {
		s.fail(r.Context(), w, "dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GET /history
func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ops, err := s.sess.History(r.Context())
	if err != nil {
		s.fail(r.Context(), w, "history", err)
		return
	}
	snaps, err := s.sess.Snapshots(r.Context())
	if err != nil {
		s.fail(r.Context(), w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": s.sess.ID(),
		"operations": ops,
		"snapshots":  snaps,
	})
}

// GET /charts
func (s *server) handleCharts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"charts":  chart.Kinds(),
		"formats": []string{chart.FormatECharts, chart.FormatPNG, chart.FormatSVG},
	})
}

// GET /health
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// fail logs err and writes the user-facing notice with a matching status.
func (s *server) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	log := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		log.Error(op+" error", "error", err)
	} else {
		log.Info(op+" rejected", "status", status, "error", err)
	}
	msg := tabclean.Notice(err)
	switch {
	case errors.Is(err, errPolicyRequired):
		msg = errPolicyRequired.Error()
	case errors.Is(err, errOutsideOutputDir):
		msg = errOutsideOutputDir.Error()
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tabclean.ErrNoDataset):
		return http.StatusConflict
	case errors.Is(err, tabclean.ErrHistoryDisabled),
		errors.Is(err, tabclean.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, parser.ErrIO):
		return http.StatusBadRequest
	case errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, export.ErrUnsupportedTarget),
		errors.Is(err, chart.ErrUnknownChart),
		errors.Is(err, chart.ErrRenderUnsupported),
		errors.Is(err, clean.ErrInvalidPolicy),
		errors.Is(err, errPolicyRequired):
		return http.StatusBadRequest
	case errors.Is(err, parser.ErrParse),
		errors.Is(err, parser.ErrEmptyData),
		errors.Is(err, parser.ErrNoExtractableText),
		errors.Is(err, parser.ErrNoStructuredData),
		errors.Is(err, chart.ErrShapeMismatch),
		errors.Is(err, chart.ErrNoData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeOptional decodes a JSON body, treating an empty body as {}.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding response", "error", err)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
