package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lmrun/internal/errs"
	"lmrun/internal/manager"
	"lmrun/internal/monitor"
	"lmrun/internal/session"
	"lmrun/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
	Ready() bool
	Generate(ctx context.Context, req manager.GenerateRequest, onPiece func(string) error) (session.Result, error)
	EnsureModel(ctx context.Context, modelID string) error
	Switch(modelID string)
	Sampling() session.SamplingParams
	UpdateSampling(ctx context.Context, update func(*session.SamplingParams)) (session.SamplingParams, error)
	ClearCache(ctx context.Context) error
	Hardware(ctx context.Context) manager.HardwareReport
	Stats(ctx context.Context) monitor.PerformanceStats
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(corsMiddleware())
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := handlers{svc: svc}
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/status", h.status)
	r.Get("/hardware", h.hardware)
	r.Get("/stats", h.stats)
	r.Get("/sampling", h.getSampling)
	r.Put("/sampling", h.putSampling)
	r.Post("/cache/clear", h.clearCache)
	r.Post("/model", h.loadModel)
	r.Post("/generate", h.generate)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// healthz godoc
// @Summary Liveness probe
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (h handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readyz godoc
// @Summary Readiness probe; 503 until a model is loaded
// @Produce plain
// @Success 200 {string} string "ready"
// @Failure 503 {string} string "loading"
// @Router /readyz [get]
func (h handlers) readyz(w http.ResponseWriter, _ *http.Request) {
	if h.svc.Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("loading"))
}

// status godoc
// @Summary Session and queue status
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func (h handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// hardware godoc
// @Summary Detected GPUs, cores and the recommended hardware config
// @Produce json
// @Success 200 {object} types.HardwareResponse
// @Router /hardware [get]
func (h handlers) hardware(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Hardware(r.Context()).Response())
}

// stats godoc
// @Summary Resource usage snapshot
// @Produce json
// @Success 200 {object} types.StatsResponse
// @Router /stats [get]
func (h handlers) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manager.StatsView(h.svc.Stats(r.Context())))
}

// getSampling godoc
// @Summary Current sampling parameters
// @Produce json
// @Success 200 {object} types.SamplingResponse
// @Router /sampling [get]
func (h handlers) getSampling(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, manager.SamplingView(h.svc.Sampling()))
}

// putSampling godoc
// @Summary Update sampling parameters; omitted fields are kept
// @Accept json
// @Produce json
// @Param body body types.SamplingRequest true "Sampling parameters"
// @Success 200 {object} types.SamplingResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 429 {object} types.ErrorResponse
// @Router /sampling [put]
func (h handlers) putSampling(w http.ResponseWriter, r *http.Request) {
	var req types.SamplingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateSampling(r.Context(), func(p *session.SamplingParams) {
		if req.Temperature != nil {
			p.Temperature = float32(*req.Temperature)
		}
		if req.TopP != nil {
			p.TopP = float32(*req.TopP)
		}
		if req.TopK != nil {
			p.TopK = *req.TopK
		}
		if req.Seed != nil {
			p.Seed = *req.Seed
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, manager.SamplingView(p))
}

// clearCache godoc
// @Summary Drop the KV cache of the loaded model
// @Success 204
// @Failure 503 {object} types.ErrorResponse
// @Router /cache/clear [post]
func (h handlers) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCache(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadModel godoc
// @Summary Load a model by registry name or file path
// @Accept json
// @Produce json
// @Param body body types.LoadRequest true "Model to load"
// @Success 200 {object} types.StatusResponse
// @Success 202 {object} types.StatusResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse
// @Router /model [post]
func (h handlers) loadModel(w http.ResponseWriter, r *http.Request) {
	var req types.LoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	if req.Async {
		h.svc.Switch(req.Model)
		writeJSON(w, http.StatusAccepted, h.svc.Status())
		return
	}
	start := time.Now()
	lvl := requestLogLevel(r)
	ctx, cancel := requestContext(r.Context(), 0)
	defer cancel()
	if err := h.svc.EnsureModel(ctx, req.Model); err != nil {
		status := writeError(w, err)
		logEnd(r, lvl, status, start, err)
		return
	}
	logEnd(r, lvl, http.StatusOK, start, nil)
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// generate godoc
// @Summary Generate a continuation of the prompt
// @Description With stream=true the response is NDJSON: one {"text"} line per
// @Description piece, then a final line with done=true and usage.
// @Accept json
// @Produce json
// @Produce application/x-ndjson
// @Param body body types.GenerateRequest true "Generation request"
// @Success 200 {object} types.GenerateResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 429 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /generate [post]
func (h handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Basic validation
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	maxTokens := session.DefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens < 1 || maxTokens > session.MaxTokensLimit {
		writeError(w, errs.InvalidArgument("max_tokens must be in 1..%d, got %d", session.MaxTokensLimit, maxTokens))
		return
	}

	start := time.Now()
	lvl := requestLogLevel(r)
	rid := middleware.GetReqID(r.Context())
	if lvl >= LevelInfo {
		ev := zlog.Info().Str("path", r.URL.Path).Str("model", req.Model).Int("max_tokens", maxTokens).Bool("stream", req.Stream)
		if rid != "" {
			ev = ev.Str("request_id", rid)
		}
		ev.Msg("generate start")
	}
	// Server shutdown cancels work too.
	ctx, cancel := requestContext(r.Context(), generateTimeout)
	defer cancel()

	mreq := manager.GenerateRequest{Model: req.Model, Prompt: req.Prompt, MaxTokens: maxTokens}
	var stream *ndjsonStream
	var onPiece func(string) error
	if req.Stream {
		stream = newNDJSONStream(w)
		if lvl >= LevelDebug {
			stream.tee(&loggingLineWriter{requestID: rid})
		}
		onPiece = func(piece string) error {
			return stream.send(types.GenerateChunk{Text: piece})
		}
	}

	res, err := h.svc.Generate(ctx, mreq, onPiece)
	// If the client went away there is nobody to answer.
	if r.Context().Err() != nil {
		logEnd(r, lvl, 499, start, r.Context().Err())
		return
	}
	final := types.GenerateResponse{
		Text:         res.Text,
		FinishReason: res.FinishReason,
		Usage: types.Usage{
			PromptTokens:     res.PromptTokens,
			CompletionTokens: res.CompletionTokens,
			TotalTokens:      res.PromptTokens + res.CompletionTokens,
		},
		TokensPerSecond: res.TokensPerSecond(),
		DurationMS:      res.Duration.Milliseconds(),
	}
	if stream != nil && stream.started {
		// Headers are out; report the outcome in the final line.
		final.Text = ""
		final.Done = true
		if err != nil {
			final.Error = err.Error()
		}
		_ = stream.send(final)
		logEnd(r, lvl, http.StatusOK, start, err)
		return
	}
	if err != nil {
		status := writeError(w, err)
		logEnd(r, lvl, status, start, err)
		return
	}
	if stream != nil {
		final.Done = true
		_ = stream.send(final)
	} else {
		writeJSON(w, http.StatusOK, final)
	}
	logEnd(r, lvl, http.StatusOK, start, nil)
}

// decodeJSON enforces the content type and body limit, then decodes into v.
// It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Oversized bodies also land here; report them as plain bad JSON.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// ndjsonStream writes one JSON value per line, sending headers lazily so
// errors that happen before any output can still get a proper status.
type ndjsonStream struct {
	w       http.ResponseWriter
	out     io.Writer
	flush   func()
	started bool
}

func newNDJSONStream(w http.ResponseWriter) *ndjsonStream {
	s := &ndjsonStream{w: w, out: w, flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		s.flush = f.Flush
	}
	return s
}

func (s *ndjsonStream) tee(extra io.Writer) { s.out = io.MultiWriter(s.w, extra) }

func (s *ndjsonStream) send(v any) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "application/x-ndjson")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if err := json.NewEncoder(s.out).Encode(v); err != nil {
		return err
	}
	s.flush()
	return nil
}
