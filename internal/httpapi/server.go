package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"genloop/internal/manager"
	"genloop/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool

	Reinit(ctx context.Context, req types.ReinitRequest) error
	Deinit(ctx context.Context) error
	Infer(ctx context.Context, req types.QueryRequest, w io.Writer, flush func()) error
	Reset(ctx context.Context) error
	CountTokens(ctx context.Context, text string, addSpecial bool) (int, error)

	SnapshotUpdate(ctx context.Context) (types.SnapshotInfo, error)
	SnapshotRestore(ctx context.Context) error
	SnapshotClear(ctx context.Context) error
	SaveSnapshot(ctx context.Context, name string) (types.SnapshotInfo, error)
	LoadSnapshot(ctx context.Context, name string) (types.SnapshotInfo, error)
	ListSnapshots(ctx context.Context) ([]types.SnapshotInfo, error)
	DeleteSnapshot(ctx context.Context, name string) error
}

type handlers struct{ svc Service }

// NewMux builds the router for svc.
func NewMux(svc Service) http.Handler {
	h := handlers{svc: svc}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/models", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.ListModels()})
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Post("/session", h.reinit)
	r.Delete("/session", h.simple("deinit", svc.Deinit))
	r.Post("/query", h.query)
	r.Post("/reset", h.simple("reset", svc.Reset))
	r.Post("/tokens/count", h.countTokens)

	r.Post("/snapshot", h.snapshotUpdate)
	r.Post("/snapshot/restore", h.simple("snapshot_restore", svc.SnapshotRestore))
	r.Delete("/snapshot", h.simple("snapshot_clear", svc.SnapshotClear))

	r.Get("/snapshots", h.listSnapshots)
	r.Put("/snapshots/{name}", h.named("snapshot_save", svc.SaveSnapshot))
	r.Post("/snapshots/{name}/restore", h.named("snapshot_load", svc.LoadSnapshot))
	r.Delete("/snapshots/{name}", h.deleteSnapshot)

	MountSwagger(r)
	return r
}

// requestContext joins the request context with the server base context so
// shutdown interrupts in-flight work.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return joinContexts(r.Context(), serverBaseCtx)
}

// decodeJSON enforces content type and body limit and decodes into v.
// An empty body leaves v untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if r.ContentLength == 0 && allowEmpty {
		return true
	}
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(ct, "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// simple wraps operations that take no body and return no payload.
func (h handlers) simple(op string, fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		start := time.Now()
		ctx, cancel := requestContext(r)
		defer cancel()
		err := fn(ctx)
		status := http.StatusNoContent
		if err != nil {
			status = writeError(w, err)
		} else {
			w.WriteHeader(status)
		}
		logEnd(r, lvl, op, status, start, err)
	}
}

// named wraps snapshot operations addressed by the {name} URL parameter.
func (h handlers) named(op string, fn func(context.Context, string) (types.SnapshotInfo, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		start := time.Now()
		ctx, cancel := requestContext(r)
		defer cancel()
		info, err := fn(ctx, chi.URLParam(r, "name"))
		status := http.StatusOK
		if err != nil {
			status = writeError(w, err)
		} else {
			writeJSON(w, status, info)
		}
		logEnd(r, lvl, op, status, start, err)
	}
}

func (h handlers) reinit(w http.ResponseWriter, r *http.Request) {
	lvl := requestLogLevel(r)
	start := time.Now()
	var req types.ReinitRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	logStart(r, lvl, "reinit")
	ctx, cancel := requestContext(r)
	defer cancel()
	if err := h.svc.Reinit(ctx, req); err != nil {
		logEnd(r, lvl, "reinit", writeError(w, err), start, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
	logEnd(r, lvl, "reinit", http.StatusOK, start, nil)
}

func (h handlers) query(w http.ResponseWriter, r *http.Request) {
	lvl := requestLogLevel(r)
	start := time.Now()
	var req types.QueryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	logStart(r, lvl, "query")

	ctx, cancel := requestContext(r)
	defer cancel()
	if queryTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, queryTimeout)
		defer tcancel()
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	var out io.Writer = w
	if lvl >= LevelDebug {
		out = io.MultiWriter(w, &loggingLineWriter{reqID: middleware.GetReqID(r.Context())})
	}

	err := h.svc.Infer(ctx, req, out, flush)
	switch {
	case err == nil:
		logEnd(r, lvl, "query", http.StatusOK, start, nil)
	case manager.IsStreamed(err):
		// Headers are gone; the error was reported in the final line.
		logEnd(r, lvl, "query", http.StatusOK, start, err)
	case r.Context().Err() != nil || serverBaseCtx.Err() != nil:
		logEnd(r, lvl, "query", 499, start, err)
	default:
		logEnd(r, lvl, "query", writeError(w, err), start, err)
	}
}

func (h handlers) countTokens(w http.ResponseWriter, r *http.Request) {
	var req types.TokenCountRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	n, err := h.svc.CountTokens(ctx, req.Text, req.AddSpecial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.TokenCountResponse{Tokens: n})
}

func (h handlers) snapshotUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	info, err := h.svc.SnapshotUpdate(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h handlers) listSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	list, err := h.svc.ListSnapshots(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []types.SnapshotInfo{}
	}
	writeJSON(w, http.StatusOK, types.SnapshotsResponse{Snapshots: list})
}

func (h handlers) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	if err := h.svc.DeleteSnapshot(ctx, chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
