// Package httpapi exposes the generation handler over HTTP. Two routes feed
// the same handler with different encodings: /predictions uses the minimal
// format, /v1/completions the completion protocol.
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
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/handler"
	"inferd/pkg/types"
)

// Service is what the HTTP layer needs from the generation pipeline.
// The micro-batching wrapper satisfies it.
type Service interface {
	Handle(ctx context.Context, payloads [][]byte, rctxs []*handler.RequestContext) ([]string, error)
	Ready() bool
}

func NewMux(svc Service, modelName string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/predictions", predictHandler(svc, handler.FormatMinimal))
	r.Post("/v1/completions", predictHandler(svc, handler.FormatCompletion))

	r.Get("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.ModelList{
			Object: "list",
			Data:   []types.ModelInfo{{ID: modelName, Object: "model"}},
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// predictHandler runs one generation request through the service, streaming
// intermediate chunks when the payload asks for them.
func predictHandler(svc Service, format handler.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		// The transport only needs the stream flag; everything else is the
		// handler's business.
		var probe struct {
			Stream bool `json:"stream"`
		}
		_ = json.Unmarshal(body, &probe)

		requestID := middleware.GetReqID(r.Context())
		if requestID == "" {
			requestID = "cmpl-" + uuid.NewString()
		}

		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}

		rctx := &handler.RequestContext{
			RequestID:    requestID,
			Format:       format,
			Disconnected: func() bool { return r.Context().Err() != nil },
		}
		if probe.Stream {
			if format == handler.FormatMinimal {
				w.Header().Set("Content-Type", "application/x-ndjson")
				rctx.Sink = &streamSink{w: w, flush: flush, sep: "\n"}
			} else {
				w.Header().Set("Content-Type", "text/event-stream")
				w.Header().Set("Cache-Control", "no-cache")
				rctx.Sink = &streamSink{w: w, flush: flush}
			}
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		if lvl >= LevelInfo {
			zlog.Info().Str("path", r.URL.Path).Str("request_id", requestID).Bool("stream", probe.Stream).Msg("generation start")
		}

		// Join server base context with request context so shutdown cancels
		// in-flight work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		out, err := svc.Handle(ctx, [][]byte{body}, []*handler.RequestContext{rctx})
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				// Client went away or the server is shutting down.
				return
			}
			status := statusForError(err)
			writeJSONError(w, status, err.Error())
			if lvl >= LevelInfo {
				zlog.Info().Int("status", status).Str("request_id", requestID).Dur("dur", time.Since(start)).Err(err).Msg("generation end")
			}
			return
		}

		final := ""
		if len(out) > 0 {
			final = out[0]
		}
		switch {
		case probe.Stream && format == handler.FormatMinimal:
			_, _ = io.WriteString(w, final+"\n")
		case probe.Stream:
			_, _ = io.WriteString(w, final) // already SSE framed
		case format == handler.FormatMinimal:
			w.Header().Set("Content-Type", "application/x-ndjson")
			_, _ = io.WriteString(w, final+"\n")
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, final)
		}
		if flush != nil {
			flush()
		}
		if lvl >= LevelInfo {
			zlog.Info().Int("status", http.StatusOK).Str("request_id", requestID).Dur("dur", time.Since(start)).Msg("generation end")
		}
	}
}

// streamSink writes intermediate chunks straight to the HTTP response.
// Minimal chunks get a newline separator; completion chunks arrive framed.
type streamSink struct {
	w     io.Writer
	flush func()
	sep   string
}

func (s *streamSink) Send(payloads []string, _ []string, _ string, _ int) error {
	for _, p := range payloads {
		if _, err := io.WriteString(s.w, p+s.sep); err != nil {
			return err
		}
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}
