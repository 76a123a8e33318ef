// Package handler implements the request-handling core: normalization,
// adapter resolution, the streaming generation loop and response encoding.
package handler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/adapters"
	"inferd/internal/engine"
	"inferd/internal/sampling"
)

// Format selects the wire encoding of driver output.
type Format int

const (
	// FormatMinimal is the lightweight {text, tokens} shape.
	FormatMinimal Format = iota
	// FormatCompletion is the completion protocol with envelope metadata.
	FormatCompletion
)

// IntermediateSink delivers partial results ahead of the final response.
// Payloads and request ids are parallel slices, one element per request.
type IntermediateSink interface {
	Send(payloads []string, requestIDs []string, status string, code int) error
}

// RequestContext carries per-request plumbing supplied by the host transport.
type RequestContext struct {
	// RequestID is minted by the transport; empty means the handler assigns one.
	RequestID string
	Format    Format
	// Sink receives partial results when the request streams. May be nil.
	Sink IntermediateSink
	// Disconnected reports whether the downstream consumer has gone away.
	// Nil means "still connected".
	Disconnected func() bool
}

// Config bundles handler construction inputs.
type Config struct {
	// Model is the served model name. When empty, ModelPath relative to
	// ModelDir is resolved instead.
	Model     string
	ModelDir  string
	ModelPath string
	// Adapters maps adapter names to paths relative to ModelDir.
	Adapters map[string]string
	Engine   engine.Engine
	Metrics  Metrics
	Logger   zerolog.Logger
}

// Handler drives one generation request at a time from raw payload to
// encoded response. The adapter identity table lives for the handler's
// lifetime; everything else is per-request.
type Handler struct {
	engine   engine.Engine
	model    string
	modelDir string
	adapters map[string]string
	registry *adapters.Registry
	defaults sampling.Params
	metrics  Metrics
	log      zerolog.Logger
}

// New constructs a Handler. It fails when no model is configured: the served
// model name is either given explicitly or derived from ModelDir/ModelPath,
// falling back to the bare path when the joined path does not exist.
func New(cfg Config) (*Handler, error) {
	model := cfg.Model
	if model == "" {
		if cfg.ModelPath == "" {
			return nil, ErrMissingModelConfiguration()
		}
		model = filepath.Join(cfg.ModelDir, cfg.ModelPath)
		if _, err := os.Stat(model); err != nil {
			cfg.Logger.Debug().Str("path", model).Msg("model path does not exist locally, using it without model dir prefix")
			model = cfg.ModelPath
		}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = PromMetrics{}
	}
	return &Handler{
		engine:   cfg.Engine,
		model:    model,
		modelDir: cfg.ModelDir,
		adapters: cfg.Adapters,
		registry: adapters.NewRegistry(),
		defaults: sampling.Defaults(),
		metrics:  metrics,
		log:      cfg.Logger.With().Str("component", "handler").Logger(),
	}, nil
}

// Model returns the served model name reported in completion envelopes.
func (h *Handler) Model() string { return h.model }

// SetEngine installs the generation engine. Construction resolves the model
// name first so the engine can be built against it.
func (h *Handler) SetEngine(e engine.Engine) { h.engine = e }

// Ready reports whether the handler can accept requests.
func (h *Handler) Ready() bool { return h.engine != nil }

// Handle processes exactly one generation request and returns exactly one
// encoded output element. The HandlerTime metric is recorded on every path,
// including failures.
func (h *Handler) Handle(ctx context.Context, payloads [][]byte, rctx *RequestContext) (out []string, err error) {
	start := time.Now()
	defer func() {
		h.metrics.AddTime("HandlerTime", roundMs(time.Since(start)))
	}()
	if rctx == nil {
		rctx = &RequestContext{}
	}
	req, err := h.normalize(payloads, rctx)
	if err != nil {
		return nil, err
	}
	final, err := h.drive(ctx, req, rctx)
	if err != nil {
		h.log.Error().Err(err).Str("request_id", req.id).Msg("generation aborted")
		return nil, err
	}
	return []string{final}, nil
}
