package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/engine"
	"inferd/internal/handler"
	"inferd/internal/httpapi"
	"inferd/internal/microbatch"
	"inferd/internal/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inferd:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var flags config.Config
	cmd := &cobra.Command{
		Use:           "inferd",
		Short:         "Streaming text-generation handler daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := flags
			if cfgPath != "" {
				fileCfg, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = merge(fileCfg, flags)
			}
			return run(cfg)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&cfgPath, "config", envOr("INFERD_CONFIG", ""), "Path to a yaml/json/toml config file")
	fl.StringVar(&flags.Addr, "addr", envOr("INFERD_ADDR", ""), "HTTP listen address, e.g. :8080")
	fl.StringVar(&flags.ModelDir, "model-dir", envOr("INFERD_MODEL_DIR", ""), "Directory holding model artifacts")
	fl.StringVar(&flags.Model, "model", envOr("INFERD_MODEL", ""), "Served model name")
	fl.StringVar(&flags.ModelPath, "model-path", "", "Model path relative to --model-dir, used when --model is empty")
	fl.StringVar(&flags.AdaptersFile, "adapters-file", "", "Adapter name -> relative path map (yaml or json)")
	fl.StringVar(&flags.EngineURL, "engine-url", envOr("INFERD_ENGINE_URL", ""), "Base URL of the generation engine backend")
	fl.StringVar(&flags.EngineAPIKey, "engine-api-key", envOr("INFERD_ENGINE_API_KEY", ""), "Bearer token for the engine backend")
	fl.StringVar(&flags.LogLevel, "log-level", envOr("INFERD_LOG_LEVEL", ""), "Log level: debug, info, warn, error")
	fl.Int64Var(&flags.MaxBodyBytes, "max-body-bytes", 0, "Maximum request body size in bytes")
	fl.BoolVar(&flags.CORSEnabled, "cors-enabled", false, "Enable CORS middleware")
	fl.StringSliceVar(&flags.CORSOrigins, "cors-origins", nil, "Allowed CORS origins, e.g. '*'")
	return cmd
}

// merge overlays non-zero flag values onto the file config.
func merge(base, over config.Config) config.Config {
	if over.Addr != "" {
		base.Addr = over.Addr
	}
	if over.ModelDir != "" {
		base.ModelDir = over.ModelDir
	}
	if over.Model != "" {
		base.Model = over.Model
	}
	if over.ModelPath != "" {
		base.ModelPath = over.ModelPath
	}
	if over.AdaptersFile != "" {
		base.AdaptersFile = over.AdaptersFile
	}
	if over.EngineURL != "" {
		base.EngineURL = over.EngineURL
	}
	if over.EngineAPIKey != "" {
		base.EngineAPIKey = over.EngineAPIKey
	}
	if over.LogLevel != "" {
		base.LogLevel = over.LogLevel
	}
	if over.MaxBodyBytes != 0 {
		base.MaxBodyBytes = over.MaxBodyBytes
	}
	if over.CORSEnabled {
		base.CORSEnabled = true
	}
	if len(over.CORSOrigins) > 0 {
		base.CORSOrigins = over.CORSOrigins
	}
	return base
}

func run(cfg config.Config) error {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.EngineURL == "" {
		cfg.EngineURL = "http://127.0.0.1:8000"
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	modelDir, err := registry.ExpandHome(cfg.ModelDir)
	if err != nil {
		return err
	}
	adapterMap, err := registry.LoadAdapters(cfg.AdaptersFile)
	if err != nil {
		return err
	}

	h, err := handler.New(handler.Config{
		Model:     cfg.Model,
		ModelDir:  modelDir,
		ModelPath: cfg.ModelPath,
		Adapters:  adapterMap,
		Metrics:   handler.PromMetrics{},
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	h.SetEngine(engine.NewHTTPEngine(cfg.EngineURL, cfg.EngineAPIKey, h.Model(), 0, 5*time.Second, logger))

	batcher := microbatch.New(h, microbatch.LoadConfig(modelDir, logger))

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	if cfg.CORSEnabled {
		origins := cfg.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		httpapi.SetCORSOptions(true, origins,
			[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
			[]string{"Content-Type", "Authorization"})
	}
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(batcher, h.Model())}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("model", h.Model()).Str("engine_url", cfg.EngineURL).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
