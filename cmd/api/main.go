package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/keffjoons/looksy-backend/internal/http/handlers"
	"github.com/keffjoons/looksy-backend/internal/http/httpapi"
	"github.com/keffjoons/looksy-backend/internal/imaging"
	"github.com/keffjoons/looksy-backend/internal/infra"
	"github.com/keffjoons/looksy-backend/internal/providers/genai"
	"github.com/keffjoons/looksy-backend/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	resolver := imaging.NewResolver(imaging.ResolverOptions{
		FetchTimeout: cfg.OverlayFetchTimeout,
		Logger:       &logger,
	})

	// Without a credential the try-on endpoint answers SERVICE_MISCONFIGURED
	// per request while the rest of the surface stays up.
	var synth handlers.Synthesizer
	if cfg.GeminiAPIKey != "" {
		client, err := genai.NewClient(genai.Options{
			APIKey:         cfg.GeminiAPIKey,
			BaseURL:        cfg.GeminiBaseURL,
			Model:          cfg.GeminiModel,
			Logger:         &logger,
			AttemptTimeout: cfg.SynthesisTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure synthesis client")
		}
		synth = client
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set; try-on requests will fail as misconfigured")
	}

	studio, err := storage.NewStudioStore(cfg.StudioCachePath, cfg.StudioCacheTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize studio store")
	}

	app := &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Resolver: resolver,
		Synth:    synth,
		Studio:   studio,
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
