package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"photomotion/internal/generation"
	"photomotion/internal/http/handlers"
	"photomotion/internal/http/httpapi"
	"photomotion/internal/infra"
	"photomotion/internal/infra/credentials"
	"photomotion/internal/infra/geoip"
	"photomotion/internal/middleware"
	"photomotion/internal/providers/veo"
	"photomotion/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Credential source: Postgres when configured, process memory otherwise.
	var source credentials.Source
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		pg := credentials.NewPGSource(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure credential schema")
		}
		source = pg
	} else {
		source = credentials.NewMemorySource(cfg.GeminiAPIKey)
	}

	gate := credentials.NewGate(source)
	if gate.Check(ctx) != credentials.PresencePresent {
		logger.Warn().Msg("no api key present; generation is blocked until one is selected")
	}

	client := veo.NewClient(veo.Options{
		APIKeyFunc: gate.Key,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.VeoModel,
		Resolution: cfg.VeoResolution,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		Logger:     &logger,
	})

	pipeline := generation.NewPipeline(generation.Options{
		Client:       client,
		Gate:         gate,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.PollMaxAttempts,
	})

	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.Run(ctx)

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	app := handlers.NewApp(logger, gate, sessions, pipeline, cfg.MaxUploadBytes)
	router := httpapi.NewRouter(app, logger, cfg, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("model", client.Model()).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
