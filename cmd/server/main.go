package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/chat"
	"github.com/campuslink/campuslink/internal/server"
	"github.com/campuslink/campuslink/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := server.NewConfigFromEnv()
	if cfg.SecretKey == "" {
		logger.Fatal().Msg("SECRET_KEY must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := store.Connect(ctx, cfg.MongoURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to mongodb")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Warn().Err(err).Msg("disconnecting from mongodb")
		}
	}()

	tenants := store.NewTenantStore(client, logger)
	authenticator := auth.NewAuthenticator(cfg.SecretKey, cfg.TokenTTL)
	registry := chat.NewRegistry(logger)

	srv := server.New(*cfg, logger, authenticator, tenants, registry)
	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	go func() {
		logger.Info().Str("addr", cfg.Port).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown")
	}
	registry.Drain(websocket.CloseGoingAway, "server shutting down")
	if !registry.Wait(shutdownTimeout) {
		logger.Warn().Int("remaining", registry.Len()).Msg("sessions still draining at shutdown deadline")
	}

	logger.Info().Msg("shutdown complete")
}
