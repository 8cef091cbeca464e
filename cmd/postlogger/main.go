package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/akave-ai/postlogger/internal/config"
	"github.com/akave-ai/postlogger/internal/logger"
	"github.com/akave-ai/postlogger/internal/observability"
	"github.com/akave-ai/postlogger/internal/server"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("could not load config")
	}

	log := logger.New(cfg.Observability)

	nrApp, err := observability.NewApplication(cfg.Observability)
	if err != nil {
		log.Warn().Err(err).Msg("new relic disabled")
		nrApp = nil
	}
	if nrApp != nil {
		defer nrApp.Shutdown(5 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, log, nrApp)
	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("shut down")
}
