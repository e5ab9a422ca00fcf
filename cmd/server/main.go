package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Callroom/internal/adapters/http"
	"github.com/dkeye/Callroom/internal/app"
	"github.com/dkeye/Callroom/internal/app/orch"
	"github.com/dkeye/Callroom/internal/config"
	"github.com/dkeye/Callroom/internal/core"
	"github.com/dkeye/Callroom/internal/history"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	var store core.HistoryStore
	if cfg.HistoryDSN != "" {
		db, err := history.Open(cfg.HistoryDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("call history")
		}
		s, err := history.NewStore(db)
		if err != nil {
			log.Fatal().Err(err).Msg("call history")
		}
		store = s
	}

	manager := app.NewRoomManager()
	reg := app.NewRegistry(manager)
	calls := app.NewCallTable(time.Now)
	o := orch.New(reg, calls, app.SimplePolicy{}, cfg.EventQueue)
	o.RingTimeout = cfg.RingTimeout
	if store != nil {
		o.History = store
	}

	r := router.SetupRouter(ctx, cfg, o, store)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.Run(gctx) })
	g.Go(func() error { return o.RunReaper(gctx, cfg.ReapInterval) })
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Callroom server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
