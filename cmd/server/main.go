// Command server runs the anonymous chat relay bot: it opens the
// Postgres-backed Store, connects to the Telegram bot API, and drives
// every inbound update through the Dispatcher in its own goroutine
// (spec.md §5) while a small health HTTP surface runs alongside it.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/randompartner/chatrelay/internal/config"
	"github.com/randompartner/chatrelay/internal/db"
	"github.com/randompartner/chatrelay/internal/dispatcher"
	"github.com/randompartner/chatrelay/internal/healthapi"
	"github.com/randompartner/chatrelay/internal/matcher"
	"github.com/randompartner/chatrelay/internal/relay"
	"github.com/randompartner/chatrelay/internal/store"
	"github.com/randompartner/chatrelay/internal/telegram"
)

func main() {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "chatrelay").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	// Pretty logging for local dev (only when explicitly set to "dev")
	if cfg.IsDevMode() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	if !cfg.ArchiveEnabled() {
		log.Warn().Msg("LOG_CHANNEL_ID not set; archive side-channel disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to verify schema")
	}

	tg, err := telegram.New(cfg.BotToken, cfg.ChannelID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to telegram")
	}

	m := matcher.New(st)
	r := relay.New(st, tg, tg, cfg.LogChannelID)
	d := dispatcher.New(st, m, r, tg, tg, cfg.AdminID)

	healthSrv := &healthapi.Server{DB: pool}
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      healthSrv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)

	// HTTP health surface
	group.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting health HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Telegram long-poll loop: one goroutine per inbound update so a slow
	// Store or platform call for one user never stalls another
	// (spec.md §5).
	group.Go(func() error {
		updates, err := tg.Updates(gctx)
		if err != nil {
			return err
		}
		log.Info().Msg("listening for telegram updates")
		for {
			select {
			case <-gctx.Done():
				return nil
			case upd, ok := <-updates:
				if !ok {
					return nil
				}
				ev, recognized := telegram.EventFromUpdate(upd)
				if !recognized {
					continue
				}
				go d.Handle(context.Background(), ev)
			}
		}
	})

	// Shutdown coordinator: stop the HTTP server as soon as the root
	// context is cancelled (signal or a group member's error).
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("health server shutdown error")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
