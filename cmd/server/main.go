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

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/api"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/auth"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/chatcache"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/config"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/db"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/presence"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/room"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/session"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/sweep"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/users"
	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console output until the config says otherwise, so config.Load can log.
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.Log)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server exited gracefully")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		log.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func run(ctx context.Context, cfg *config.Config) error {
	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()

	var (
		cache     *chatcache.Cache
		chatStore session.ChatCache
	)
	if cfg.Redis.Addr != "" {
		cache, err = chatcache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Chat.HistoryLimit)
		if err != nil {
			// The cache is an optimization; run on the store alone.
			log.Error().Err(err).Str("module", "main").Msg("chat cache disabled")
		} else {
			defer cache.Close()
			chatStore = cache
		}
	}

	hub := ws.NewHub()
	rooms := room.NewManager()

	coordinator := session.New(session.Deps{
		Store:     database,
		Users:     users.NewDirectory(database),
		Presence:  presence.NewRegistry(),
		Rooms:     rooms,
		Bus:       hub,
		ChatCache: chatStore,
	}, session.Config{
		ChatMinInterval:  cfg.Chat.MinInterval,
		ChatMaxLength:    cfg.Chat.MaxLength,
		ChatHistoryLimit: cfg.Chat.HistoryLimit,
	})
	defer coordinator.Close()

	wsServer := ws.NewServer(hub, coordinator, auth.NewJWTResolver(cfg.JWTSecret), ws.Config{
		ReadLimit:         cfg.WS.ReadLimit,
		SendBuffer:        cfg.WS.SendBuffer,
		MessagesPerSecond: cfg.WS.MessagesPerSecond,
		MessageBurst:      cfg.WS.MessageBurst,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
	})

	apiHandler := api.New(hub, database, coordinator)
	if cache != nil {
		apiHandler.WithCache(cache)
	}

	sweeper := sweep.New(rooms, hub.IsActive, sweep.Config{
		Interval:  cfg.Sweep.Interval,
		IdleAfter: cfg.Sweep.IdleAfter,
	})
	sweeper.Start()
	defer sweeper.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(log.Logger, apiHandler, wsServer, cfg.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", addr).Str("mode", cfg.Mode).Str("db", cfg.DBPath).
			Bool("chat_cache", cache != nil).Msg("whiteboard server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
