package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geoglitch/presence-service/config"
	"github.com/geoglitch/presence-service/internal/logger"
	"github.com/geoglitch/presence-service/internal/postgres"
	"github.com/geoglitch/presence-service/internal/service"
	grpcx "github.com/geoglitch/presence-service/internal/transport/grpc"
	httpx "github.com/geoglitch/presence-service/internal/transport/http"
	"github.com/geoglitch/presence-service/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:              logger.ParseEnv(cfg.Logging.Env),
		Service:          cfg.Logging.Service,
		Version:          cfg.Logging.Version,
		Backend:          logger.Backend(cfg.Logging.Backend),
		Level:            logger.ParseLevel(cfg.Logging.Level),
		AddSource:        cfg.Logging.AddSource,
		Debug:            cfg.Logging.Debug,
		SampleInitial:    cfg.Logging.SampleInitial,
		SampleThereafter: cfg.Logging.SampleThereafter,
	})
	slog.Info("starting presence-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("presence-service failed", "err", err)
		os.Exit(1)
	}
	slog.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	registry := service.NewRegistry()

	// --- presence journal (optional) ---
	var journal *service.Journal
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.OpenJournalPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		journal = service.NewJournal(
			postgres.NewEventRepository(pool),
			cfg.Presence.JournalQueueSize,
			cfg.Presence.JournalTimeout,
		)
		slog.Info("presence journal enabled")
	}

	ice, err := cfg.WebRTC.PionICEServers()
	if err != nil {
		return fmt.Errorf("webrtc: %w", err)
	}

	// --- relay ---
	hub := ws.NewHub(registry)
	router := ws.NewRouter(registry, hub, journal)
	wsServer := ws.NewServer(hub, registry, router, journal, ws.Options{
		PingInterval:      cfg.WS.PingInterval,
		WriteTimeout:      cfg.WS.WriteTimeout,
		MaxMessageBytes:   cfg.WS.MaxMessageBytes,
		MessagesPerSecond: cfg.WS.MessagesPerSecond,
		Burst:             cfg.WS.Burst,
		SendQueueSize:     cfg.WS.SendQueueSize,
		AllowedOrigins:    cfg.WS.AllowedOrigins,
	})

	// --- HTTP ---
	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpx.NewRouter(httpx.Deps{
			Handler: httpx.NewHandler(registry, ice),
			WSPath:  cfg.WS.Path,
			WS:      wsServer.HandleWS,
			CORS: httpx.CORS{
				AllowedOrigins:   cfg.CORS.AllowedOrigins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           cfg.CORS.MaxAge,
			},
			RequestTimeout: cfg.HTTP.RequestTimeout,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr, "ws_path", cfg.WS.Path)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- gRPC (optional) ---
	grpcServer, healthSrv := grpcx.New(registry, cfg.GRPC.DefaultTimeout)
	if cfg.GRPC.Addr != "" {
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	journalCtx, stopJournal := context.WithCancel(context.Background())
	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		if journal != nil {
			_ = journal.Run(journalCtx)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
	case runErr = <-errCh:
		slog.Error("server error", "err", runErr)
	}

	// --- graceful shutdown ---
	healthSrv.Shutdown()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	if err := wsServer.Shutdown(ctxShutdown); err != nil {
		slog.Warn("ws shutdown", "err", err, "open", hub.Len())
	}
	grpcServer.GracefulStop()

	stopJournal()
	<-journalDone

	return runErr
}
