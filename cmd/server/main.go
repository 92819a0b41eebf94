package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vedran77/ourchat/internal/auth"
	"github.com/vedran77/ourchat/internal/config"
	"github.com/vedran77/ourchat/internal/database"
	"github.com/vedran77/ourchat/internal/presence"
	"github.com/vedran77/ourchat/internal/repository"
	"github.com/vedran77/ourchat/internal/repository/badgerstore"
	postgresrepo "github.com/vedran77/ourchat/internal/repository/postgres"
	"github.com/vedran77/ourchat/internal/service"
	"github.com/vedran77/ourchat/internal/transport/http/handlers"
	"github.com/vedran77/ourchat/internal/transport/http/middleware"
	"github.com/vedran77/ourchat/internal/transport/relay"
	"github.com/vedran77/ourchat/internal/transport/ws"
	"github.com/vedran77/ourchat/pkg/log"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := log.Init(log.Config{
		Path:         cfg.LogPath,
		RotationTime: cfg.LogRotation,
		MaxAge:       cfg.LogMaxAge,
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logger := log.Logger("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Real-time
	registry := presence.NewRegistry(cfg.PresenceShards)

	var (
		redisRelay  *relay.Redis
		fanoutRelay ws.Relay
		tracker     ws.PresenceTracker
	)
	if cfg.RedisEnabled {
		redisRelay, err = relay.Connect(ctx, relay.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RelayChannel,
		}, log.Logger("relay"))
		if err != nil {
			return err
		}
		defer redisRelay.Close()
		fanoutRelay = redisRelay
		tracker = redisRelay
		logger.Info("relay enabled", slog.String("addr", cfg.RedisAddr))
	}
	fanout := ws.NewFanout(registry, fanoutRelay, log.Logger("fanout"))

	// Services
	tokens := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(store.Users(), tokens)
	userService := service.NewUserService(store.Users())
	requestService := service.NewRequestService(store, fanout, log.Logger("requests"))
	chatService := service.NewChatService(store, fanout, log.Logger("chats"))

	// Handlers
	wsHandler := ws.NewHandler(registry, fanout, tokens, requestService, ws.HandlerConfig{
		AllowedOrigins: cfg.CORSOrigins,
		SendBuffer:     cfg.WSSendBuffer,
		Tracker:        tracker,
	}, log.Logger("ws"))

	httpLog := log.Logger("http")
	mux := http.NewServeMux()
	handlers.Register(mux, handlers.Handlers{
		Auth:     handlers.NewAuthHandler(authService, cfg.TokenTTL, httpLog),
		Users:    handlers.NewUserHandler(userService, httpLog),
		Requests: handlers.NewRequestHandler(requestService, httpLog),
		Chats:    handlers.NewChatHandler(chatService, httpLog),
		WS:       wsHandler,
	}, middleware.Auth(tokens))

	var h http.Handler = mux
	h = middleware.Logging(httpLog)(h)
	h = middleware.Recovery(httpLog)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if redisRelay != nil {
		g.Go(func() error {
			return redisRelay.Run(gctx, fanout)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverBadger:
		db, err := database.OpenBadger(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("using badger store", slog.String("path", cfg.BadgerPath), slog.Bool("in_memory", cfg.BadgerInMemory))
		return badgerstore.New(db, log.Logger("badger")), nil

	default:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store, err := postgresrepo.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("connected to database", slog.String("host", cfg.DBHost))
		return store, nil
	}
}
