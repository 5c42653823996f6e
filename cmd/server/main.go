package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noteduco342/OMGroups-backend/internal/auth"
	"github.com/noteduco342/OMGroups-backend/internal/cache"
	"github.com/noteduco342/OMGroups-backend/internal/cipher"
	"github.com/noteduco342/OMGroups-backend/internal/config"
	"github.com/noteduco342/OMGroups-backend/internal/handlers"
	"github.com/noteduco342/OMGroups-backend/internal/handlers/ws"
	"github.com/noteduco342/OMGroups-backend/internal/logging"
	"github.com/noteduco342/OMGroups-backend/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	st, err := openStores(startCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn("store close failed", zap.Error(err))
		}
	}()

	rc, err := openRedis(startCtx, cfg, log)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}

	aes, err := cipher.New(cipher.Config{Key: cfg.AESKey, IV: cfg.AESIV})
	if err != nil {
		return err
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	groupService := service.NewGroupService(st.groups, nil)

	var hubOpts []ws.Option
	if cfg.WSRoomMembershipCheck {
		hubOpts = append(hubOpts, ws.WithMembershipCheck(groupService))
	}
	hub := ws.NewHub(log.Named("ws"), hubOpts...)
	defer hub.Close()
	go hub.Run(ctx)

	notifier, channel, closeChannel, err := openNotifier(cfg, hub, rc, log.Named("broker"))
	if err != nil {
		return err
	}
	defer closeChannel()
	if channel != nil {
		go func() {
			if err := channel.Run(ctx); err != nil {
				log.Error("room broker stopped", zap.Error(err))
			}
		}()
	}

	var history service.HistoryCache
	if cfg.HistoryCache {
		history = cache.NewMessageCache(rc)
	}

	authService := service.NewAuthService(st.users, tokens, cfg.BcryptCost, cfg.PasswordMinLength)
	messageService := service.NewMessageService(st.messages, st.groups, aes, notifier, history, nil, cfg.MaxMessageLength)

	app := newApp(cfg, log)
	routes := &handlers.Routes{
		Auth:      handlers.NewAuthHandler(authService),
		Groups:    handlers.NewGroupHandler(groupService),
		Messages:  handlers.NewMessageHandler(messageService),
		WebSocket: handlers.NewWebSocketHandler(hub),
		Tokens:    tokens,
		Origins:   cfg.Origins(),
	}
	routes.Register(app)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreDriver),
			zap.String("broker", cfg.Broker),
			zap.Bool("history_cache", cfg.HistoryCache),
		)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	hub.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	return nil
}
