package main

import (
	"context"
	"fmt"

	"github.com/noteduco342/OMGroups-backend/internal/broker"
	"github.com/noteduco342/OMGroups-backend/internal/cache"
	"github.com/noteduco342/OMGroups-backend/internal/config"
	"github.com/noteduco342/OMGroups-backend/internal/handlers/ws"
	"github.com/noteduco342/OMGroups-backend/internal/repository"
	"github.com/noteduco342/OMGroups-backend/internal/repository/mongorepo"
	"github.com/noteduco342/OMGroups-backend/internal/service"
	"go.uber.org/zap"
)

type stores struct {
	users    repository.UserRepositoryInterface
	groups   repository.GroupRepositoryInterface
	messages repository.MessageRepositoryInterface
	close    func(context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info("document store ready", zap.String("driver", "mongo"), zap.String("database", cfg.MongoDatabase))
		return &stores{
			users:    mongorepo.NewUserStore(db),
			groups:   mongorepo.NewGroupStore(db, cfg.OptimisticLocking),
			messages: mongorepo.NewMessageStore(db),
			close:    client.Disconnect,
		}, nil

	default:
		db, err := repository.InitDB(cfg.PostgresDSN(), log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres handle: %w", err)
		}
		log.Info("document store ready", zap.String("driver", "postgres"), zap.String("database", cfg.DBName))
		return &stores{
			users:    repository.NewUserRepository(db),
			groups:   repository.NewGroupRepository(db, cfg.OptimisticLocking),
			messages: repository.NewMessageRepository(db),
			close:    func(context.Context) error { return sqlDB.Close() },
		}, nil
	}
}

// openRedis connects only when a component needs Redis.
func openRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*cache.RedisCache, error) {
	if !cfg.HistoryCache && cfg.Broker != config.BrokerRedis {
		return nil, nil
	}
	rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	return rc, nil
}

// roomChannel is a notifier that must be run to receive events published by
// other instances.
type roomChannel interface {
	service.Notifier
	Run(ctx context.Context) error
}

// openNotifier returns the notifier message sends publish to. With the local
// broker the hub itself is the notifier and run is nil.
func openNotifier(cfg *config.Config, hub *ws.Hub, rc *cache.RedisCache, log *zap.Logger) (service.Notifier, roomChannel, func(), error) {
	switch cfg.Broker {
	case config.BrokerRedis:
		ch := broker.NewRedisChannel(rc.Client(), hub, log)
		return ch, ch, func() {}, nil
	case config.BrokerNATS:
		ch, err := broker.NewNATSChannel(cfg.NATSURL, hub, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return ch, ch, ch.Close, nil
	default:
		return hub, nil, func() {}, nil
	}
}
