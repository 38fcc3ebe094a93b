// cmd/lottery-service/wire.go
package main

import (
	"context"
	"fmt"
	"time"

	"promo-lottery/internal/pkg/bootstrap"
	"promo-lottery/internal/pkg/logger"
	"promo-lottery/internal/pkg/mq"
	pkgredis "promo-lottery/internal/pkg/redis"
	"promo-lottery/internal/service/lottery/application"
	"promo-lottery/internal/service/lottery/domain"
	"promo-lottery/internal/service/lottery/domain/port"
	"promo-lottery/internal/service/lottery/infrastructure"
	"promo-lottery/internal/service/lottery/infrastructure/adapter"
	"promo-lottery/internal/service/lottery/infrastructure/filter"
	"promo-lottery/internal/service/lottery/interfaces"
	"promo-lottery/internal/zookeeper"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

// closer 在关停时释放外部连接
type closer func(ctx context.Context)

func registerLottery(appCtx bootstrap.AppCtx) (func(ctx context.Context), error) {
	svc, closers, err := buildService(context.Background(), appCtx.Config, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	interfaces.NewLotteryHandler(svc).RegisterRoutes(appCtx.Mux)

	return func(ctx context.Context) { runClosers(ctx, closers) }, nil
}

// runClosers 按创建的逆序释放
func runClosers(ctx context.Context, closers []closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i](ctx)
	}
}

// buildService 按配置组装存储、锁和事件发布，返回服务和需要在关停时调用的清理函数
func buildService(ctx context.Context, cfg bootstrap.Config, reg prometheus.Registerer) (*application.LotteryService, []closer, error) {
	var closers []closer
	wired := false
	defer func() {
		if !wired {
			runClosers(ctx, closers)
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	window, err := domain.ParseEventWindow(cfg.Event.Start, cfg.Event.End, loc)
	if err != nil {
		return nil, nil, err
	}
	policy := application.EventPolicy{
		Window: window,
		Limits: domain.PrizeLimits{First: cfg.Event.FirstPrizeLimit, Second: cfg.Event.SecondPrizeLimit},
	}

	repo, members, closeStorage, err := buildStorage(ctx, cfg.Storage, loc)
	if err != nil {
		return nil, nil, err
	}
	if closeStorage != nil {
		closers = append(closers, closeStorage)
	}

	locker, closeLocker, err := buildLocker(ctx, cfg.Lock)
	if err != nil {
		return nil, nil, err
	}
	if closeLocker != nil {
		closers = append(closers, closeLocker)
	}

	var publisher port.ParticipationPublisher
	if cfg.Kafka.Enabled {
		writer := mq.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = adapter.NewParticipationKafkaPublisher(writer)
		closers = append(closers, func(context.Context) {
			if err := writer.Close(); err != nil {
				logger.L().Error().Err(err).Msg("Error closing kafka writer")
			}
		})
	}

	compiler, err := filter.NewCELFilterCompiler()
	if err != nil {
		return nil, nil, err
	}

	svc, err := application.NewLotteryService(policy, application.Dependencies{
		Participations: repo,
		Members:        members,
		Locker:         adapter.WithWaitTimeout(locker, cfg.Lock.WaitTimeout),
		Publisher:      publisher,
		Filters:        compiler,
		Metrics:        application.NewMetrics(reg),
		Tracer:         otel.Tracer(serviceName),
		WriteTimeout:   cfg.Event.WriteTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.L().Info().
		Str("event_start", cfg.Event.Start).
		Str("event_end", cfg.Event.End).
		Str("timezone", loc.String()).
		Str("storage", cfg.Storage.Driver).
		Str("lock", cfg.Lock.Backend).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("Lottery service wired")
	wired = true
	return svc, closers, nil
}

func buildStorage(ctx context.Context, cfg bootstrap.StorageConfig, loc *time.Location) (domain.ParticipationRepository, domain.MemberDirectory, closer, error) {
	seeds := make([]domain.Member, 0, len(cfg.SeedMembers))
	for _, m := range cfg.SeedMembers {
		seeds = append(seeds, domain.Member{ID: m.ID, Username: m.Username, Name: m.Name})
	}

	if cfg.Driver == "memory" {
		return infrastructure.NewInMemoryParticipationRepository(), infrastructure.NewInMemoryMemberDirectory(seeds...), nil, nil
	}

	db, err := infrastructure.OpenDatabase(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func(context.Context) {
		if err := sqlDB.Close(); err != nil {
			logger.L().Error().Err(err).Msg("Error closing database")
		}
	}
	if len(seeds) > 0 {
		if err := infrastructure.SeedMembers(ctx, db, seeds); err != nil {
			closeDB(ctx)
			return nil, nil, nil, err
		}
	}
	return infrastructure.NewGormParticipationRepository(db, loc), infrastructure.NewGormMemberDirectory(db), closeDB, nil
}

func buildLocker(ctx context.Context, cfg bootstrap.LockConfig) (port.Locker, closer, error) {
	switch cfg.Backend {
	case "local":
		return adapter.NewLocalLocker(), nil, nil
	case "redis":
		client, err := pkgredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		locker, err := adapter.NewRedisLocker(client, cfg.TTL)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return locker, func(context.Context) { _ = client.Close() }, nil
	case "zookeeper":
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Zookeeper.SessionTimeout)
		defer cancel()
		conn, err := zookeeper.Connect(connectCtx, cfg.Zookeeper.Servers, cfg.Zookeeper.SessionTimeout)
		if err != nil {
			return nil, nil, err
		}
		return adapter.NewZookeeperLocker(conn), func(context.Context) { conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}
