// Package app wires the availability engine from configuration. It is
// shared by the API server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-availability/internal/availability"
	"github.com/hackgods/clinic-availability/internal/config"
	"github.com/hackgods/clinic-availability/internal/db"
	redisclient "github.com/hackgods/clinic-availability/internal/redis"
)

type Deps struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client // nil unless the redis cache is in use
	Service *availability.Service
}

// Open connects Postgres and, for the redis cache backend, Redis. An
// unreachable Redis degrades to the in-process cache instead of failing.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger, observer availability.Observer) (*Deps, error) {
	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.WithMaxConnsForWorkers(cfg.DateWorkers))
	cancelPg()
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}
	logger.Info().Msg("connected to Postgres")

	d := &Deps{Pool: pool}

	opts := []availability.Option{availability.WithLogger(logger)}
	if observer != nil {
		opts = append(opts, availability.WithObserver(observer))
	}

	var txLog availability.TransformationLog
	if cfg.TransformationLog {
		txLog = availability.NewZerologTransformationLog(logger)
	}
	opts = append(opts, availability.WithValidator(availability.NewValidator(txLog, observer)))

	switch cfg.CacheBackend {
	case config.CacheRedis:
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-process cache")
			opts = append(opts, availability.WithCache(availability.NewMemoryCache()))
			break
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
		d.Redis = rdb
		opts = append(opts,
			availability.WithCache(availability.NewEncodedCache(redisclient.NewStore(rdb, "clinic:"))),
			availability.WithLocker(redisclient.NewRedisKeyLocker(rdb, cfg.LockTTL)),
		)
	case config.CacheMemory:
		opts = append(opts, availability.WithCache(availability.NewMemoryCache()))
	}

	d.Service = availability.NewService(availability.NewPgRepository(pool), availability.Config{
		DefaultDuration:    cfg.DefaultSlotDuration,
		MinimumNoticeHours: cfg.MinimumNoticeHours,
		MaxRangeDays:       cfg.MaxRangeDays,
		DateWorkers:        cfg.DateWorkers,
		CacheTTL:           cfg.CacheTTL,
		LookaheadDays:      cfg.LookaheadDays,
		Location:           cfg.ClinicTimezone,
	}, opts...)

	return d, nil
}

func (d *Deps) Close() error {
	var err error
	if d.Redis != nil {
		err = d.Redis.Close()
	}
	d.Pool.Close()
	return err
}
