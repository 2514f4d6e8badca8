package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"techkwiz-quiz-service/internal/app"
	"techkwiz-quiz-service/internal/config"
	"techkwiz-quiz-service/internal/infra/memory"
	pgstore "techkwiz-quiz-service/internal/infra/postgres"
	redisstore "techkwiz-quiz-service/internal/infra/redis"
	"techkwiz-quiz-service/internal/infra/sqlite"
	transport "techkwiz-quiz-service/internal/transport/http"
)

// storage is the set of backends selected by config.
type storage struct {
	kv       app.KVStore
	sessions app.SessionRepository
	checks   map[string]transport.Checker
	closers  []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	st := &storage{checks: make(map[string]transport.Checker)}

	redisClient, err := openRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var redisKV *redisstore.KVStore
	if redisClient != nil {
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
		redisKV = redisstore.NewKVStore(redisClient)
		st.checks["redis"] = transport.CheckFunc(redisKV.Ping)
		ttl := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
		st.sessions = redisstore.NewSessionStore(redisClient, ttl, logger)
	} else {
		st.sessions = memory.NewSessionStore()
	}

	switch cfg.Storage.Driver {
	case "", "memory":
		st.kv = memory.NewKVStore()
	case "redis":
		if redisClient == nil {
			st.Close()
			return nil, errors.New("storage driver redis needs redis.addr or redis.url")
		}
		st.kv = redisKV
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			st.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)
		kv := pgstore.NewKVStore(pool)
		st.checks["postgres"] = transport.CheckFunc(kv.Ping)
		st.kv = kv
	case "sqlite":
		kv, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		st.closers = append(st.closers, func() { _ = kv.Close() })
		st.checks["sqlite"] = transport.CheckFunc(kv.Ping)
		st.kv = kv
	default:
		st.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	logger.Info("storage ready", "driver", cfg.Storage.Driver, "redis_sessions", redisClient != nil)
	return st, nil
}

// openRedis returns nil when Redis is not configured.
func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	var opt *redis.Options
	switch {
	case cfg.Redis.URL != "":
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opt = parsed
	case cfg.Redis.Addr != "":
		opt = &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
	default:
		return nil, nil
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}
