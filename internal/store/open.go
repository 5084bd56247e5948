package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/carevault/medreports/internal/config"
	"github.com/carevault/medreports/internal/database"
)

// Open builds the configured backend. The returned closer releases backend
// resources and is safe to call once.
func Open(ctx context.Context, cfg *config.Config) (RecordStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return NewFileStore(cfg.StorePath), func() {}, nil
	case config.BackendMemory:
		return NewMemoryStore(), func() {}, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client), func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return NewPostgresStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
