package database

import (
	"context"

	"trade-review/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects the stats cache. The application runs without it when
// the connection fails.
func NewRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
