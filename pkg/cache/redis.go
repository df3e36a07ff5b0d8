package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/result-portal-api/pkg/config"
)

const (
	clientName   = "result-portal-transcripts"
	pingTimeout  = 5 * time.Second
	opTimeout    = 500 * time.Millisecond
	dialTimeout  = 2 * time.Second
	maxOpRetries = 1
)

// Options maps the Redis settings onto a client tuned for the transcript
// cache. Reads and writes fail fast so a slow Redis degrades to a database
// load instead of stalling the request.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  dialTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		MaxRetries:   maxOpRetries,
	}
}

// NewRedis connects the transcript cache client and verifies it with a ping.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}
