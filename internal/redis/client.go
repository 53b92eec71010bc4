package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPoolSize = 10
	defaultTimeout  = 2 * time.Second
	pingTimeout     = 5 * time.Second
)

// Options carries the connection settings taken from config.Config.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
	PoolSize int           // zero uses defaultPoolSize
	Timeout  time.Duration // dial, read and write; zero uses defaultTimeout
}

func clientOptions(o Options) *redis.Options {
	poolSize := o.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &redis.Options{
		Addr:         o.Addr,
		Username:     o.Username,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	}
}

// NewRedisClient connects and pings before handing the client out.
func NewRedisClient(ctx context.Context, o Options) (*redis.Client, error) {
	rdb := redis.NewClient(clientOptions(o))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", o.Addr, err)
	}

	return rdb, nil
}
