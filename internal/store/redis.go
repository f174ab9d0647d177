package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps a redis client used by the notification queue.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts. Reads must outlast the
// queue's blocking pop, so the read timeout is left to the caller's context.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  -1,
		WriteTimeout: time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
