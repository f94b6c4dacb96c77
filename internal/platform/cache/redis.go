package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Options configures the redis client backing locks and the job queue.
type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// ClientOptions converts the settings for go-redis and asynq consumers.
func (o Options) ClientOptions() *redis.Options {
	return &redis.Options{
		Addr:        o.Addr,
		Password:    o.Password,
		DB:          o.DB,
		DialTimeout: o.DialTimeout,
	}
}

// QueueOptions returns the same connection settings for asynq.
func (o Options) QueueOptions() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:        o.Addr,
		Password:    o.Password,
		DB:          o.DB,
		DialTimeout: o.DialTimeout,
	}
}

// New creates a client and pings it.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(opts.ClientOptions())

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}

	return client, nil
}

// NewLocker builds a distributed locker on top of the client.
func NewLocker(client *redis.Client) *redislock.Client {
	return redislock.New(client)
}
