package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueClientName = "quizarena-queue"
	hubClientName   = "quizarena-hub"

	// Connections left over for request traffic (sessions, locks, facets cache)
	// once every import worker is parked in BLPOP.
	queueHeadroom = 10
	hubPoolSize   = 4
)

// RedisClients splits request/worker traffic from the websocket hub's
// long-lived subscription so neither can starve the other's pool.
type RedisClients struct {
	Queue *redis.Client
	Hub   *redis.Client
}

func NewRedisClients(redisURL string, workers int) (*RedisClients, error) {
	base, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueClient := redis.NewClient(queueOptions(base, workers))
	if err := queueClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (queue): %w", err)
	}

	hubClient := redis.NewClient(hubOptions(base))
	if err := hubClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		hubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (hub): %w", err)
	}

	return &RedisClients{Queue: queueClient, Hub: hubClient}, nil
}

// queueOptions sizes the pool so each import worker can hold a connection
// in BLPOP while handlers still get one.
func queueOptions(base *redis.Options, workers int) *redis.Options {
	opt := *base
	if workers < 1 {
		workers = 1
	}
	opt.ClientName = queueClientName
	opt.PoolSize = workers + queueHeadroom
	opt.MinIdleConns = workers
	return &opt
}

// hubOptions serves the hub's single SUBSCRIBE connection plus the occasional ping.
func hubOptions(base *redis.Options) *redis.Options {
	opt := *base
	opt.ClientName = hubClientName
	opt.PoolSize = hubPoolSize
	opt.MinIdleConns = 0
	return &opt
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.Hub.Close()
}
