package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quizarena-backend/internal/models"
)

// Channels the websocket hub relays to browsers.
const (
	LeaderboardChannel = "quiz:leaderboard"
	ImportsChannel     = "quiz:imports"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, msg models.WSMessage) error
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(redisClient *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: redisClient}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return p.redis.Publish(ctx, channel, data).Err()
}
