package notification

import (
	"context"
	"encoding/json"
	"errors"

	redis "github.com/redis/go-redis/v9"
)

// ChannelPrefix is prepended to the role to form the pub/sub channel.
const ChannelPrefix = "menuya:push:"

type RedisTransport struct {
	client *redis.Client
}

func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

func (t *RedisTransport) Name() string { return "redis" }

func (t *RedisTransport) Deliver(ctx context.Context, msg Message) error {
	if t == nil || t.client == nil {
		return errors.New("redis client not configured")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, ChannelPrefix+msg.Role, payload).Err()
}
