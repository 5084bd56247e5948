package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/carevault/medreports/internal/model"
)

// RedisStore keeps the slot under a fixed Redis key. Convenient when the OCR
// queue already requires a Redis instance.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore constructs a RedisStore around an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: SlotKey}
}

// Load fetches and decodes the slot value.
func (s *RedisStore) Load(ctx context.Context) (model.Collection, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Collection{}, nil
		}
		return nil, fmt.Errorf("get slot key: %w", err)
	}
	return decode(data), nil
}

// Save replaces the slot value. No expiry; the slot lives as long as the app.
func (s *RedisStore) Save(ctx context.Context, col model.Collection) error {
	data, err := encode(col)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set slot key: %w", err)
	}
	return nil
}
