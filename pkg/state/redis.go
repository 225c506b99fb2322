package state

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// KeyPrefix starts every webhook record key in Redis.
const KeyPrefix = "netsendo:webhook:"

const (
	fieldWebhookID = "webhookId"
	fieldSecret    = "webhookSecret"
)

// RedisStore keeps records as Redis hashes so that several bridge replicas
// share them.
type RedisStore struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		logger: log.With().Str("component", "state").Logger(),
	}
}

func (s *RedisStore) key(k NodeKey) string {
	return KeyPrefix + k.String()
}

// Load reads the record for key.
func (s *RedisStore) Load(ctx context.Context, key NodeKey) (WebhookRecord, error) {
	if err := key.Validate(); err != nil {
		return WebhookRecord{}, err
	}

	fields, err := s.redis.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return WebhookRecord{}, fmt.Errorf("redis hgetall: %w", err)
	}

	return WebhookRecord{
		WebhookID: fields[fieldWebhookID],
		Secret:    fields[fieldSecret],
	}, nil
}

// Save overwrites the record for key.
func (s *RedisStore) Save(ctx context.Context, key NodeKey, rec WebhookRecord) error {
	if err := key.Validate(); err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, s.key(key))
	pipe.HSet(ctx, s.key(key), fieldWebhookID, rec.WebhookID, fieldSecret, rec.Secret)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}

	s.logger.Debug().Str("node", key.String()).Str("webhook_id", rec.WebhookID).Msg("Webhook record saved")
	return nil
}

// Clear removes the record for key.
func (s *RedisStore) Clear(ctx context.Context, key NodeKey) error {
	if err := key.Validate(); err != nil {
		return err
	}

	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	s.logger.Debug().Str("node", key.String()).Msg("Webhook record cleared")
	return nil
}
