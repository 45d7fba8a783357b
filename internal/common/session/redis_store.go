package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "trialscreen/internal/common/errors"
	"trialscreen/internal/common/logger"
)

const keyPrefix = "session:"

// RedisStore keeps session contexts in redis with a TTL refreshed on save.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "session-store"}),
	}
}

// Load returns the stored context for id, or a zero anonymous context when
// no session exists.
func (s *RedisStore) Load(ctx context.Context, id string) (*Context, error) {
	val, err := s.client.Get(ctx, keyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Context{}, nil
		}
		return nil, apperrors.NewSessionUnavailable(err)
	}

	var sc Context
	if err := json.Unmarshal([]byte(val), &sc); err != nil {
		s.logger.Warn("discarding corrupt session record", map[string]interface{}{
			"sessionId": id,
			"error":     err.Error(),
		})
		return &Context{}, nil
	}
	return &sc, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, sc *Context) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return apperrors.NewSessionUnavailable(err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		return apperrors.NewSessionUnavailable(err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return apperrors.NewSessionUnavailable(err)
	}
	return nil
}
