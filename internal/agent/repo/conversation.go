package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	errx "github.com/wanderplan/server/internal/core/error"
	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/model"
)

// RedisConversationRepository stores the message log and the travel-context
// snapshot of each conversation under a shared TTL, touched on every write.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) messagesKey(conversationID string) string {
	return fmt.Sprintf("trip:conversation:%s:messages", conversationID)
}

func (r *RedisConversationRepository) contextKey(conversationID string) string {
	return fmt.Sprintf("trip:conversation:%s:context", conversationID)
}

func (r *RedisConversationRepository) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.messagesKey(conversationID)

	// append message
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	return r.touch(ctx, key)
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	key := r.messagesKey(conversationID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.ConversationHistory{ConversationID: conversationID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *RedisConversationRepository) SaveContext(ctx context.Context, conversationID string, travel model.TravelContext) error {
	b, err := json.Marshal(travel)
	if err != nil {
		return fmt.Errorf("marshal travel context: %w", err)
	}
	key := r.contextKey(conversationID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save travel context to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) LoadContext(ctx context.Context, conversationID string) (model.TravelContext, error) {
	key := r.contextKey(conversationID)
	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.NewTravelContext(), nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load travel context from redis")
		return model.TravelContext{}, errx.WrapRedis(err)
	}

	var travel model.TravelContext
	if err := json.Unmarshal([]byte(raw), &travel); err != nil {
		return model.TravelContext{}, fmt.Errorf("unmarshal travel context: %w", err)
	}
	if travel.Stage == "" {
		travel.Stage = model.StageInitial
	}
	return travel, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, conversationID string) error {
	if err := r.rdb.Del(ctx, r.messagesKey(conversationID), r.contextKey(conversationID)).Err(); err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to delete conversation state from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	key := r.messagesKey(conversationID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

// touch extends the TTL after a write.
func (r *RedisConversationRepository) touch(ctx context.Context, key string) error {
	if r.ttl <= 0 {
		return nil
	}
	if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
		return errx.WrapRedis(err)
	} else if !ok {
		logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
	}
	return nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
