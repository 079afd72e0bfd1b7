package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
)

const (
	messageTTL  = 24 * time.Hour
	sendRateTTL = time.Minute
	sendRateMax = 30 // messages per actor per window
)

// RedisStore is the hot read path for room timelines and the counter
// backend for send throttling. The SQL store stays authoritative; every
// Redis operation here is a best-effort accelerator.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// roomMessagesKey returns the key for a room's message sorted set.
func roomMessagesKey(roomID string) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

// sendRateKey returns the key for an actor's send counter.
func sendRateKey(actorID string) string {
	return fmt.Sprintf("sendrate:%s", actorID)
}

// appendIfCached adds a member to a room set only when the set already
// exists. A room's cache is seeded exclusively by PrimeRoomMessages
// from a full SQL read; appending to a cold key would create a cache
// that silently misses everything persisted before it.
var appendIfCached = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[2])
redis.call("EXPIRE", KEYS[1], ARGV[3])
return 1
`)

// CacheMessage mirrors a freshly persisted message into the room's
// sorted set. Score is the persistence timestamp; the ULID member keeps
// ties in id order. A no-op until the room has been primed.
func (s *RedisStore) CacheMessage(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := roomMessagesKey(msg.RoomID.String())
	return appendIfCached.Run(ctx, s.client, []string{key},
		msg.SentAt.UnixMilli(), string(data), int(messageTTL.Seconds())).Err()
}

// PrimeRoomMessages replaces a room's cache with an authoritative SQL
// read. A message that races the replace is caught by the caller's
// completeness check on the next poll, which re-primes.
func (s *RedisStore) PrimeRoomMessages(ctx context.Context, roomID string, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	members := make([]redis.Z, 0, len(msgs))
	for i := range msgs {
		data, err := json.Marshal(&msgs[i])
		if err != nil {
			return err
		}
		members = append(members, redis.Z{
			Score:  float64(msgs[i].SentAt.UnixMilli()),
			Member: string(data),
		})
	}

	key := roomMessagesKey(roomID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.ZAdd(ctx, key, members...)
	pipe.Expire(ctx, key, messageTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetRoomMessages returns the cached timeline oldest-first, or nil when
// the room is not cached (callers fall back to the SQL store). A member
// that fails to decode poisons the whole read: the key is dropped and
// an error returned, so callers serve SQL instead of a partial
// timeline.
func (s *RedisStore) GetRoomMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	key := roomMessagesKey(roomID)

	results, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			s.client.Del(ctx, key)
			return nil, fmt.Errorf("decode cached message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// AllowSend increments the actor's send counter and reports whether the
// send is within the per-minute budget.
func (s *RedisStore) AllowSend(ctx context.Context, actorID string) (bool, error) {
	key := sendRateKey(actorID)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, sendRateTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= sendRateMax, nil
}
