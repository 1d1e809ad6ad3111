package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "gradfeed:ratelimit:"

// RedisWindowStore keeps each identifier's window as a sorted set scored by
// request timestamp (unix milliseconds). Members carry a uuid suffix so two
// requests in the same millisecond stay distinct entries.
type RedisWindowStore struct {
	client *redis.Client
}

// NewRedisWindowStore wraps an existing redis client.
func NewRedisWindowStore(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

// PruneCount implements WindowStore atomically via a transactional pipeline.
func (s *RedisWindowStore) PruneCount(ctx context.Context, key string, cutoff time.Time) (int, time.Time, error) {
	rkey := redisKeyPrefix + key

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(cutoff.UnixMilli(), 10))
	countCmd := pipe.ZCard(ctx, rkey)
	oldestCmd := pipe.ZRangeWithScores(ctx, rkey, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit prune %s: %w", key, err)
	}

	var oldest time.Time
	if entries := oldestCmd.Val(); len(entries) > 0 {
		oldest = time.UnixMilli(int64(entries[0].Score))
	}
	return int(countCmd.Val()), oldest, nil
}

// Add implements WindowStore.
func (s *RedisWindowStore) Add(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	rkey := redisKeyPrefix + key

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, rkey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: strconv.FormatInt(at.UnixMilli(), 10) + ":" + uuid.NewString(),
	})
	pipe.PExpire(ctx, rkey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit add %s: %w", key, err)
	}
	return nil
}
