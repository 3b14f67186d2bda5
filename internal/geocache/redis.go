package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "geocode:"
	// memorySampleSize caps how many keys MEMORY USAGE is issued for when
	// estimating total consumption. The estimate is best-effort.
	memorySampleSize = 100
	scanBatchSize    = 500
)

// RedisStore persists cache entries in Redis, one JSON value per key, with
// expiry delegated to Redis TTLs.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Load(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, redisKeyPrefix+key, data, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, redisKeyPrefix+key)
	}
	return s.rdb.Del(ctx, prefixed...).Err()
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	count := 0
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *RedisStore) Scan(ctx context.Context, limit int) ([]KeyedEntry, error) {
	var result []KeyedEntry

	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		prefixed := iter.Val()
		key := prefixed[len(redisKeyPrefix):]

		entry, ok, err := s.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		result = append(result, KeyedEntry{Key: key, Entry: entry})
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MemoryUsage estimates total memory by sampling MEMORY USAGE over a
// bounded number of keys and extrapolating to the full key count.
func (s *RedisStore) MemoryUsage(ctx context.Context) (int64, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var sampled int64
	var samples int
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) && samples < memorySampleSize {
		usage, err := s.rdb.MemoryUsage(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		sampled += usage
		samples++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if samples == 0 {
		return 0, nil
	}

	return sampled / int64(samples) * int64(count), nil
}

func (s *RedisStore) Flush(ctx context.Context) error {
	keys := make([]string, 0, scanBatchSize)
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}
