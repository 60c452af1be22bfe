package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// storeIfEpochScript writes the result only while the namespace epoch still
// matches the one the fetch started under.
var storeIfEpochScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1]) or "0"
if current ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[2], "payload", ARGV[2], "stored_at", ARGV[3])
redis.call("PEXPIRE", KEYS[2], ARGV[4])
return 1
`)

// RedisListingResultStore shares reconciled results between instances. Keys
// embed a per-namespace epoch, so invalidating a namespace is a single INCR
// and the orphaned keys age out with their TTL.
type RedisListingResultStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisListingResultStore(client redis.UniversalClient, prefix string) *RedisListingResultStore {
	if prefix == "" {
		prefix = "listing_cache"
	}
	return &RedisListingResultStore{client: client, prefix: prefix}
}

func (s *RedisListingResultStore) Generation(ctx context.Context, namespace string) (uint64, error) {
	if s.client == nil {
		return 0, nil
	}
	return s.epoch(ctx, namespace)
}

func (s *RedisListingResultStore) GetWithAge(ctx context.Context, namespace, key string) ([]byte, bool, time.Duration, error) {
	if s.client == nil {
		return nil, false, 0, nil
	}
	epoch, err := s.epoch(ctx, namespace)
	if err != nil {
		return nil, false, 0, err
	}
	vals, err := s.client.HMGet(ctx, s.dataKey(namespace, epoch, key), "payload", "stored_at").Result()
	if err != nil {
		return nil, false, 0, err
	}
	payload, ok := vals[0].(string)
	if !ok {
		return nil, false, 0, nil
	}
	age := time.Duration(0)
	if raw, ok := vals[1].(string); ok {
		if nanos, err := strconv.ParseInt(raw, 10, 64); err == nil {
			age = max(time.Since(time.Unix(0, nanos)), 0)
		}
	}
	return []byte(payload), true, age, nil
}

func (s *RedisListingResultStore) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration, generation uint64) (bool, error) {
	if s.client == nil || ttl <= 0 {
		return false, nil
	}
	stored, err := storeIfEpochScript.Run(ctx, s.client,
		[]string{s.epochKey(namespace), s.dataKey(namespace, generation, key)},
		strconv.FormatUint(generation, 10),
		value,
		strconv.FormatInt(time.Now().UTC().UnixNano(), 10),
		ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("store %s result: %w", namespace, err)
	}
	return stored == 1, nil
}

func (s *RedisListingResultStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.epochKey(namespace)).Err()
}

func (s *RedisListingResultStore) epoch(ctx context.Context, namespace string) (uint64, error) {
	raw, err := s.client.Get(ctx, s.epochKey(namespace)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	epoch, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s epoch: %w", namespace, err)
	}
	return epoch, nil
}

func (s *RedisListingResultStore) epochKey(namespace string) string {
	return fmt.Sprintf("%s:epoch:%s", s.prefix, normalizeNamespace(namespace))
}

func (s *RedisListingResultStore) dataKey(namespace string, epoch uint64, key string) string {
	return fmt.Sprintf("%s:data:%s:e%d:%s", s.prefix, normalizeNamespace(namespace), epoch, hashKey(key))
}

func normalizeNamespace(v string) string {
	if v == "" {
		return "default"
	}
	return v
}

func hashKey(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
