package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/domain"
)

const (
	keyPrefix    = "gridfeed"
	syncClockKey = keyPrefix + ":last_synced"
)

// RedisStore persists price documents in Redis so they outlive the process.
// Entries carry no TTL: the bounded sync job overwrites them on every run and
// stale reads between runs are acceptable by contract. The per-topic date set
// is written in the same transaction as the entry, so set cardinality always
// equals the number of stored entries for that topic.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, topic domain.Topic, day string) (domain.Document, error) {
	payload, err := s.rdb.Get(ctx, entryKey(topic, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Document{}, port.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, storeErr("redis get", err)
	}
	return domain.Document{Topic: topic, Day: day, Payload: payload}, nil
}

func (s *RedisStore) Put(ctx context.Context, doc domain.Document) error {
	if doc.Day == "" {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey(doc.Topic, doc.Day), doc.Payload, 0)
		pipe.SAdd(ctx, daysKey(doc.Topic), doc.Day)
		return nil
	})
	if err != nil {
		return storeErr("redis put", err)
	}
	return nil
}

func (s *RedisStore) ListDays(ctx context.Context, topic domain.Topic) ([]string, error) {
	days, err := s.rdb.SMembers(ctx, daysKey(topic)).Result()
	if err != nil {
		return nil, storeErr("redis list days", err)
	}
	sort.Strings(days)
	return days, nil
}

func (s *RedisStore) EntryCount(ctx context.Context) (int, error) {
	total := 0
	for _, topic := range domain.Topics() {
		n, err := s.rdb.SCard(ctx, daysKey(topic)).Result()
		if err != nil {
			return 0, storeErr("redis entry count", err)
		}
		total += int(n)
	}
	return total, nil
}

// MarkSynced records the completion instant of a sync run. The value is only
// advanced, never cleared, so /status can always report the freshest run.
func (s *RedisStore) MarkSynced(ctx context.Context, completedAt time.Time) error {
	stamp := completedAt.UTC().Format(time.RFC3339Nano)
	if err := s.rdb.Set(ctx, syncClockKey, stamp, 0).Err(); err != nil {
		return storeErr("redis mark synced", err)
	}
	return nil
}

func (s *RedisStore) LastSynced(ctx context.Context) (time.Time, error) {
	raw, err := s.rdb.Get(ctx, syncClockKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, storeErr("redis last synced", err)
	}
	stamp, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync clock %q: %w", raw, err)
	}
	return stamp, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func entryKey(topic domain.Topic, day string) string {
	return keyPrefix + ":prices:" + string(topic) + ":" + day
}

func daysKey(topic domain.Topic) string {
	return keyPrefix + ":dates:" + string(topic)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, port.ErrStoreUnavailable, err)
}

var (
	_ port.PriceStore = (*RedisStore)(nil)
	_ port.SyncMarker = (*RedisStore)(nil)
)
