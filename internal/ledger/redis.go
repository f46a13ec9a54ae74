package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	redisEntryPrefix  = "pettycash:entry:"
	redisDateIndexKey = "pettycash:entries_by_date"
	redisBalanceKey   = "pettycash:balance"
	redisCounterKey   = "pettycash:entry_id"
)

// RedisStore keeps entries as JSON values with a date-scored sorted set as
// the range index.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed entry store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func entryKey(id uint64) string {
	return redisEntryPrefix + strconv.FormatUint(id, 10)
}

func (s *RedisStore) Get(ctx context.Context, id uint64) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, entryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if len(raw) > MaxEntryBytes {
		return ErrEntryTooLarge
	}
	if err := s.client.Set(ctx, entryKey(entry.ID), raw, 0).Err(); err != nil {
		return err
	}
	member := strconv.FormatUint(entry.ID, 10)
	return s.client.ZAdd(ctx, redisDateIndexKey, redis.Z{
		Score:  float64(entry.Date),
		Member: member,
	}).Err()
}

func (s *RedisStore) Remove(ctx context.Context, id uint64) (Entry, bool, error) {
	entry, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		return Entry{}, ok, err
	}
	if err := s.client.Del(ctx, entryKey(id)).Err(); err != nil {
		return Entry{}, false, err
	}
	member := strconv.FormatUint(id, 10)
	if err := s.client.ZRem(ctx, redisDateIndexKey, member).Err(); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *RedisStore) Range(ctx context.Context, start, end uint64) ([]Entry, error) {
	matched := make([]Entry, 0)
	if start > end {
		return matched, nil
	}
	members, err := s.client.ZRangeByScore(ctx, redisDateIndexKey, &redis.ZRangeBy{
		Min: strconv.FormatUint(start, 10),
		Max: strconv.FormatUint(end, 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return nil, err
		}
		entry, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

// RedisBalanceCell stores the running balance under a single key.
type RedisBalanceCell struct {
	client *redis.Client
}

// NewRedisBalanceCell constructs a Redis-backed balance cell.
func NewRedisBalanceCell(client *redis.Client) *RedisBalanceCell {
	return &RedisBalanceCell{client: client}
}

func (c *RedisBalanceCell) Get(ctx context.Context) (float64, error) {
	value, err := c.client.Get(ctx, redisBalanceKey).Float64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return value, nil
}

func (c *RedisBalanceCell) Set(ctx context.Context, value float64) error {
	return c.client.Set(ctx, redisBalanceKey, value, 0).Err()
}

// RedisAllocator issues ids with INCR, which is atomic and durable within
// the Redis persistence guarantees.
type RedisAllocator struct {
	client *redis.Client
}

// NewRedisAllocator constructs a Redis-backed id allocator.
func NewRedisAllocator(client *redis.Client) *RedisAllocator {
	return &RedisAllocator{client: client}
}

func (a *RedisAllocator) NextID(ctx context.Context) (uint64, error) {
	value, err := a.client.Incr(ctx, redisCounterKey).Result()
	if err != nil {
		return 0, err
	}
	return uint64(value), nil
}
