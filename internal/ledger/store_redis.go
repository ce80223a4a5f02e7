package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ledgerKey = "ledger:inconsistencies"

	// maxEntries caps the list so the ledger cannot grow without bound.
	maxEntries = 1000
)

// RedisStore keeps entries in a capped Redis list, newest first, so every
// instance shares one operator-visible ledger.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Record(ctx context.Context, entry Entry) error {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, ledgerKey, value)
	pipe.LTrim(ctx, ledgerKey, 0, maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record ledger entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > maxEntries {
		limit = maxEntries
	}
	raw, err := s.client.LRange(ctx, ledgerKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// Skip unreadable entries rather than hiding the rest.
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
