package counter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const hashKeyPrefix = "ingest:counters:"

// Counter tracks ingest outcomes per source in redis hashes. A nil Counter
// is valid and counts nothing; counting failures never affect request
// outcomes.
type Counter struct {
	rdb *redis.Client
}

// Fields tracked per source hash.
const (
	FieldReceived         = "received"
	FieldDeduped          = "deduped"
	FieldSkipped          = "skipped"
	FieldApplied          = "applied"
	FieldProjected        = "projected"
	FieldProjectionFailed = "projection_failed"
)

func New(rdb *redis.Client) *Counter {
	if rdb == nil {
		return nil
	}
	return &Counter{rdb: rdb}
}

// Incr increments one field for a source. Errors are swallowed on purpose.
func (c *Counter) Incr(ctx context.Context, source, field string) {
	if c == nil {
		return
	}
	_ = c.rdb.HIncrBy(ctx, hashKeyPrefix+source, field, 1).Err()
}

// Snapshot returns all counters keyed by source.
func (c *Counter) Snapshot(ctx context.Context) (map[string]map[string]string, error) {
	if c == nil {
		return map[string]map[string]string{}, nil
	}

	keys, err := c.rdb.Keys(ctx, hashKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("list counter keys: %w", err)
	}

	out := make(map[string]map[string]string, len(keys))
	for _, key := range keys {
		fields, err := c.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("read counters %s: %w", key, err)
		}
		out[key[len(hashKeyPrefix):]] = fields
	}
	return out, nil
}
