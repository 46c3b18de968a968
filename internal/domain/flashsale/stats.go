package flashsale

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	viewKeyPrefix  = "flashsale:views:"
	clickKeyPrefix = "flashsale:clicks:"
)

// RedisTrafficBuffer accumulates view and click counters in Redis so that
// high-frequency storefront traffic never touches Postgres on the hot path.
// A background worker periodically drains the buffer into campaign stats.
type RedisTrafficBuffer struct {
	client *redis.Client
}

func NewRedisTrafficBuffer(client *redis.Client) *RedisTrafficBuffer {
	return &RedisTrafficBuffer{client: client}
}

func (b *RedisTrafficBuffer) AddView(ctx context.Context, campaignID uuid.UUID) error {
	return b.client.Incr(ctx, viewKeyPrefix+campaignID.String()).Err()
}

func (b *RedisTrafficBuffer) AddClick(ctx context.Context, campaignID uuid.UUID) error {
	return b.client.Incr(ctx, clickKeyPrefix+campaignID.String()).Err()
}

// TrafficDelta is one campaign's buffered counters pulled during a flush
type TrafficDelta struct {
	CampaignID uuid.UUID
	Views      int64
	Clicks     int64
}

// Drain atomically reads and resets all buffered counters. GETDEL keeps
// increments arriving mid-flush safe: they land in the next cycle.
func (b *RedisTrafficBuffer) Drain(ctx context.Context) ([]TrafficDelta, error) {
	deltas := make(map[uuid.UUID]*TrafficDelta)

	if err := b.drainPrefix(ctx, viewKeyPrefix, deltas, func(d *TrafficDelta, n int64) { d.Views += n }); err != nil {
		return nil, err
	}
	if err := b.drainPrefix(ctx, clickKeyPrefix, deltas, func(d *TrafficDelta, n int64) { d.Clicks += n }); err != nil {
		return nil, err
	}

	out := make([]TrafficDelta, 0, len(deltas))
	for _, d := range deltas {
		out = append(out, *d)
	}
	return out, nil
}

func (b *RedisTrafficBuffer) drainPrefix(ctx context.Context, prefix string, deltas map[uuid.UUID]*TrafficDelta, add func(*TrafficDelta, int64)) error {
	iter := b.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := b.client.GetDel(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("drain %s: %w", key, err)
		}

		id, err := uuid.Parse(strings.TrimPrefix(key, prefix))
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || count == 0 {
			continue
		}

		delta, ok := deltas[id]
		if !ok {
			delta = &TrafficDelta{CampaignID: id}
			deltas[id] = delta
		}
		add(delta, count)
	}
	return iter.Err()
}
