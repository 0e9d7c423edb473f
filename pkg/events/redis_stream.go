// Package events publishes refresh notifications to a Redis stream so other
// processes can react to new country data.
package events

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RefreshEvent describes one committed refresh.
type RefreshEvent struct {
	ID             string
	RefreshedAt    time.Time
	Inserted       int
	Updated        int
	Skipped        int
	TotalCountries int64
}

// Publisher sends refresh events.
type Publisher interface {
	PublishRefresh(ctx context.Context, ev RefreshEvent) (string, error)
}

// RedisStreamConfig configures the stream publisher.
type RedisStreamConfig struct {
	Addr     string
	Password string
	Stream   string
	MaxLen   int64
}

// RedisStreamPublisher appends events to a capped Redis stream.
type RedisStreamPublisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisStreamPublisher connects a publisher with its own client.
func NewRedisStreamPublisher(cfg RedisStreamConfig) (*RedisStreamPublisher, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	return NewRedisStreamPublisherWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}), cfg.Stream, cfg.MaxLen)
}

// NewRedisStreamPublisherWithClient builds a publisher on an existing client.
func NewRedisStreamPublisherWithClient(client redis.UniversalClient, stream string, maxLen int64) (*RedisStreamPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = "countries:refresh"
	}
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}, nil
}

// PublishRefresh appends ev and returns the stream entry id.
func (p *RedisStreamPublisher) PublishRefresh(ctx context.Context, ev RefreshEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":        ev.ID,
			"type":            "countries.refreshed",
			"refreshed_at":    ev.RefreshedAt.UTC().Format(time.RFC3339Nano),
			"inserted":        strconv.Itoa(ev.Inserted),
			"updated":         strconv.Itoa(ev.Updated),
			"skipped":         strconv.Itoa(ev.Skipped),
			"total_countries": strconv.FormatInt(ev.TotalCountries, 10),
		},
	}).Result()
}

// Latest reads back the newest event, mainly for operators and tests.
func (p *RedisStreamPublisher) Latest(ctx context.Context) (RefreshEvent, bool, error) {
	msgs, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", 1).Result()
	if err != nil {
		return RefreshEvent{}, false, err
	}
	if len(msgs) == 0 {
		return RefreshEvent{}, false, nil
	}
	ev, err := decodeRefreshEvent(msgs[0].Values)
	if err != nil {
		return RefreshEvent{}, false, err
	}
	return ev, true, nil
}

// Close releases the client.
func (p *RedisStreamPublisher) Close() error {
	return p.client.Close()
}

func decodeRefreshEvent(values map[string]any) (RefreshEvent, error) {
	str := func(key string) string {
		v, _ := values[key].(string)
		return v
	}
	at, err := time.Parse(time.RFC3339Nano, str("refreshed_at"))
	if err != nil {
		return RefreshEvent{}, err
	}
	inserted, _ := strconv.Atoi(str("inserted"))
	updated, _ := strconv.Atoi(str("updated"))
	skipped, _ := strconv.Atoi(str("skipped"))
	total, _ := strconv.ParseInt(str("total_countries"), 10, 64)
	return RefreshEvent{
		ID:             str("event_id"),
		RefreshedAt:    at,
		Inserted:       inserted,
		Updated:        updated,
		Skipped:        skipped,
		TotalCountries: total,
	}, nil
}
