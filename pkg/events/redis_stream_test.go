package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestPublishRefreshRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	p, err := NewRedisStreamPublisher(RedisStreamConfig{Addr: mr.Addr(), Stream: "test:refresh"})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	if _, ok, err := p.Latest(ctx); err != nil || ok {
		t.Fatalf("expected empty stream, ok=%v err=%v", ok, err)
	}

	at := time.Date(2025, 10, 22, 12, 0, 0, 0, time.UTC)
	id, err := p.PublishRefresh(ctx, RefreshEvent{RefreshedAt: at, Inserted: 3, Updated: 2, Skipped: 1, TotalCountries: 5})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id == "" {
		t.Fatalf("expected stream entry id")
	}

	got, ok, err := p.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if got.ID == "" || !got.RefreshedAt.Equal(at) {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Inserted != 3 || got.Updated != 2 || got.Skipped != 1 || got.TotalCountries != 5 {
		t.Fatalf("unexpected counts: %+v", got)
	}
}

func TestPublishRefreshFailsWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	p, err := NewRedisStreamPublisher(RedisStreamConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	mr.Close()
	if _, err := p.PublishRefresh(context.Background(), RefreshEvent{RefreshedAt: time.Now()}); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestNewRedisStreamPublisherRequiresAddr(t *testing.T) {
	if _, err := NewRedisStreamPublisher(RedisStreamConfig{}); err == nil {
		t.Fatalf("expected error without addr")
	}
}
