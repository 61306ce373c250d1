package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSource forwards payment events the API publishes on Redis into the
// hub.  Payloads are Event JSON; the pattern is typically "payments:*".
type RedisSource struct {
	rdb     redis.UniversalClient
	pattern string
	hub     *Hub
	log     *zap.SugaredLogger
}

func NewRedisSource(rdb redis.UniversalClient, pattern string, hub *Hub, log *zap.SugaredLogger) *RedisSource {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RedisSource{rdb: rdb, pattern: pattern, hub: hub, log: log}
}

// Run blocks until ctx is done.  Reconnects are left to go-redis.
func (s *RedisSource) Run(ctx context.Context) error {
	ps := s.rdb.PSubscribe(ctx, s.pattern)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe %s: %w", s.pattern, err)
	}
	s.log.Infow("realtime redis source subscribed", "pattern", s.pattern)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.handle(msg.Payload); err != nil {
				s.log.Warnw("realtime event ignored", "channel", msg.Channel, "err", err)
			}
		}
	}
}

func (s *RedisSource) handle(payload string) error {
	ev, err := decodeEvent(payload)
	if err != nil {
		return err
	}
	s.hub.Publish(ev.Email, ev)
	return nil
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Email == "" {
		return Event{}, fmt.Errorf("event has no email")
	}
	if !ev.Status.Valid() {
		return Event{}, fmt.Errorf("unknown status %q", ev.Status)
	}
	return ev, nil
}
