package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"launchpad/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const defaultPresenceTTL = 2 * time.Minute

// RedisTransport moves events between instances over Redis pub/sub. Each
// presence entry is its own key with a TTL that live handles keep refreshing,
// so a crashed instance's entries age out on their own. A set per channel
// indexes the entry keys.
type RedisTransport struct {
	client      *redis.Client
	prefix      string
	presenceTTL time.Duration
	logger      *logrus.Entry
}

func NewRedisTransport(client *redis.Client, prefix string, logger *logrus.Entry) *RedisTransport {
	if prefix == "" {
		prefix = "oracle"
	}
	return &RedisTransport{
		client:      client,
		prefix:      prefix,
		presenceTTL: defaultPresenceTTL,
		logger:      logger,
	}
}

func (t *RedisTransport) channelName(topic string) string {
	return t.prefix + ":rt:" + topic
}

func (t *RedisTransport) presenceIndex(channel string) string {
	return t.prefix + ":presence-index:" + channel
}

func (t *RedisTransport) presenceKey(channel, actorID string) string {
	return t.prefix + ":presence:" + channel + ":" + actorID
}

// PresenceTTL is how long an entry survives without a Refresh.
func (t *RedisTransport) PresenceTTL() time.Duration { return t.presenceTTL }

func (t *RedisTransport) Publish(ctx context.Context, topic string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := t.client.Publish(ctx, t.channelName(topic), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning so
// that events published afterwards are not missed.
func (t *RedisTransport) Subscribe(ctx context.Context, topic string) (Stream, error) {
	ps := t.client.Subscribe(ctx, t.channelName(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	s := &redisStream{
		ps:     ps,
		events: make(chan Event, defaultStreamBuffer),
		done:   make(chan struct{}),
	}
	go s.pump(t.logger.WithField("topic", topic))
	return s, nil
}

type redisStream struct {
	ps     *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *redisStream) Events() <-chan Event { return s.events }

func (s *redisStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

func (s *redisStream) pump(logger *logrus.Entry) {
	defer close(s.events)
	in := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.WithError(err).Warn("Dropping undecodable realtime payload")
				continue
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			default:
				metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "dropped").Inc()
			}
		}
	}
}

// Track stores rec under its own TTL'd key and announces the join.
func (t *RedisTransport) Track(ctx context.Context, channel string, rec PresenceRecord) error {
	if err := t.Refresh(ctx, channel, rec); err != nil {
		return err
	}
	return t.Publish(ctx, PresenceTopic(channel), Event{Type: EventPresenceJoin, Presence: &rec})
}

// Refresh rewrites rec and restarts its TTL without announcing anything.
func (t *RedisTransport) Refresh(ctx context.Context, channel string, rec PresenceRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode presence: %w", err)
	}
	pipe := t.client.TxPipeline()
	pipe.Set(ctx, t.presenceKey(channel, rec.ActorID), payload, t.presenceTTL)
	pipe.SAdd(ctx, t.presenceIndex(channel), rec.ActorID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to track presence: %w", err)
	}
	return nil
}

// Untrack always announces the leave, even when the entry already expired,
// so rosters on other instances drop the actor.
func (t *RedisTransport) Untrack(ctx context.Context, channel, actorID string) error {
	pipe := t.client.TxPipeline()
	pipe.Del(ctx, t.presenceKey(channel, actorID))
	pipe.SRem(ctx, t.presenceIndex(channel), actorID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to untrack presence: %w", err)
	}
	return t.Publish(ctx, PresenceTopic(channel), Event{
		Type:     EventPresenceLeave,
		Presence: &PresenceRecord{ActorID: actorID},
	})
}

// List returns the live records for channel sorted by actor id. Index
// members whose key has expired are pruned.
func (t *RedisTransport) List(ctx context.Context, channel string) ([]PresenceRecord, error) {
	index := t.presenceIndex(channel)
	ids, err := t.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}
	if len(ids) == 0 {
		return []PresenceRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = t.presenceKey(channel, id)
	}
	vals, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}

	out := make([]PresenceRecord, 0, len(ids))
	var stale []interface{}
	for i, v := range vals {
		payload, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec PresenceRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			t.logger.WithError(err).WithField("actor_id", ids[i]).Warn("Skipping bad presence entry")
			continue
		}
		out = append(out, rec)
	}
	if len(stale) > 0 {
		if err := t.client.SRem(ctx, index, stale...).Err(); err != nil {
			t.logger.WithError(err).WithField("channel", channel).Debug("Failed to prune presence index")
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out, nil
}
