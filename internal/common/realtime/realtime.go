// Package realtime fans out row changes over Redis pub/sub so caches and
// listeners can react without polling.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/common/logger"
)

const channelPrefix = "crm:changes:"

type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Change describes one committed row change.
type Change struct {
	Table     string    `json:"table"`
	Operation Operation `json:"operation"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId,omitempty"`
	At        time.Time `json:"at"`
}

func Channel(table string) string {
	return channelPrefix + table
}

type Publisher struct {
	rdb *redis.Client
	now func() time.Time
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, now: time.Now}
}

// Publish stamps At when unset and sends the change on its table channel.
func (p *Publisher) Publish(ctx context.Context, c Change) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	if c.At.IsZero() {
		c.At = p.now().UTC()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel(c.Table), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", Channel(c.Table), err)
	}
	return nil
}

// PublishBestEffort logs publish failures at warn instead of returning them.
func (p *Publisher) PublishBestEffort(ctx context.Context, log logger.Logger, c Change) {
	if err := p.Publish(ctx, c); err != nil {
		log.Warn("realtime publish failed", map[string]interface{}{
			"table": c.Table,
			"id":    c.ID,
			"error": err,
		})
	}
}

type Subscriber struct {
	rdb    *redis.Client
	logger logger.Logger
}

func NewSubscriber(rdb *redis.Client, log logger.Logger) *Subscriber {
	return &Subscriber{rdb: rdb, logger: log}
}

// Subscribe returns changes for tables until ctx is done, then closes the
// channel. The subscription is confirmed before Subscribe returns.
func (s *Subscriber) Subscribe(ctx context.Context, tables ...string) (<-chan Change, error) {
	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = Channel(t)
	}

	ps := s.rdb.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}

	out := make(chan Change, 64)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					s.logger.Warn("dropping malformed change", map[string]interface{}{
						"channel": msg.Channel,
						"error":   err,
					})
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
