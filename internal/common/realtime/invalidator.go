package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/common/logger"
)

// DashboardTables are the tables whose changes make cached dashboards stale.
var DashboardTables = []string{"visits", "orders", "call_logs", "quotations"}

// DashboardKeyPattern matches every cached dashboard result.
const DashboardKeyPattern = "dashboard:*"

// Invalidator deletes cached dashboards whenever a relevant table changes.
type Invalidator struct {
	rdb    *redis.Client
	sub    *Subscriber
	logger logger.Logger
}

func NewInvalidator(rdb *redis.Client, log logger.Logger) *Invalidator {
	return &Invalidator{rdb: rdb, sub: NewSubscriber(rdb, log), logger: log}
}

// Run blocks until ctx is done.
func (inv *Invalidator) Run(ctx context.Context) error {
	changes, err := inv.sub.Subscribe(ctx, DashboardTables...)
	if err != nil {
		return err
	}
	for c := range changes {
		n, err := inv.Flush(ctx)
		if err != nil {
			inv.logger.Warn("dashboard cache invalidation failed", map[string]interface{}{
				"table": c.Table,
				"error": err,
			})
			continue
		}
		inv.logger.Debug("dashboard cache invalidated", map[string]interface{}{
			"table":   c.Table,
			"id":      c.ID,
			"deleted": n,
		})
	}
	return ctx.Err()
}

// Flush deletes every dashboard key and returns how many were removed.
func (inv *Invalidator) Flush(ctx context.Context) (int, error) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := inv.rdb.Scan(ctx, cursor, DashboardKeyPattern, 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := inv.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
