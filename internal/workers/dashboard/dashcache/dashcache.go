// Package dashcache caches dashboard results per principal and day. Entries
// are dropped wholesale by the realtime invalidator when the underlying
// tables change, so the TTL only bounds staleness for missed notifications.
package dashcache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/database"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/metrics"
	"fieldsales-workers/internal/dashboard"
)

// Key follows dashboard:<user>:<kind>:<yyyy-mm-dd>.
func Key(p access.Principal, kind string, day time.Time) string {
	return fmt.Sprintf("dashboard:%s:%s:%s", p.UserID, kind, day.Format(dashboard.DateLayout))
}

type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, logger: log}
}

// Load returns the cached result of kind for p on day or computes it with load.
func Load[T any](ctx context.Context, c *Cache, p access.Principal, kind string, day time.Time,
	load func(context.Context) (T, error)) (T, bool, error) {
	warn := func(op, key string, err error) {
		c.logger.Warn("dashboard cache unavailable", map[string]interface{}{"op": op, "key": key, "error": err})
	}
	v, hit, err := database.ReadThrough(ctx, c.rdb, Key(p, kind, day), c.ttl, warn, load)
	if hit {
		metrics.DashboardCacheHits.WithLabelValues(kind).Inc()
	}
	return v, hit, err
}

// Location resolves the dashboard timezone, falling back to UTC.
func Location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil || name == "" {
		return time.UTC
	}
	return loc
}

// Today parses an optional yyyy-mm-dd date in loc, defaulting to now's day.
func Today(date string, now time.Time, loc *time.Location) (time.Time, error) {
	if date == "" {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation(dashboard.DateLayout, date, loc)
}
