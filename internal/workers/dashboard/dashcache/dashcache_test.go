package dashcache

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/logger"
)

func TestKey(t *testing.T) {
	p := access.Principal{UserID: "mgr-1", Role: access.RoleManager}
	day := time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "dashboard:mgr-1:sales-series:2026-10-19", Key(p, "sales-series", day))
}

func TestLoad_CachesPerDay(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := New(rdb, time.Minute, logger.NewTestLogger(t))
	p := access.Principal{UserID: "rep-1", Role: access.RoleRep}
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	calls := 0
	load := func(context.Context) ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}

	v, hit, err := Load(context.Background(), c, p, "kind", day, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{1, 2, 3}, v)

	v, hit, err = Load(context.Background(), c, p, "kind", day, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{1, 2, 3}, v)
	assert.Equal(t, 1, calls)

	_, hit, err = Load(context.Background(), c, p, "kind", day.AddDate(0, 0, 1), load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
	assert.Equal(t, time.Minute, mr.TTL("dashboard:rep-1:kind:2026-10-19"))
}

func TestToday(t *testing.T) {
	loc := Location("America/Santiago")
	now := time.Date(2026, 10, 20, 1, 30, 0, 0, time.UTC)

	d, err := Today("", now, loc)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", d.Format("2006-01-02"), "01:30 UTC is still the previous day in Santiago")

	d, err = Today("2026-10-01", now, loc)
	require.NoError(t, err)
	assert.Equal(t, loc, d.Location())

	_, err = Today("01/10/2026", now, loc)
	assert.Error(t, err)

	assert.Equal(t, time.UTC, Location("Mars/Olympus"))
}
