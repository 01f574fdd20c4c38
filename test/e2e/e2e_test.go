//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/clientindex"
	"fieldsales-workers/internal/common/config"
	"fieldsales-workers/internal/common/database"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/visit"

	cc "fieldsales-workers/internal/workers/client/client-create"
	cs "fieldsales-workers/internal/workers/client/client-search"
	nc "fieldsales-workers/internal/workers/dashboard/neglected-clients"
	fd "fieldsales-workers/internal/workers/drafts/form-draft"
	vci "fieldsales-workers/internal/workers/visit/visit-check-in"
	vco "fieldsales-workers/internal/workers/visit/visit-check-out"
	vtm "fieldsales-workers/internal/workers/visit/visit-timer"
)

// Runs against the docker-compose stack:
//   go test -tags e2e ./test/e2e/...

var (
	zeebeClient zbc.Client
	zapLog      *zap.Logger
)

func TestMain(m *testing.M) {
	var err error

	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         envOr("ZEEBE_ADDRESS", "localhost:26500"),
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect to Zeebe: %v", err))
	}
	zapLog = logger.New("debug", "console")

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type stack struct {
	cfg   *config.Config
	db    *sql.DB
	rdb   *redis.Client
	index *clientindex.Index
	log   logger.Logger
}

func setup(t *testing.T) *stack {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	topology, err := zeebeClient.NewTopologyCommand().Send(ctx)
	require.NoError(t, err, "zeebe gateway unreachable")
	require.NotEmpty(t, topology.Brokers)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	require.NoError(t, pg.Ping(ctx))
	t.Cleanup(func() { pg.Close() })

	_, err = store.Migrate(ctx, pg.DB)
	require.NoError(t, err)

	rc := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, rc.Ping(ctx))
	t.Cleanup(func() { rc.Close() })

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	require.NoError(t, es.Ping(ctx))
	indexName := "clients-e2e-" + uuid.NewString()[:8]
	_, err = es.EnsureIndex(ctx, indexName, database.ClientIndexMapping)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = es.Client.Indices.Delete([]string{indexName})
	})

	return &stack{
		cfg:   cfg,
		db:    pg.DB,
		rdb:   rc.Client,
		index: clientindex.New(es.Client, indexName),
		log:   logger.NewZapAdapter(zapLog),
	}
}

// seedRep inserts a fresh rep so runs never collide.
func seedRep(t *testing.T, db *sql.DB) access.Principal {
	t.Helper()
	id := "e2e-" + uuid.NewString()
	_, err := db.Exec(`INSERT INTO users (id, email, full_name, role) VALUES ($1, $2, $3, 'rep')`,
		id, id+"@example.com", "E2E Rep")
	require.NoError(t, err)
	return access.Principal{UserID: id, Email: id + "@example.com", DisplayName: "E2E Rep", Role: access.RoleRep}
}

func errorCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr), "expected StandardError, got %v", err)
	return stdErr.Code
}

// ==========================
// Visit lifecycle
// ==========================

func TestVisitLifecycle(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	rep := seedRep(t, s.db)

	lat, lng := -33.4372, -70.6506
	created, err := cc.NewHandler(cc.LoadConfig(s.cfg), s.db, s.index, s.rdb, s.log).Execute(ctx, &cc.Input{
		Principal: rep,
		Name:      "Clínica Dental Providencia",
		Zone:      "Providencia",
		Latitude:  &lat,
		Longitude: &lng,
		Phone:     "+56 2 2345 6789",
	})
	require.NoError(t, err)
	clientID := created.Client.ID

	checkIn := vci.NewHandler(vci.LoadConfig(s.cfg), s.db, s.rdb, s.log)

	// ~5 km away: rejected without override
	_, err = checkIn.Execute(ctx, &vci.Input{
		Principal: rep,
		ClientID:  clientID,
		Position:  &visit.Position{Latitude: -33.4372, Longitude: -70.5970},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeGeofenceOverrideRequired, errorCode(t, err))

	started, err := checkIn.Execute(ctx, &vci.Input{
		Principal: rep,
		ClientID:  clientID,
		Position:  &visit.Position{Latitude: lat + 0.001, Longitude: lng},
	})
	require.NoError(t, err)
	assert.Equal(t, "in-progress", started.Status)
	assert.False(t, started.OverrideUsed)

	_, err = checkIn.Execute(ctx, &vci.Input{
		Principal: rep,
		ClientID:  clientID,
		Position:  &visit.Position{Latitude: lat, Longitude: lng},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeVisitAlreadyInProgress, errorCode(t, err))

	timer, err := vtm.NewHandler(vtm.LoadConfig(s.cfg), s.db, s.log).Execute(ctx, &vtm.Input{Principal: rep, VisitID: started.VisitID})
	require.NoError(t, err)
	assert.False(t, timer.Overtime)
	assert.Equal(t, int64(20*60), timer.TargetSeconds)

	done, err := vco.NewHandler(vco.LoadConfig(s.cfg), s.db, s.rdb, s.log).Execute(ctx, &vco.Input{
		Principal: rep,
		VisitID:   started.VisitID,
		Position:  &visit.Position{Latitude: lat, Longitude: lng},
		Notes:     "restock gloves",
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	neglected, err := nc.NewHandler(nc.LoadConfig(s.cfg), s.db, s.rdb, s.log).Execute(ctx, &nc.Input{Principal: rep})
	require.NoError(t, err)
	for _, c := range neglected.Clients {
		assert.NotEqual(t, clientID, c.ClientID, "a client visited today is not neglected")
	}
}

// ==========================
// Client search
// ==========================

func TestClientSearchScopedToRep(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	owner := seedRep(t, s.db)
	other := seedRep(t, s.db)

	lat, lng := -33.4489, -70.6693
	_, err := cc.NewHandler(cc.LoadConfig(s.cfg), s.db, s.index, s.rdb, s.log).Execute(ctx, &cc.Input{
		Principal: owner,
		Name:      "Odontología Santiago Centro",
		Latitude:  &lat,
		Longitude: &lng,
	})
	require.NoError(t, err)

	search := cs.NewHandler(cs.LoadConfig(s.cfg), s.index, s.log)
	found, err := search.Execute(ctx, &cs.Input{Principal: owner, Text: "odontologia"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, found.Total)

	hidden, err := search.Execute(ctx, &cs.Input{Principal: other, Text: "odontologia"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, hidden.Total)
}

// ==========================
// Drafts
// ==========================

func TestFormDraftRoundTrip(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	rep := access.Principal{UserID: "e2e-" + uuid.NewString(), Role: access.RoleRep}
	h := fd.NewHandler(fd.LoadConfig(s.cfg), s.rdb, s.log)

	_, err := h.Execute(ctx, &fd.Input{Principal: rep, Operation: "save", FormKey: "order-new", Data: map[string]interface{}{"clientId": "c-1"}})
	require.NoError(t, err)

	loaded, err := h.Execute(ctx, &fd.Input{Principal: rep, Operation: "load", FormKey: "order-new"})
	require.NoError(t, err)
	assert.True(t, loaded.Found)
	assert.Equal(t, "c-1", loaded.Data["clientId"])

	_, err = h.Execute(ctx, &fd.Input{Principal: rep, Operation: "discard", FormKey: "order-new"})
	require.NoError(t, err)

	gone, err := h.Execute(ctx, &fd.Input{Principal: rep, Operation: "load", FormKey: "order-new"})
	require.NoError(t, err)
	assert.False(t, gone.Found)
}
