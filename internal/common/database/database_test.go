package database

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/common/config"
)

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ==========================
// ReadThrough
// ==========================

func TestReadThrough_MissLoadsAndCaches(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	want := geoPoint{Lat: -33.4489, Lng: -70.6693}
	data, _ := json.Marshal(want)

	mock.ExpectGet("client:geo:c-1").RedisNil()
	mock.ExpectSet("client:geo:c-1", data, 10*time.Minute).SetVal("OK")

	calls := 0
	got, hit, err := ReadThrough(context.Background(), rdb, "client:geo:c-1", 10*time.Minute, nil,
		func(context.Context) (geoPoint, error) {
			calls++
			return want, nil
		})

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadThrough_HitSkipsLoader(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	data, _ := json.Marshal(geoPoint{Lat: 1, Lng: 2})
	mock.ExpectGet("client:geo:c-2").SetVal(string(data))

	got, hit, err := ReadThrough(context.Background(), rdb, "client:geo:c-2", time.Minute, nil,
		func(context.Context) (geoPoint, error) {
			t.Fatal("loader must not run on a cache hit")
			return geoPoint{}, nil
		})

	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, geoPoint{Lat: 1, Lng: 2}, got)
}

func TestReadThrough_CacheDownFallsBackToLoader(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("k").SetErr(stderrors.New("connection refused"))
	mock.ExpectSet("k", []byte(`{"lat":3,"lng":4}`), time.Minute).SetErr(stderrors.New("connection refused"))

	var warned []string
	got, hit, err := ReadThrough(context.Background(), rdb, "k", time.Minute,
		func(op, key string, err error) { warned = append(warned, op) },
		func(context.Context) (geoPoint, error) { return geoPoint{Lat: 3, Lng: 4}, nil })

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, geoPoint{Lat: 3, Lng: 4}, got)
	assert.Equal(t, []string{"get", "set"}, warned)
}

func TestReadThrough_LoaderErrorIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	_, _, err := ReadThrough(context.Background(), rdb, "k", time.Minute, nil,
		func(context.Context) (geoPoint, error) { return geoPoint{}, sql.ErrNoRows })

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.False(t, mr.Exists("k"))
}

func TestReadThrough_NilClientAlwaysLoads(t *testing.T) {
	got, hit, err := ReadThrough(context.Background(), nil, "k", time.Minute, nil,
		func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, got)
}

// ==========================
// Postgres helpers
// ==========================

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "visits_one_in_progress"}

	assert.True(t, IsUniqueViolation(dup, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup), "visits_one_in_progress"))
	assert.False(t, IsUniqueViolation(dup, "clients_pkey"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(stderrors.New("23505"), ""))
}

func TestWithTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE visits").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
			_, err := tx.Exec("UPDATE visits SET status = 'completed'")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := stderrors.New("boom")
		err = WithTx(context.Background(), db, func(*sql.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// ==========================
// Elasticsearch
// ==========================

func TestEnsureIndex(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			_, _ = w.Write([]byte(`{"acknowledged":true,"index":"clients"}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	es, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	ok, err := es.EnsureIndex(context.Background(), "clients", ClientIndexMapping)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, created)
}

func TestClientIndexMapping_IsValidJSON(t *testing.T) {
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(ClientIndexMapping), &m))
	assert.Contains(t, m, "mappings")
}
