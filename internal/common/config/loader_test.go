package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: fieldsales
    user: fieldsales
  elasticsearch:
    addresses: ["http://localhost:9200"]
  redis:
    address: localhost:6379
workers:
  visit-check-in:
    enabled: true
    timeout: 5000
  visit-check-out:
    enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ==========================
// Loading
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "clients", cfg.Database.Elasticsearch.ClientIndex)
	assert.Equal(t, float64(2000), cfg.Visit.GeofenceRadiusMeters)
	assert.Equal(t, 20, cfg.Visit.TargetMinutes)
	assert.Equal(t, 15, cfg.Dashboard.NeglectThresholdDays)
	assert.Equal(t, float64(10), cfg.Orders.AutoApproveDiscountPct)
	assert.Equal(t, "0 7 * * MON", cfg.Digest.Schedule)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	checkIn := cfg.Workers["visit-check-in"]
	assert.True(t, checkIn.Enabled)
	assert.Equal(t, 5000, checkIn.Timeout)
	assert.Equal(t, 5, checkIn.MaxJobsActive)
	assert.Equal(t, 3, checkIn.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "visit-check-out"))
	assert.True(t, IsWorkerEnabled(cfg, "not-configured"))
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")

	body := `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: fieldsales
    user: fieldsales
    password: ${TEST_PG_PASSWORD}
  elasticsearch:
    addresses: ["http://localhost:9200"]
  redis:
    address: localhost:6379
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: localhost\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "missing redis",
			body: `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: fieldsales
    user: fieldsales
  elasticsearch:
    addresses: ["http://localhost:9200"]
`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "discount threshold out of range",
			body: minimalYAML + `
orders:
  auto_approve_discount_pct: 150
`,
			wantErr: "auto_approve_discount_pct",
		},
		{
			name: "unknown timezone",
			body: minimalYAML + `
dashboard:
  timezone: Mars/Olympus
`,
			wantErr: "dashboard.timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// ==========================
// Helpers
// ==========================

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{}}
	wc := GetWorkerConfig(cfg, "form-draft")
	assert.True(t, wc.Enabled)
	assert.Equal(t, 30000, wc.Timeout)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "crm", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=crm sslmode=disable", p.GetDSN())
}
