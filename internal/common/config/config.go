// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Auth         AuthConfig              `mapstructure:"auth"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Visit        VisitConfig             `mapstructure:"visit"`
	Dashboard    DashboardConfig         `mapstructure:"dashboard"`
	Orders       OrdersConfig            `mapstructure:"orders"`
	Drafts       DraftsConfig            `mapstructure:"drafts"`
	Photos       PhotosConfig            `mapstructure:"photos"`
	Phone        PhoneConfig             `mapstructure:"phone"`
	Digest       DigestConfig            `mapstructure:"digest"`
	Server       ServerConfig            `mapstructure:"server"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Tracing      TracingConfig           `mapstructure:"tracing"`
	RegistryPath string                  `mapstructure:"registry_path"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	TLS            bool   `mapstructure:"tls"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	ClientIndex string   `mapstructure:"client_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// AuthConfig holds the identity provider used to resolve sessions.
type AuthConfig struct {
	Keycloak struct {
		URL     string `mapstructure:"url"`
		Realm   string `mapstructure:"realm"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"keycloak"`
	SessionCacheTTL int `mapstructure:"session_cache_ttl"` // milliseconds
}

// IntegrationConfig holds settings for calendar, maps and AWS.
type IntegrationConfig struct {
	Calendar struct {
		BaseURL           string `mapstructure:"base_url"`
		DefaultCalendarID string `mapstructure:"default_calendar_id"`
		Timeout           int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"calendar"`

	Maps struct {
		BaseURL           string  `mapstructure:"base_url"`
		APIKey            string  `mapstructure:"api_key"`
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		Timeout           int     `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"maps"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			SenderID string `mapstructure:"sender_id"`
		} `mapstructure:"sns"`
		S3 struct {
			Bucket       string `mapstructure:"bucket"`
			PresignTTL   int    `mapstructure:"presign_ttl"` // milliseconds
			ReportPrefix string `mapstructure:"report_prefix"`
		} `mapstructure:"s3"`
	} `mapstructure:"aws"`
}

// VisitConfig holds the geofence and timer rules for visits.
type VisitConfig struct {
	GeofenceRadiusMeters float64 `mapstructure:"geofence_radius_meters"`
	TargetMinutes        int     `mapstructure:"target_minutes"`
	ClientCacheTTL       int     `mapstructure:"client_cache_ttl"` // milliseconds
}

type DashboardConfig struct {
	NeglectThresholdDays int    `mapstructure:"neglect_threshold_days"`
	CacheTTL             int    `mapstructure:"cache_ttl"` // milliseconds
	Timezone             string `mapstructure:"timezone"`
	ActivityWindowDays   int    `mapstructure:"activity_window_days"`
}

type OrdersConfig struct {
	AutoApproveDiscountPct float64 `mapstructure:"auto_approve_discount_pct"`
}

type DraftsConfig struct {
	TTL int `mapstructure:"ttl"` // milliseconds
}

type PhotosConfig struct {
	MaxBytes int  `mapstructure:"max_bytes"`
	Archive  bool `mapstructure:"archive"`
}

type PhoneConfig struct {
	DefaultRegion string `mapstructure:"default_region"`
}

// DigestConfig controls the scheduled neglected-client digest.
type DigestConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig points job spans at an OTLP gRPC collector. Empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
