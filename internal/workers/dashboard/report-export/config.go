package reportexport

import (
	"time"

	"fieldsales-workers/internal/common/config"
	"fieldsales-workers/internal/workers/dashboard/dashcache"
)

type Config struct {
	Timeout       time.Duration
	Location      *time.Location
	ThresholdDays int
	Prefix        string
	PresignTTL    time.Duration
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout:       config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		Location:      dashcache.Location(app.Dashboard.Timezone),
		ThresholdDays: app.Dashboard.NeglectThresholdDays,
		Prefix:        app.Integrations.AWS.S3.ReportPrefix,
		PresignTTL:    config.GetDuration(app.Integrations.AWS.S3.PresignTTL),
	}
}
