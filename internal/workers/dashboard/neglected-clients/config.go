package neglectedclients

import (
	"time"

	"fieldsales-workers/internal/common/config"
	"fieldsales-workers/internal/workers/dashboard/dashcache"
)

type Config struct {
	Timeout       time.Duration
	CacheTTL      time.Duration
	Location      *time.Location
	ThresholdDays int
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout:       config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		CacheTTL:      config.GetDuration(app.Dashboard.CacheTTL),
		Location:      dashcache.Location(app.Dashboard.Timezone),
		ThresholdDays: app.Dashboard.NeglectThresholdDays,
	}
}
