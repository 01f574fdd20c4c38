package calendarlistevents

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	DefaultCalendarID string
	DefaultRange      time.Duration
	MaxRange          time.Duration
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout:           config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		DefaultCalendarID: app.Integrations.Calendar.DefaultCalendarID,
		DefaultRange:      7 * 24 * time.Hour,
		MaxRange:          62 * 24 * time.Hour,
	}
}
