package visitschedule

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	DefaultCalendarID string
	DefaultDuration   time.Duration
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout:           config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		DefaultCalendarID: app.Integrations.Calendar.DefaultCalendarID,
		DefaultDuration:   time.Hour,
	}
}
