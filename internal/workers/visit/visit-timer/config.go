package visittimer

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Target  time.Duration
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		Target:  time.Duration(app.Visit.TargetMinutes) * time.Minute,
	}
}
