package sessionend

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(app *config.Config) *Config {
	return &Config{Timeout: config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout)}
}
