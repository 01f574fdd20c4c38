package sessionresolve

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout:  config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		CacheTTL: config.GetDuration(app.Auth.SessionCacheTTL),
	}
}
