package formdraft

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	TTL      time.Duration
	MaxBytes int
}

func LoadConfig(app *config.Config) *Config {
	ttl := config.GetDuration(app.Drafts.TTL)
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Config{
		Timeout:  config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		TTL:      ttl,
		MaxBytes: 64 << 10,
	}
}
