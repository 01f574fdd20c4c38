package photoevidenceupload

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

const defaultMaxBytes = 5 << 20

type Config struct {
	Timeout  time.Duration
	MaxBytes int
	Archive  bool
}

func LoadConfig(app *config.Config) *Config {
	maxBytes := app.Photos.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Config{
		Timeout:  config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		MaxBytes: maxBytes,
		Archive:  app.Photos.Archive,
	}
}
