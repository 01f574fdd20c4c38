package placessearch

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	DefaultRadius  int
	MaxRadius      int
	DefaultKeyword string
	MaxResults     int
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout:        config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		DefaultRadius:  2000,
		MaxRadius:      50000,
		DefaultKeyword: "dentist",
		MaxResults:     20,
	}
}
