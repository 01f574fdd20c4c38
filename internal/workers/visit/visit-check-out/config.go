package visitcheckout

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Target  time.Duration
}

func LoadConfig(app *config.Config) *Config {
	w := config.GetWorkerConfig(app, TaskType)
	return &Config{
		Timeout: config.GetDuration(w.Timeout),
		Target:  time.Duration(app.Visit.TargetMinutes) * time.Minute,
	}
}
