package visitcheckin

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	GeofenceRadius float64
	Target         time.Duration
	ClientCacheTTL time.Duration
}

func LoadConfig(app *config.Config) *Config {
	w := config.GetWorkerConfig(app, TaskType)
	return &Config{
		Timeout:        config.GetDuration(w.Timeout),
		GeofenceRadius: app.Visit.GeofenceRadiusMeters,
		Target:         time.Duration(app.Visit.TargetMinutes) * time.Minute,
		ClientCacheTTL: config.GetDuration(app.Visit.ClientCacheTTL),
	}
}
