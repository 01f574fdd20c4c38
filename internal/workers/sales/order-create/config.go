package ordercreate

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout                time.Duration
	AutoApproveDiscountPct float64
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout:                config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
		AutoApproveDiscountPct: app.Orders.AutoApproveDiscountPct,
	}
}
