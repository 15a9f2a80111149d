package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "courier.db")

	// Scheduler defaults
	v.SetDefault("scheduler.tick_interval_seconds", 600)
	v.SetDefault("scheduler.failure_grace_minutes", 30)

	// Delivery retry defaults
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay_seconds", 60)

	// Admin alerting defaults (empty = disabled)
	v.SetDefault("admin.notification_email", "")

	// SMTP transport defaults
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.system_from", "courier@localhost")
	v.SetDefault("smtp.max_sends_per_minute", 30)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("smtp.username", "COURIER_SMTP_USERNAME")
	v.BindEnv("smtp.password", "COURIER_SMTP_PASSWORD")
	v.BindEnv("database.path", "COURIER_DATABASE_PATH")
}
