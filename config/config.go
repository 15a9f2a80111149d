// Package config loads the courier configuration from TOML files and
// environment variables via Viper.
package config

import (
	"fmt"
	"time"
)

// Config represents the courier configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Admin     AdminConfig     `mapstructure:"admin"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulerConfig configures the due-job scan loop
type SchedulerConfig struct {
	// How often the scheduler scans for due jobs (default: 600)
	TickIntervalSeconds int `mapstructure:"tick_interval_seconds"`
	// How far a failed cycle pushes back the next occurrence, so a job
	// that fails every attempt does not hot-loop on consecutive ticks
	// (default: 30)
	FailureGraceMinutes int `mapstructure:"failure_grace_minutes"`
}

// RetryConfig bounds delivery attempts within one execution cycle
type RetryConfig struct {
	MaxAttempts  int `mapstructure:"max_attempts"`  // attempts before the recovery path fires (default: 3)
	DelaySeconds int `mapstructure:"delay_seconds"` // fixed pause between attempts (default: 60)
}

// AdminConfig configures operator-facing failure alerts
type AdminConfig struct {
	// Destination for failure alert emails. Empty disables alerting.
	NotificationEmail string `mapstructure:"notification_email"`
}

// SMTPConfig configures the outbound mail transport
type SMTPConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	SystemFrom        string `mapstructure:"system_from"`           // From address for admin alerts
	MaxSendsPerMinute int    `mapstructure:"max_sends_per_minute"` // outbound rate limit
}

// TickInterval returns the scheduler scan period as a duration.
func (c *Config) TickInterval() time.Duration {
	if c.Scheduler.TickIntervalSeconds <= 0 {
		return 600 * time.Second
	}
	return time.Duration(c.Scheduler.TickIntervalSeconds) * time.Second
}

// RetryDelay returns the pause between delivery attempts as a duration.
func (c *Config) RetryDelay() time.Duration {
	if c.Retry.DelaySeconds < 0 {
		return 0
	}
	return time.Duration(c.Retry.DelaySeconds) * time.Second
}

// FailureGrace returns the failed-cycle push-back as a duration.
func (c *Config) FailureGrace() time.Duration {
	if c.Scheduler.FailureGraceMinutes < 0 {
		return 0
	}
	return time.Duration(c.Scheduler.FailureGraceMinutes) * time.Minute
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "courier.db"
	}
	return c.Database.Path
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Scheduler: {TickSeconds: %d}, Retry: {MaxAttempts: %d}}",
		c.Database.Path, c.Scheduler.TickIntervalSeconds, c.Retry.MaxAttempts)
}
