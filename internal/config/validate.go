package config

import (
	"errors"
	"fmt"
)

// Validate checks cross-field constraints. It is called by Load; tests
// constructing a Config by hand should call it directly.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "production", "testing":
	default:
		return fmt.Errorf("env must be development, production, or testing, got %q", c.Env)
	}

	if c.Env == "production" && (c.SecretKey == "" || c.SecretKey == devSecretKey) {
		return errors.New("SECRET_KEY must be set to a non-default value in production")
	}

	if c.MaxFileSizeMB <= 0 {
		return errors.New("max_file_size_mb must be positive")
	}
	if c.MaxTotalSizeMB < c.MaxFileSizeMB {
		return errors.New("max_total_size_mb must be at least max_file_size_mb")
	}
	if c.MaxUploadFiles <= 0 {
		return errors.New("max_upload_files must be positive")
	}
	if c.MaxConcurrentVideos <= 0 {
		return errors.New("max_concurrent_videos must be positive")
	}
	if c.QueueCapacity < c.MaxConcurrentVideos {
		return errors.New("queue_capacity must be at least max_concurrent_videos")
	}

	switch c.QueueDriver {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("redis queue driver requires REDIS_ADDR")
		}
		if c.JobStore == "memory" {
			return errors.New("redis queue driver requires a shared job store (sqlite or postgres)")
		}
	default:
		return fmt.Errorf("queue_driver must be memory or redis, got %q", c.QueueDriver)
	}

	switch c.JobStore {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("postgres job store requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("job_store must be memory, sqlite, or postgres, got %q", c.JobStore)
	}

	if c.UploadRetentionHours <= 0 || c.OutputRetentionHours <= 0 {
		return errors.New("retention hours must be positive")
	}
	if c.RenderTimeoutMinutes <= 0 {
		return errors.New("render_timeout_minutes must be positive")
	}

	return nil
}
