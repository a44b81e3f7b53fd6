// Package config loads service configuration from an optional TOML
// file merged with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the full service configuration.
type Config struct {
	// Env is the deployment mode: development, production, or testing.
	Env string `toml:"env"`
	// SecretKey is the signing secret. The dev default is rejected in
	// production.
	SecretKey string `toml:"secret_key"`

	HTTPPort    string   `toml:"http_port"`
	CORSOrigins []string `toml:"cors_origins"`

	// WorkspaceDir is the root of the filesystem workspace. Uploads,
	// outputs, scratch space, and the music library live beneath it
	// unless overridden.
	WorkspaceDir    string `toml:"workspace_dir"`
	MusicLibraryDir string `toml:"music_library_dir"`

	MaxFileSizeMB  int `toml:"max_file_size_mb"`
	MaxTotalSizeMB int `toml:"max_total_size_mb"`
	MaxUploadFiles int `toml:"max_upload_files"`

	// MaxConcurrentVideos caps in-flight generation jobs; it is also the
	// worker pool size. QueueCapacity bounds the backlog behind the
	// pool; a full queue rejects generate calls with 429.
	MaxConcurrentVideos int `toml:"max_concurrent_videos"`
	QueueCapacity       int `toml:"queue_capacity"`

	// QueueDriver selects the job queue: "memory" (in-process pool) or
	// "redis" (separate worker binaries). The redis driver requires a
	// shared job store (sqlite or postgres).
	QueueDriver string `toml:"queue_driver"`
	RedisAddr   string `toml:"redis_addr"`
	QueueName   string `toml:"queue_name"`

	// JobStore selects the job registry backend: memory, sqlite, or
	// postgres.
	JobStore    string `toml:"job_store"`
	DatabaseURL string `toml:"database_url"`

	FFmpegBin string `toml:"ffmpeg_bin"`
	FontFile  string `toml:"font_file"`

	UploadRetentionHours int `toml:"upload_retention_hours"`
	OutputRetentionHours int `toml:"output_retention_hours"`
	RenderTimeoutMinutes int `toml:"render_timeout_minutes"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// UploadsDir returns the directory holding uploaded batches.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.WorkspaceDir, "uploads")
}

// OutputsDir returns the directory holding finished artifacts.
func (c *Config) OutputsDir() string {
	return filepath.Join(c.WorkspaceDir, "outputs")
}

// ScratchDir returns the directory for per-job intermediate files.
func (c *Config) ScratchDir() string {
	return filepath.Join(c.WorkspaceDir, "scratch")
}

// MusicDir returns the music library directory.
func (c *Config) MusicDir() string {
	if c.MusicLibraryDir != "" {
		return c.MusicLibraryDir
	}
	return filepath.Join(c.WorkspaceDir, "music_library")
}

// MaxFileBytes returns the per-file upload limit in bytes.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// MaxTotalBytes returns the per-batch upload limit in bytes.
func (c *Config) MaxTotalBytes() int64 {
	return int64(c.MaxTotalSizeMB) * 1024 * 1024
}

// EnsureDirectories creates the workspace directory tree.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.WorkspaceDir, c.UploadsDir(), c.OutputsDir(), c.ScratchDir(), c.MusicDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Load reads configuration: defaults, then the TOML file at path (or
// $CONFIG_FILE) if it exists, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// Missing file is fine; env and defaults apply.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides config fields from the environment. APP_ENV is
// the native key; FLASK_ENV is still honored so existing deployments
// keep working without an env change.
func applyEnv(c *Config) {
	setString(&c.Env, "APP_ENV")
	if v := strings.TrimSpace(os.Getenv("FLASK_ENV")); v != "" && os.Getenv("APP_ENV") == "" {
		c.Env = v
	}
	setString(&c.SecretKey, "SECRET_KEY")
	setString(&c.HTTPPort, "HTTP_PORT")
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		c.CORSOrigins = splitCSV(v)
	}
	setString(&c.WorkspaceDir, "WORKSPACE_DIR")
	setString(&c.MusicLibraryDir, "MUSIC_LIBRARY_DIR")
	setInt(&c.MaxFileSizeMB, "MAX_FILE_SIZE_MB")
	setInt(&c.MaxTotalSizeMB, "MAX_TOTAL_SIZE_MB")
	setInt(&c.MaxUploadFiles, "MAX_UPLOAD_FILES")
	setInt(&c.MaxConcurrentVideos, "MAX_CONCURRENT_VIDEOS")
	setInt(&c.QueueCapacity, "QUEUE_CAPACITY")
	setString(&c.QueueDriver, "QUEUE_DRIVER")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.QueueName, "QUEUE_NAME")
	setString(&c.JobStore, "JOB_STORE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.FFmpegBin, "FFMPEG_BIN")
	setString(&c.FontFile, "FONT_FILE")
	setInt(&c.UploadRetentionHours, "UPLOAD_RETENTION_HOURS")
	setInt(&c.OutputRetentionHours, "OUTPUT_RETENTION_HOURS")
	setInt(&c.RenderTimeoutMinutes, "RENDER_TIMEOUT_MINUTES")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
