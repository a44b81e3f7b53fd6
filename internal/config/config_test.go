package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	cfg.Env = "development"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate in development: %v", err)
	}
}

func TestProductionRejectsDevSecret(t *testing.T) {
	cfg := Default()
	cfg.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for default secret in production")
	}

	cfg.SecretKey = "a-real-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config with real secret: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown env", func(c *Config) { c.Env = "staging" }},
		{"zero file size", func(c *Config) { c.MaxFileSizeMB = 0 }},
		{"total below file", func(c *Config) { c.MaxTotalSizeMB = c.MaxFileSizeMB - 1 }},
		{"zero workers", func(c *Config) { c.MaxConcurrentVideos = 0 }},
		{"queue below workers", func(c *Config) { c.QueueCapacity = c.MaxConcurrentVideos - 1 }},
		{"unknown queue driver", func(c *Config) { c.QueueDriver = "kafka" }},
		{"redis without addr", func(c *Config) { c.QueueDriver = "redis"; c.JobStore = "sqlite" }},
		{"redis with memory store", func(c *Config) {
			c.QueueDriver = "redis"
			c.RedisAddr = "localhost:6379"
			c.JobStore = "memory"
		}},
		{"postgres without url", func(c *Config) { c.JobStore = "postgres" }},
		{"unknown job store", func(c *Config) { c.JobStore = "mongo" }},
		{"zero retention", func(c *Config) { c.UploadRetentionHours = 0 }},
		{"zero render timeout", func(c *Config) { c.RenderTimeoutMinutes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Env = "development"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("MAX_FILE_SIZE_MB", "5")
	t.Setenv("MAX_CONCURRENT_VIDEOS", "2")
	t.Setenv("QUEUE_CAPACITY", "8")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("WORKSPACE_DIR", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("expected env development, got %s", cfg.Env)
	}
	if cfg.MaxFileSizeMB != 5 {
		t.Errorf("expected MaxFileSizeMB=5, got %d", cfg.MaxFileSizeMB)
	}
	if cfg.MaxConcurrentVideos != 2 {
		t.Errorf("expected MaxConcurrentVideos=2, got %d", cfg.MaxConcurrentVideos)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("expected two trimmed origins, got %v", cfg.CORSOrigins)
	}
}

func TestLegacyEnvKey(t *testing.T) {
	t.Setenv("FLASK_ENV", "development")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Env != "development" {
		t.Errorf("expected FLASK_ENV to set env, got %s", cfg.Env)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	dir := t.TempDir()
	path := filepath.Join(dir, "slidecast.toml")
	content := []byte("max_file_size_mb = 7\nmax_concurrent_videos = 5\nqueue_capacity = 20\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxFileSizeMB != 7 {
		t.Errorf("expected MaxFileSizeMB=7 from file, got %d", cfg.MaxFileSizeMB)
	}
	if cfg.MaxConcurrentVideos != 5 {
		t.Errorf("expected MaxConcurrentVideos=5 from file, got %d", cfg.MaxConcurrentVideos)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("MAX_FILE_SIZE_MB", "3")

	dir := t.TempDir()
	path := filepath.Join(dir, "slidecast.toml")
	if err := os.WriteFile(path, []byte("max_file_size_mb = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxFileSizeMB != 3 {
		t.Errorf("expected env to win over file, got %d", cfg.MaxFileSizeMB)
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
}

func TestWorkspacePaths(t *testing.T) {
	cfg := Default()
	cfg.WorkspaceDir = "/srv/slidecast"

	if cfg.UploadsDir() != filepath.Join("/srv/slidecast", "uploads") {
		t.Errorf("unexpected uploads dir: %s", cfg.UploadsDir())
	}
	if cfg.OutputsDir() != filepath.Join("/srv/slidecast", "outputs") {
		t.Errorf("unexpected outputs dir: %s", cfg.OutputsDir())
	}
	if cfg.MusicDir() != filepath.Join("/srv/slidecast", "music_library") {
		t.Errorf("unexpected music dir: %s", cfg.MusicDir())
	}

	cfg.MusicLibraryDir = "/mnt/music"
	if cfg.MusicDir() != "/mnt/music" {
		t.Errorf("expected explicit music dir to win, got %s", cfg.MusicDir())
	}
}

func TestPresetFor(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		width   int
		bitrate string
	}{
		{"low", true, 1280, "500k"},
		{"medium", true, 1280, "1500k"},
		{"high", true, 1920, "3000k"},
		{"ultra", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := PresetFor(tt.name)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if p.Width != tt.width {
				t.Errorf("expected width %d, got %d", tt.width, p.Width)
			}
			if p.Bitrate != tt.bitrate {
				t.Errorf("expected bitrate %s, got %s", tt.bitrate, p.Bitrate)
			}
		})
	}
}

func TestMaxBytes(t *testing.T) {
	cfg := Default()
	cfg.MaxFileSizeMB = 2
	cfg.MaxTotalSizeMB = 10

	if cfg.MaxFileBytes() != 2*1024*1024 {
		t.Errorf("unexpected MaxFileBytes: %d", cfg.MaxFileBytes())
	}
	if cfg.MaxTotalBytes() != 10*1024*1024 {
		t.Errorf("unexpected MaxTotalBytes: %d", cfg.MaxTotalBytes())
	}
}
