package config

const (
	// devSecretKey is the placeholder secret shipped for local use.
	devSecretKey = "dev-secret-key-change-in-production"

	defaultHTTPPort             = "8080"
	defaultWorkspaceDir         = "./workspace"
	defaultMaxFileSizeMB        = 10
	defaultMaxTotalSizeMB       = 100
	defaultMaxUploadFiles       = 50
	defaultMaxConcurrentVideos  = 3
	defaultQueueCapacityFactor  = 4
	defaultQueueName            = "slidecast:jobs"
	defaultUploadRetentionHours = 24
	defaultOutputRetentionHours = 48
	defaultRenderTimeoutMinutes = 15
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:                  "production",
		SecretKey:            devSecretKey,
		HTTPPort:             defaultHTTPPort,
		CORSOrigins:          []string{"*"},
		WorkspaceDir:         defaultWorkspaceDir,
		MaxFileSizeMB:        defaultMaxFileSizeMB,
		MaxTotalSizeMB:       defaultMaxTotalSizeMB,
		MaxUploadFiles:       defaultMaxUploadFiles,
		MaxConcurrentVideos:  defaultMaxConcurrentVideos,
		QueueCapacity:        defaultMaxConcurrentVideos * defaultQueueCapacityFactor,
		QueueDriver:          "memory",
		QueueName:            defaultQueueName,
		JobStore:             "memory",
		FFmpegBin:            "ffmpeg",
		UploadRetentionHours: defaultUploadRetentionHours,
		OutputRetentionHours: defaultOutputRetentionHours,
		RenderTimeoutMinutes: defaultRenderTimeoutMinutes,
		LogLevel:             "info",
		LogFormat:            "json",
	}
}
