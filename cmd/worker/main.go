package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"slidecast/internal/adapters/storage/localfs"
	"slidecast/internal/config"
	"slidecast/internal/jobs"
	"slidecast/internal/music"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/pkg/shutdown"
	"slidecast/internal/queue"
	"slidecast/internal/render"
	"slidecast/internal/render/ffmpeg"
	"slidecast/internal/storage"
	"slidecast/internal/uploads"
	"slidecast/internal/worker"
)

// The worker binary consumes the redis render queue. It shares the
// workspace and job store with the API, so config must point both
// processes at the same locations.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "slidecast-worker",
	})

	if cfg.QueueDriver != "redis" {
		log.LogFatal("worker binary requires QUEUE_DRIVER=redis; the memory driver runs workers inside the API process", nil)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.LogFatal("cannot prepare workspace", err)
	}

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	registry, err := jobs.OpenRegistry(ctx, cfg)
	if err != nil {
		log.LogFatal("cannot open job registry", err)
	}
	shutdownMgr.Register("job-registry", func(ctx context.Context) error {
		return registry.Close()
	})

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("cannot reach redis", err)
	}
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})
	q := queue.NewRedis(rdb, cfg.QueueName, cfg.QueueCapacity)

	workspace := localfs.New(cfg.WorkspaceDir)
	artifacts, err := storage.NewProvider(cfg.WorkspaceDir)
	if err != nil {
		log.LogFatal("cannot initialize storage provider", err)
	}

	processor := worker.NewProcessor(worker.Deps{
		Registry: registry,
		Uploads: uploads.New(workspace, uploads.Limits{
			MaxFileBytes:  cfg.MaxFileBytes(),
			MaxTotalBytes: cfg.MaxTotalBytes(),
			MaxFiles:      cfg.MaxUploadFiles,
		}),
		Music:     music.NewLibrary(cfg.MusicDir()),
		Artifacts: artifacts,
		Pipeline: render.NewPipeline(
			render.NewFrameRenderer(cfg.FontFile),
			ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBin)),
		),
		ScratchDir:    cfg.ScratchDir(),
		RenderTimeout: time.Duration(cfg.RenderTimeoutMinutes) * time.Minute,
		Log:           log,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	pool := worker.NewPool(q, processor, cfg.MaxConcurrentVideos, log)
	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		_ = pool.Run(runCtx)
	}()
	shutdownMgr.Register("workers", func(ctx context.Context) error {
		cancelRun()
		select {
		case <-poolDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	log.Info("worker consuming queue", "queue", cfg.QueueName, "workers", cfg.MaxConcurrentVideos)
	shutdownMgr.Wait()
}
