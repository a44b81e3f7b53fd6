package main

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"

	"slidecast/internal/adapters/storage/localfs"
	"slidecast/internal/config"
	"slidecast/internal/httpapi"
	"slidecast/internal/janitor"
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

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "slidecast-api",
	})
	log.Info("starting slidecast API", "env", cfg.Env, "queue_driver", cfg.QueueDriver)

	if err := cfg.EnsureDirectories(); err != nil {
		log.LogFatal("cannot prepare workspace", err)
	}

	// One API instance per workspace; a second one would race the
	// janitor and the in-process workers.
	lock := flock.New(filepath.Join(cfg.WorkspaceDir, ".slidecast.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.LogFatal("cannot acquire workspace lock", err)
	}
	if !locked {
		log.LogFatal("workspace already in use by another instance", nil)
	}
	defer lock.Unlock()

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	registry, err := jobs.OpenRegistry(ctx, cfg)
	if err != nil {
		log.LogFatal("cannot open job registry", err)
	}
	shutdownMgr.Register("job-registry", func(ctx context.Context) error {
		return registry.Close()
	})

	workspace := localfs.New(cfg.WorkspaceDir)
	artifacts, err := storage.NewProvider(cfg.WorkspaceDir)
	if err != nil {
		log.LogFatal("cannot initialize storage provider", err)
	}
	log.Info("storage provider ready", "provider", artifacts.Provider())

	uploadStore := uploads.New(workspace, uploads.Limits{
		MaxFileBytes:  cfg.MaxFileBytes(),
		MaxTotalBytes: cfg.MaxTotalBytes(),
		MaxFiles:      cfg.MaxUploadFiles,
	})
	library := music.NewLibrary(cfg.MusicDir())

	var q queue.Queue
	switch cfg.QueueDriver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("cannot reach redis", err)
		}
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		q = queue.NewRedis(rdb, cfg.QueueName, cfg.QueueCapacity)
		log.Info("redis queue ready", "addr", cfg.RedisAddr, "queue", cfg.QueueName)
	default:
		mem := queue.NewMemory(cfg.QueueCapacity)
		shutdownMgr.Register("queue", func(ctx context.Context) error {
			return mem.Close()
		})
		q = mem
	}

	runCtx, cancelRun := context.WithCancel(ctx)

	// With the memory queue the render workers live in this process.
	// The redis driver moves them to separate worker binaries.
	if cfg.QueueDriver != "redis" {
		pool := worker.NewPool(q, newProcessor(cfg, registry, uploadStore, library, artifacts, log), cfg.MaxConcurrentVideos, log)
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
	}

	sweeper := janitor.New(
		cfg.UploadsDir(), cfg.OutputsDir(),
		time.Duration(cfg.UploadRetentionHours)*time.Hour,
		time.Duration(cfg.OutputRetentionHours)*time.Hour,
		time.Hour,
		log,
	)
	go sweeper.Run(runCtx)
	shutdownMgr.RegisterSimple("janitor", cancelRun)

	router := httpapi.NewRouter(httpapi.Deps{
		Cfg:       cfg,
		Registry:  registry,
		Uploads:   uploadStore,
		Music:     library,
		Artifacts: artifacts,
		Queue:     q,
		Log:       log,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}

func newProcessor(cfg *config.Config, registry jobs.Registry, uploadStore *uploads.Store, library *music.Library, artifacts storage.Store, log *logger.Logger) *worker.Processor {
	pipeline := render.NewPipeline(
		render.NewFrameRenderer(cfg.FontFile),
		ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBin)),
	)
	return worker.NewProcessor(worker.Deps{
		Registry:      registry,
		Uploads:       uploadStore,
		Music:         library,
		Artifacts:     artifacts,
		Pipeline:      pipeline,
		ScratchDir:    cfg.ScratchDir(),
		RenderTimeout: time.Duration(cfg.RenderTimeoutMinutes) * time.Minute,
		Log:           log,
	})
}
