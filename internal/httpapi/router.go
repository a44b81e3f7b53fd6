// Package httpapi assembles the HTTP surface of the service.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/config"
	"slidecast/internal/httpapi/handlers"
	"slidecast/internal/httpkit"
	"slidecast/internal/jobs"
	"slidecast/internal/music"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/pkg/middleware"
	"slidecast/internal/ports"
	"slidecast/internal/queue"
	"slidecast/internal/uploads"
)

type Deps struct {
	Cfg       *config.Config
	Registry  jobs.Registry
	Uploads   *uploads.Store
	Music     *music.Library
	Artifacts ports.ObjectStore
	Queue     queue.Queue
	Log       *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Cfg:       d.Cfg,
		Registry:  d.Registry,
		Uploads:   d.Uploads,
		Music:     d.Music,
		Artifacts: d.Artifacts,
		Queue:     d.Queue,
		Log:       log,
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/upload/images", h.UploadImages)

		r.Post("/video/generate", h.GenerateVideo)
		r.Get("/video/status/{jobID}", h.VideoStatus)
		r.Get("/video/download/{jobID}", h.DownloadVideo)

		r.Get("/music/library", h.MusicLibrary)
	})

	return r
}
