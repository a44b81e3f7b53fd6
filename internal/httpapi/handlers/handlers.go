// Package handlers implements the HTTP endpoints of the slidecast API.
package handlers

import (
	"github.com/go-playground/validator/v10"

	"slidecast/internal/config"
	"slidecast/internal/jobs"
	"slidecast/internal/music"
	"slidecast/internal/pkg/logger"
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

type Handler struct {
	cfg       *config.Config
	registry  jobs.Registry
	uploads   *uploads.Store
	music     *music.Library
	artifacts ports.ObjectStore
	queue     queue.Queue
	validate  *validator.Validate
	log       *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		cfg:       d.Cfg,
		registry:  d.Registry,
		uploads:   d.Uploads,
		music:     d.Music,
		artifacts: d.Artifacts,
		queue:     d.Queue,
		validate:  validator.New(),
		log:       log.WithComponent("httpapi"),
	}
}
