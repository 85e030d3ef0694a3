package handlers

import (
	"importscout/internal/logger"
	"importscout/internal/research"
	"importscout/internal/research/pipeline"
	"importscout/internal/store/rabbitmq"
)

type Handler struct {
	Pipeline *pipeline.Service
	Store    *research.Store
	// Rabbit may be nil; job endpoints then report the queue as unavailable.
	Rabbit *rabbitmq.Publisher
	Log    *logger.Logger
}

func NewHandler(svc *pipeline.Service, store *research.Store, rabbit *rabbitmq.Publisher, log *logger.Logger) *Handler {
	return &Handler{
		Pipeline: svc,
		Store:    store,
		Rabbit:   rabbit,
		Log:      log.With("component", "http"),
	}
}
