package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"importscout/internal/common"
	"importscout/internal/httpapi/handlers"
	"importscout/internal/httpapi/middleware"
	"importscout/internal/logger"
	"importscout/internal/research"
	"importscout/internal/research/pipeline"
	"importscout/internal/store/rabbitmq"
)

func NewRouter(svc *pipeline.Service, store *research.Store, rabbit *rabbitmq.Publisher, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(svc, store, rabbit, log)

	r.GET("/ping", h.Ping)

	res := r.Group("/research")
	res.POST("/sessions", h.InitiateSession)
	res.POST("/sourcing", h.RunSourcing)
	res.POST("/trends", h.RunTrends)
	res.POST("/regulations", h.RunRegulation)
	res.POST("/impositive", h.RunImpositive)
	res.POST("/market", h.RunMarket)
	res.POST("/opportunity/synthesize", h.SynthesizeOpportunity)
	res.GET("/opportunity/:session_id", h.GetOpportunity)

	// async stage execution
	res.POST("/jobs", h.EnqueueJob)
	res.GET("/jobs/:job_id", h.GetJob)

	return r
}
