package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"importscout/internal/common"
	"importscout/internal/research"
	"importscout/internal/research/pipeline"
)

var queueableStages = map[string]bool{
	research.StageSourcing:    true,
	research.StageTrends:      true,
	research.StageRegulation:  true,
	research.StageImpositive:  true,
	research.StageMarket:      true,
	pipeline.StageOpportunity: true,
}

type enqueueJobReq struct {
	SessionID string          `json:"session_id" binding:"required"`
	Stage     string          `json:"stage" binding:"required"`
	Params    json.RawMessage `json:"params"`
}

// EnqueueJob queues one stage execution for the worker. An Idempotency-Key
// header makes repeated submissions return the original job without
// re-publishing.
func (h *Handler) EnqueueJob(c *gin.Context) {
	var req enqueueJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !queueableStages[req.Stage] {
		common.Fail(c, http.StatusBadRequest, 10004, "unknown stage")
		return
	}
	if h.Rabbit == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "job queue unavailable")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	jobID, err := common.NewULID()
	if err != nil {
		h.Log.Error("job id generation failed", "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	job := &research.Job{
		ID:             jobID,
		SessionID:      req.SessionID,
		Stage:          req.Stage,
		ParamsJSON:     string(req.Params),
		IdempotencyKey: idempoKeyPtr,
		Status:         research.JobQueued,
	}

	job, created, err := h.Store.CreateJobOrGetExisting(c.Request.Context(), job)
	if err != nil {
		h.Log.Error("job create failed", "session_id", req.SessionID, "stage", req.Stage, "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	// Publish only for a newly created row; replays return the original.
	if created {
		if err := h.Rabbit.PublishJob(c.Request.Context(), job.ID); err != nil {
			h.Log.Error("job publish failed", "job_id", job.ID, "error", err.Error())
			common.Fail(c, http.StatusInternalServerError, 50008, "enqueue failed")
			return
		}
	}

	common.OK(c, gin.H{"job_id": job.ID, "status": job.Status})
}

func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	job, err := h.Store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":         job.ID,
			"session_id": job.SessionID,
			"stage":      job.Stage,
			"status":     job.Status,
			"error":      job.Error,
			"created_at": job.CreatedAt,
			"updated_at": job.UpdatedAt,
		},
	})
}
