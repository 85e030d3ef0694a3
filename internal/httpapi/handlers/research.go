package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"importscout/internal/common"
	"importscout/internal/research"
	"importscout/internal/research/pipeline"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"status": "ok"})
}

type initiateReq struct {
	RawQuery    string `json:"raw_query" binding:"required,max=500"`
	CountryCode string `json:"country_code" binding:"omitempty,len=2"`
}

func (h *Handler) InitiateSession(c *gin.Context) {
	var req initiateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	init, err := h.Pipeline.InitiateSession(c.Request.Context(), req.RawQuery, req.CountryCode, c.ClientIP())
	if err != nil {
		h.Log.Error("initiate session failed", "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to initiate session")
		return
	}
	common.OK(c, init)
}

type sourcingReq struct {
	NormalizedQuery string `json:"normalized_query" binding:"required"`
	CountryCode     string `json:"country_code" binding:"required,len=2"`
	SessionID       string `json:"session_id"`
}

func (h *Handler) RunSourcing(c *gin.Context) {
	var req sourcingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	result, err := h.Pipeline.RunSourcing(c.Request.Context(), pipeline.SourcingInput{
		NormalizedQuery: req.NormalizedQuery,
		CountryCode:     req.CountryCode,
		SessionID:       req.SessionID,
	})
	if err != nil {
		h.Log.Error("sourcing failed", "session_id", req.SessionID, "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50002, "sourcing failed")
		return
	}
	common.OK(c, result)
}

type trendsReq struct {
	TrendKeywords       []string `json:"trend_keywords" binding:"required,min=1,max=5"`
	Geo                 string   `json:"geo" binding:"required,len=2"`
	UseRegionalLanguage bool     `json:"use_regional_language"`
	SessionID           string   `json:"session_id"`
}

func (h *Handler) RunTrends(c *gin.Context) {
	var req trendsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	report, err := h.Pipeline.RunTrends(c.Request.Context(), pipeline.TrendsInput{
		TrendKeywords:       req.TrendKeywords,
		Geo:                 req.Geo,
		UseRegionalLanguage: req.UseRegionalLanguage,
		SessionID:           req.SessionID,
	})
	if err != nil {
		h.Log.Error("trends failed", "session_id", req.SessionID, "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50003, "trends research failed")
		return
	}
	common.OK(c, report)
}

type regulationReq struct {
	HSCode                string   `json:"hs_code" binding:"required"`
	CountryCode           string   `json:"country_code" binding:"required,len=2"`
	RegulatoryFlags       []string `json:"regulatory_flags"`
	ImportRegulations     []string `json:"import_regulations"`
	ImpositiveRegulations []string `json:"impositive_regulations"`
	SessionID             string   `json:"session_id"`
}

func (h *Handler) RunRegulation(c *gin.Context) {
	var req regulationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	report, err := h.Pipeline.RunRegulation(c.Request.Context(), pipeline.RegulationInput{
		HSCode:                req.HSCode,
		CountryCode:           req.CountryCode,
		RegulatoryFlags:       req.RegulatoryFlags,
		ImportRegulations:     req.ImportRegulations,
		ImpositiveRegulations: req.ImpositiveRegulations,
		SessionID:             req.SessionID,
	})
	if err != nil {
		h.Log.Error("regulation failed", "session_id", req.SessionID, "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50004, "regulation research failed")
		return
	}
	common.OK(c, report)
}

type impositiveReq struct {
	HSCode                string   `json:"hs_code" binding:"required"`
	CountryCode           string   `json:"country_code" binding:"required,len=2"`
	ProductName           string   `json:"product_name" binding:"required"`
	ImpositiveRegulations []string `json:"impositive_regulations"`
	SessionID             string   `json:"session_id"`
}

func (h *Handler) RunImpositive(c *gin.Context) {
	var req impositiveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	report, err := h.Pipeline.RunImpositive(c.Request.Context(), pipeline.ImpositiveInput{
		HSCode:                req.HSCode,
		CountryCode:           req.CountryCode,
		ProductName:           req.ProductName,
		ImpositiveRegulations: req.ImpositiveRegulations,
		SessionID:             req.SessionID,
	})
	if err != nil {
		h.Log.Error("impositive failed", "session_id", req.SessionID, "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50005, "tax research failed")
		return
	}
	common.OK(c, report)
}

type marketReq struct {
	MarketSearchTerms []string `json:"market_search_terms" binding:"required,min=1"`
	CountryCode       string   `json:"country_code" binding:"required,len=2"`
	SessionID         string   `json:"session_id"`
}

func (h *Handler) RunMarket(c *gin.Context) {
	var req marketReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	report, err := h.Pipeline.RunMarket(c.Request.Context(), pipeline.MarketInput{
		MarketSearchTerms: req.MarketSearchTerms,
		CountryCode:       req.CountryCode,
		SessionID:         req.SessionID,
	})
	if err != nil {
		h.Log.Error("market failed", "session_id", req.SessionID, "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50006, "market research failed")
		return
	}
	common.OK(c, report)
}

type synthesizeReq struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *Handler) SynthesizeOpportunity(c *gin.Context) {
	var req synthesizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	report, err := h.Pipeline.SynthesizeOpportunity(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, research.ErrIncompleteSession) {
			common.Fail(c, http.StatusConflict, 40901, "sourcing and product metadata are required before synthesis")
			return
		}
		h.Log.Error("opportunity synthesis failed", "session_id", req.SessionID, "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50007, "opportunity synthesis failed")
		return
	}
	common.OK(c, report)
}

func (h *Handler) GetOpportunity(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "session_id required")
		return
	}

	report, err := h.Pipeline.GetOpportunity(c.Request.Context(), sessionID)
	if err != nil {
		h.Log.Error("get opportunity failed", "session_id", sessionID, "error", err.Error())
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	// nil report means the session was never synthesized; that is not an
	// error for pollers.
	common.OK(c, report)
}
