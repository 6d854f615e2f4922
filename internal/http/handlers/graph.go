package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/http/response"
	"github.com/yungbote/skillgraph-backend/internal/services"
)

type GraphHandler struct {
	store services.GraphStore
	build services.BuildService
}

func NewGraphHandler(store services.GraphStore, build services.BuildService) *GraphHandler {
	return &GraphHandler{store: store, build: build}
}

type rebuildRequest struct {
	Tuples []types.Tuple `json:"tuples" binding:"required"`
}

// POST /api/graph/rebuild
func (h *GraphHandler) Rebuild(c *gin.Context) {
	var req rebuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.store.Rebuild(c.Request.Context(), req.Tuples)
	if err != nil {
		_ = c.Error(err)
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": "success", "data": res})
}

// POST /api/graph/build
func (h *GraphHandler) Build(c *gin.Context) {
	if h.build == nil {
		response.RespondError(c, http.StatusNotImplemented, "build_not_configured", errors.New("source build is not configured"))
		return
	}
	var req services.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.build.Build(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, services.ErrSourceFetch) {
			response.RespondError(c, http.StatusBadGateway, "source_fetch_failed", err)
			return
		}
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": "success", "message": res.Message(), "data": res})
}

// GET /api/graph/data?limit=N
//
// Always 200: a store outage yields an empty graph with degraded=true so the
// frontend can still render.
func (h *GraphHandler) Data(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	viz, err := h.store.QueryVisualization(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusOK, gin.H{
			"status":   "degraded",
			"data":     viz,
			"degraded": true,
			"error":    err.Error(),
		})
		return
	}
	response.RespondOK(c, gin.H{"status": "success", "data": viz, "degraded": false})
}
