package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/skillgraph-backend/internal/http/response"
	"github.com/yungbote/skillgraph-backend/internal/services"
	"github.com/yungbote/skillgraph-backend/internal/sources/github"
)

type RepositoryFetcher interface {
	services.RepositorySource
	Languages(ctx context.Context, owner string, repos []github.Repository) (map[string]int, error)
}

// SourceHandler exposes the raw upstream data used by builds.
type SourceHandler struct {
	repos RepositoryFetcher
	pages services.PageSource
}

func NewSourceHandler(repos RepositoryFetcher, pages services.PageSource) *SourceHandler {
	return &SourceHandler{repos: repos, pages: pages}
}

type githubFetchRequest struct {
	Username string `json:"username" binding:"required"`
}

type notionFetchRequest struct {
	DatabaseID string `json:"database_id" binding:"required"`
}

// POST /api/github/fetch
func (h *SourceHandler) FetchGitHub(c *gin.Context) {
	if h.repos == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "github_not_configured", errors.New("github source is not configured"))
		return
	}
	var req githubFetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	repos, err := h.repos.ListRepositories(ctx, req.Username)
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, http.StatusBadGateway, "github_fetch_failed", err)
		return
	}
	langs, err := h.repos.Languages(ctx, req.Username, repos)
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, http.StatusBadGateway, "github_fetch_failed", err)
		return
	}
	if repos == nil {
		repos = []github.Repository{}
	}
	response.RespondOK(c, gin.H{
		"status": "success",
		"data": gin.H{
			"repositories": repos,
			"languages":    langs,
			"count":        len(repos),
		},
	})
}

// POST /api/notion/fetch
func (h *SourceHandler) FetchNotion(c *gin.Context) {
	if h.pages == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "notion_not_configured", errors.New("notion source is not configured"))
		return
	}
	var req notionFetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pages, err := h.pages.QueryDatabase(c.Request.Context(), req.DatabaseID)
	if err != nil {
		_ = c.Error(err)
		if services.IsNotConfigured(err) {
			response.RespondError(c, http.StatusServiceUnavailable, "notion_not_configured", err)
			return
		}
		response.RespondError(c, http.StatusBadGateway, "notion_fetch_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"status": "success",
		"data": gin.H{
			"pages": pages,
			"count": len(pages),
		},
	})
}
