package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/towertrack/backend/internal/middleware"
	"github.com/towertrack/backend/internal/services"
	"github.com/towertrack/backend/pkg/logger"
	"github.com/towertrack/backend/pkg/response"
	"gorm.io/gorm"
)

type SiteHandler struct {
	siteService *services.SiteService
}

func NewSiteHandler(db *gorm.DB) *SiteHandler {
	return &SiteHandler{
		siteService: services.NewSiteService(db),
	}
}

// enqueueRecompute pushes an upward recompute onto the queue. Failures are
// logged by the queue itself; the write that triggered them has already
// succeeded, and the reconciliation sweep will catch anything missed.
func enqueueRecompute(level string, id uint) {
	q := services.GetRecomputeQueue()
	if q == nil {
		return
	}
	if err := q.Enqueue(&services.RecomputeTask{Level: level, ID: id}); err != nil {
		logger.Warn().Err(err).Str("level", level).Uint("id", id).Msg("recompute enqueue failed")
	}
}

// List returns paginated sites
// GET /api/sites
func (h *SiteHandler) List(c *gin.Context) {
	var req services.SiteListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.siteService.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, resp)
}

// GetByID returns a site by ID
// GET /api/sites/:id
func (h *SiteHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	site, err := h.siteService.GetByID(id)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, site)
}

// Create creates a new site under a project
// POST /api/sites
func (h *SiteHandler) Create(c *gin.Context) {
	var req services.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	site, err := h.siteService.Create(&req, middleware.GetUserID(c))
	if err != nil {
		respondServiceErr(c, err)
		return
	}

	// A new site changes the project's derived status
	enqueueRecompute(services.RecomputeLevelProject, site.ProjectID)
	response.Created(c, site)
}

// Update updates a site
// PUT /api/sites/:id
func (h *SiteHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	site, err := h.siteService.Update(id, &req)
	if err != nil {
		respondServiceErr(c, err)
		return
	}

	enqueueRecompute(services.RecomputeLevelProject, site.ProjectID)
	response.Success(c, site)
}

// UpdateWorkItem edits one work item in the site-level work map
// PUT /api/sites/:id/work-items
func (h *SiteHandler) UpdateWorkItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.SiteWorkItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	site, err := h.siteService.UpdateWorkItem(id, &req)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, site)
}

// Delete soft-deletes a site
// DELETE /api/sites/:id
func (h *SiteHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	site, err := h.siteService.GetByID(id)
	if err != nil {
		respondServiceErr(c, err)
		return
	}

	if err := h.siteService.Delete(id, middleware.GetUserID(c)); err != nil {
		respondServiceErr(c, err)
		return
	}

	enqueueRecompute(services.RecomputeLevelProject, site.ProjectID)
	response.Success(c, gin.H{"message": "site deleted"})
}

// Restore brings a soft-deleted site back
// POST /api/sites/:id/restore
func (h *SiteHandler) Restore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.siteService.Restore(id); err != nil {
		respondServiceErr(c, err)
		return
	}

	// Re-resolve the restored site and its project
	enqueueRecompute(services.RecomputeLevelSite, id)
	response.Success(c, gin.H{"message": "site restored"})
}

// ListDeleted returns soft-deleted sites
// GET /api/sites/deleted
func (h *SiteHandler) ListDeleted(c *gin.Context) {
	sites, err := h.siteService.ListDeleted()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, sites)
}

// Recompute re-derives the site's status from its activities
// POST /api/sites/:id/recompute
func (h *SiteHandler) Recompute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.siteService.Recompute(id)
	if err != nil {
		respondServiceErr(c, err)
		return
	}

	// Propagate upward: the site's change may activate or complete the project
	if site, err := h.siteService.GetByID(id); err == nil {
		enqueueRecompute(services.RecomputeLevelProject, site.ProjectID)
	}
	response.Success(c, result)
}
