package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/towertrack/backend/internal/middleware"
	"github.com/towertrack/backend/internal/services"
	"github.com/towertrack/backend/pkg/response"
	"gorm.io/gorm"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(db *gorm.DB) *ActivityHandler {
	return &ActivityHandler{
		activityService: services.NewActivityService(db),
	}
}

// List returns paginated activities
// GET /api/activities
func (h *ActivityHandler) List(c *gin.Context) {
	var req services.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.activityService.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, resp)
}

// GetByID returns an activity by ID
// GET /api/activities/:id
func (h *ActivityHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	activity, err := h.activityService.GetByID(id)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, activity)
}

// Create creates a new activity under a site
// POST /api/activities
func (h *ActivityHandler) Create(c *gin.Context) {
	var req services.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	activity, err := h.activityService.Create(&req, middleware.GetUserID(c))
	if err != nil {
		respondServiceErr(c, err)
		return
	}

	enqueueRecompute(services.RecomputeLevelActivity, activity.ID)
	response.Created(c, activity)
}

// Update applies field-level edits to an activity
// PUT /api/activities/:id
func (h *ActivityHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	activity, err := h.activityService.Update(id, &req, middleware.GetUserID(c))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, activity)
}

// UpdateWorkItem edits one work item inside an activity sub-site and
// returns the recomputed derived state
// PUT /api/activities/:id/work-items
func (h *ActivityHandler) UpdateWorkItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateWorkItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.activityService.UpdateWorkItem(id, &req)
	if err != nil {
		respondServiceErr(c, err)
		return
	}

	// The activity itself is already recomputed; propagate to site/project
	if activity, err := h.activityService.GetByID(id); err == nil {
		enqueueRecompute(services.RecomputeLevelSite, activity.SiteID)
	}
	response.Success(c, result)
}

// Delete soft-deletes an activity and re-resolves its site
// DELETE /api/activities/:id
func (h *ActivityHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	activity, err := h.activityService.GetByID(id)
	if err != nil {
		respondServiceErr(c, err)
		return
	}

	if err := h.activityService.Delete(id, middleware.GetUserID(c)); err != nil {
		respondServiceErr(c, err)
		return
	}

	enqueueRecompute(services.RecomputeLevelSite, activity.SiteID)
	response.Success(c, gin.H{"message": "activity deleted"})
}

// Restore brings a soft-deleted activity back
// POST /api/activities/:id/restore
func (h *ActivityHandler) Restore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.activityService.Restore(id); err != nil {
		respondServiceErr(c, err)
		return
	}

	enqueueRecompute(services.RecomputeLevelActivity, id)
	response.Success(c, gin.H{"message": "activity restored"})
}

// ListDeleted returns soft-deleted activities
// GET /api/activities/deleted
func (h *ActivityHandler) ListDeleted(c *gin.Context) {
	activities, err := h.activityService.ListDeleted()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, activities)
}

// Recompute re-derives the activity's status and completion percentage
// POST /api/activities/:id/recompute
func (h *ActivityHandler) Recompute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.activityService.Recompute(id)
	if err != nil {
		respondServiceErr(c, err)
		return
	}

	if activity, err := h.activityService.GetByID(id); err == nil {
		enqueueRecompute(services.RecomputeLevelSite, activity.SiteID)
	}
	response.Success(c, result)
}
