package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/towertrack/backend/internal/middleware"
	"github.com/towertrack/backend/internal/services"
	"github.com/towertrack/backend/pkg/response"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{
		projectService: services.NewProjectService(db),
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func respondServiceErr(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	response.ServerError(c, err.Error())
}

// List returns paginated projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.projectService.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, resp)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(id)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, project)
}

// Create creates a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(&req, middleware.GetUserID(c))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Created(c, project)
}

// Update updates a project; its derived status is re-cascaded on save
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(id, &req)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, project)
}

// Delete soft-deletes a project
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(id, middleware.GetUserID(c)); err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "project deleted"})
}

// Restore brings a soft-deleted project back
// POST /api/projects/:id/restore
func (h *ProjectHandler) Restore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.projectService.Restore(id); err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "project restored"})
}

// ListDeleted returns soft-deleted projects
// GET /api/projects/deleted
func (h *ProjectHandler) ListDeleted(c *gin.Context) {
	projects, err := h.projectService.ListDeleted()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, projects)
}

// Recompute re-derives the project's status from its sites
// POST /api/projects/:id/recompute
func (h *ProjectHandler) Recompute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.projectService.Recompute(id)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	response.Success(c, result)
}
