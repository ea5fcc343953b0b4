package services

import (
	"time"

	"github.com/towertrack/backend/internal/models"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Name      string `form:"name"`
	Status    string `form:"status"`
	ManagerID uint   `form:"manager_id"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
	ManagerID   uint       `json:"manager_id"`
	Status      string     `json:"status" binding:"omitempty,oneof=planning cancelled"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     time.Time  `json:"end_date" binding:"required"`
}

type UpdateProjectRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ManagerID   *uint      `json:"manager_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Cancel      *bool      `json:"cancel"`
}

// ProjectTimeline is the derived timeline slice returned by a recompute.
type ProjectTimeline struct {
	StartDate   *time.Time `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	ActualStart *time.Time `json:"actual_start,omitempty"`
	ActualEnd   *time.Time `json:"actual_end,omitempty"`
}

// RecomputeProjectResult is the derived state returned by a project
// recomputation.
type RecomputeProjectResult struct {
	Status   string          `json:"status"`
	Timeline ProjectTimeline `json:"timeline"`
}

// List returns paginated projects, deleted ones excluded.
func (s *ProjectService) List(req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	var projects []models.Project
	var total int64

	query := s.db.Model(&models.Project{})
	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.ManagerID != 0 {
		query = query.Where("manager_id = ?", req.ManagerID)
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    projects,
	}, nil
}

// GetByID returns a non-deleted project by id.
func (s *ProjectService) GetByID(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, id).Error; err != nil {
		return nil, wrapDBErr(err, "project", id)
	}
	return &project, nil
}

// Create creates a new project. Status is caller-settable only here; after
// creation it is derived from the project's sites on every save.
func (s *ProjectService) Create(req *CreateProjectRequest, userID uint) (*models.Project, error) {
	status := req.Status
	if status == "" {
		status = models.ProjectStatusPlanning
	}

	project := models.Project{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		Status:      status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedBy:   userID,
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update applies field-level edits and re-derives the project's status from
// its sites inside the same transaction, so the persisted status is always
// consistent with the site set at the time of this save.
func (s *ProjectService) Update(id uint, req *UpdateProjectRequest) (*models.Project, error) {
	var project models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, id).Error; err != nil {
			return wrapDBErr(err, "project", id)
		}

		updates := make(map[string]interface{})
		if req.Name != "" {
			updates["name"] = req.Name
		}
		if req.Description != "" {
			updates["description"] = req.Description
		}
		if req.ManagerID != nil {
			updates["manager_id"] = *req.ManagerID
		}
		if req.StartDate != nil {
			updates["start_date"] = req.StartDate
		}
		if req.EndDate != nil {
			updates["end_date"] = req.EndDate
		}
		if req.Cancel != nil && *req.Cancel {
			updates["status"] = models.ProjectStatusCancelled
			project.Status = models.ProjectStatusCancelled
		}

		derived, err := cascadeUpdates(tx, &project, time.Now())
		if err != nil {
			return err
		}
		for k, v := range derived {
			updates[k] = v
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&project).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Delete soft-deletes a project. Its derived status is frozen at the time
// of deletion; the cascader skips deleted projects entirely.
func (s *ProjectService) Delete(id uint, userID uint) error {
	return softDelete(s.db, &models.Project{}, id, userID)
}

// Restore brings a soft-deleted project back.
func (s *ProjectService) Restore(id uint) error {
	return restoreDeleted(s.db, &models.Project{}, id)
}

// ListDeleted returns soft-deleted projects for administrative recovery.
func (s *ProjectService) ListDeleted() ([]models.Project, error) {
	var projects []models.Project
	err := s.db.Unscoped().Where("deleted_at IS NOT NULL").Order("deleted_at DESC").Find(&projects).Error
	return projects, err
}

// Recompute re-derives the project's status and actual timestamps from the
// current set of its non-deleted sites and persists the result. Explicitly
// callable so any layer can force re-synchronization on demand; soft-deleted
// projects are skipped by the default read and surface as ErrNotFound.
func (s *ProjectService) Recompute(id uint) (*RecomputeProjectResult, error) {
	var project models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, id).Error; err != nil {
			return wrapDBErr(err, "project", id)
		}
		updates, err := cascadeUpdates(tx, &project, time.Now())
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&project).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return &RecomputeProjectResult{
		Status: project.Status,
		Timeline: ProjectTimeline{
			StartDate:   project.StartDate,
			EndDate:     project.EndDate,
			ActualStart: project.ActualStart,
			ActualEnd:   project.ActualEnd,
		},
	}, nil
}

// cascadeUpdates computes the derived project fields from a fresh read of
// the project's non-deleted sites and mutates the in-memory project to
// match. Returns the column updates to persist; empty when nothing changes.
//
// Rules: an empty site set means planning; an all-completed set completes
// the project and stamps actual_end once; any in-progress site activates it
// and stamps actual_start once; otherwise status is left alone, so a
// project never regresses from active or completed back to planning here.
// Cancelled projects are terminal and never touched. A failed sites read is
// returned to the caller; reporting success on a stale status would hide the
// need to retry.
func cascadeUpdates(tx *gorm.DB, project *models.Project, now time.Time) (map[string]interface{}, error) {
	if project.Status == models.ProjectStatusCancelled {
		return nil, nil
	}

	var sites []models.Site
	if err := tx.Where("project_id = ?", project.ID).Find(&sites).Error; err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	switch {
	case len(sites) == 0:
		if project.Status != models.ProjectStatusPlanning {
			project.Status = models.ProjectStatusPlanning
			updates["status"] = models.ProjectStatusPlanning
		}
	case allSitesCompleted(sites):
		if project.Status != models.ProjectStatusCompleted {
			project.Status = models.ProjectStatusCompleted
			updates["status"] = models.ProjectStatusCompleted
		}
		if project.ActualEnd == nil {
			project.ActualEnd = &now
			updates["actual_end"] = now
		}
	case anySiteInProgress(sites):
		if project.Status != models.ProjectStatusActive {
			project.Status = models.ProjectStatusActive
			updates["status"] = models.ProjectStatusActive
		}
		if project.ActualStart == nil {
			project.ActualStart = &now
			updates["actual_start"] = now
		}
	}
	return updates, nil
}

func allSitesCompleted(sites []models.Site) bool {
	for _, site := range sites {
		if site.OverallStatus != models.SiteStatusCompleted {
			return false
		}
	}
	return len(sites) > 0
}

func anySiteInProgress(sites []models.Site) bool {
	for _, site := range sites {
		if site.OverallStatus == models.SiteStatusInProgress {
			return true
		}
	}
	return false
}
