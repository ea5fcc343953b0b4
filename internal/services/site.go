package services

import (
	"github.com/towertrack/backend/internal/models"
	"gorm.io/gorm"
)

type SiteService struct {
	db *gorm.DB
}

func NewSiteService(db *gorm.DB) *SiteService {
	return &SiteService{db: db}
}

type SiteListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	ProjectID uint   `form:"project_id"`
	Region    string `form:"region"`
	Status    string `form:"status"`
	Name      string `form:"name"`
}

type SiteListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.Site `json:"items"`
}

type CreateSiteRequest struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Code      string `json:"code"`
	Region    string `json:"region"`
	Notes     string `json:"notes"`
}

type UpdateSiteRequest struct {
	Name   string `json:"name"`
	Region string `json:"region"`
	Notes  string `json:"notes"`
	OnHold *bool  `json:"on_hold"`
}

// SiteWorkItemRequest edits one work item in the site-level work map. Unlike
// activity work items there is no sub-site target; the map hangs directly off
// the site.
type SiteWorkItemRequest struct {
	WorkType      string  `json:"work_type" binding:"required"`
	Required      *bool   `json:"required"`
	Status        string  `json:"status" binding:"omitempty,oneof=not_started in_progress completed"`
	AssignedUsers []uint  `json:"assigned_users"`
	Notes         *string `json:"notes"`
}

// RecomputeSiteResult is the derived state returned by a site recomputation.
type RecomputeSiteResult struct {
	OverallStatus string `json:"overall_status"`
}

// List returns paginated sites, deleted ones excluded.
func (s *SiteService) List(req *SiteListRequest) (*SiteListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var sites []models.Site
	var total int64

	query := s.db.Model(&models.Site{})
	if req.ProjectID != 0 {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.Region != "" {
		query = query.Where("region = ?", req.Region)
	}
	if req.Status != "" {
		query = query.Where("overall_status = ?", req.Status)
	}
	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&sites).Error; err != nil {
		return nil, err
	}

	return &SiteListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    sites,
	}, nil
}

// GetByID returns a non-deleted site by id.
func (s *SiteService) GetByID(id uint) (*models.Site, error) {
	var site models.Site
	if err := s.db.First(&site, id).Error; err != nil {
		return nil, wrapDBErr(err, "site", id)
	}
	return &site, nil
}

// Create creates a site under a project with the default work type map.
func (s *SiteService) Create(req *CreateSiteRequest, userID uint) (*models.Site, error) {
	var project models.Project
	if err := s.db.First(&project, req.ProjectID).Error; err != nil {
		return nil, wrapDBErr(err, "project", req.ProjectID)
	}

	site := models.Site{
		ProjectID:     req.ProjectID,
		Name:          req.Name,
		Code:          req.Code,
		Region:        req.Region,
		OverallStatus: models.SiteStatusNotStarted,
		WorkItems:     models.NewSubSite(req.Name).WorkItems,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}
	if err := s.db.Create(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// Update applies field-level edits. OverallStatus is derived and not
// writable here, except for the explicit hold toggle.
func (s *SiteService) Update(id uint, req *UpdateSiteRequest) (*models.Site, error) {
	site, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Region != "" {
		updates["region"] = req.Region
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}
	if req.OnHold != nil {
		if *req.OnHold {
			updates["overall_status"] = models.SiteStatusOnHold
		} else {
			var activities []models.Activity
			if err := s.db.Where("site_id = ?", id).Find(&activities).Error; err != nil {
				return nil, err
			}
			updates["overall_status"] = resolveSiteStatus(activities)
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(site).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return site, nil
}

// UpdateWorkItem edits one work item in the site-level work map.
func (s *SiteService) UpdateWorkItem(id uint, req *SiteWorkItemRequest) (*models.Site, error) {
	site, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if site.WorkItems == nil {
		site.WorkItems = models.WorkItemMap{}
	}
	wi := site.WorkItems[req.WorkType]
	if req.Required != nil {
		wi.Required = *req.Required
	}
	if req.Status != "" {
		wi.Status = req.Status
	}
	if req.AssignedUsers != nil {
		wi.AssignedUsers = req.AssignedUsers
	}
	if req.Notes != nil {
		wi.Notes = *req.Notes
	}
	site.WorkItems[req.WorkType] = wi

	// Struct path so the work item map goes through the json serializer.
	if err := s.db.Model(site).Select("work_items").Updates(site).Error; err != nil {
		return nil, err
	}
	return site, nil
}

// Delete soft-deletes a site.
func (s *SiteService) Delete(id uint, userID uint) error {
	return softDelete(s.db, &models.Site{}, id, userID)
}

// Restore brings a soft-deleted site back.
func (s *SiteService) Restore(id uint) error {
	return restoreDeleted(s.db, &models.Site{}, id)
}

// ListDeleted returns soft-deleted sites for administrative recovery.
func (s *SiteService) ListDeleted() ([]models.Site, error) {
	var sites []models.Site
	err := s.db.Unscoped().Where("deleted_at IS NOT NULL").Order("deleted_at DESC").Find(&sites).Error
	return sites, err
}

// Recompute derives the site's overall status from the full current set of
// its non-deleted activities and persists it. The set is always re-read;
// the resolver never applies a delta, so concurrent activity updates under
// the same site cannot corrupt the result.
func (s *SiteService) Recompute(id uint) (*RecomputeSiteResult, error) {
	var site models.Site
	if err := s.db.First(&site, id).Error; err != nil {
		return nil, wrapDBErr(err, "site", id)
	}

	var activities []models.Activity
	if err := s.db.Where("site_id = ?", id).Find(&activities).Error; err != nil {
		return nil, err
	}

	status := resolveSiteStatus(activities)
	if err := s.db.Model(&site).Update("overall_status", status).Error; err != nil {
		return nil, err
	}
	return &RecomputeSiteResult{OverallStatus: status}, nil
}

// resolveSiteStatus derives a site status from its non-deleted activities.
// An empty set is not_started; completion requires a non-empty, unanimous
// set, so a single outstanding activity blocks it; any in-progress-like
// activity wins over all-not-started.
func resolveSiteStatus(activities []models.Activity) string {
	if len(activities) == 0 {
		return models.SiteStatusNotStarted
	}

	allCompleted := true
	anyInProgress := false
	for _, a := range activities {
		if a.OverallStatus != models.ActivityStatusCompleted {
			allCompleted = false
		}
		switch a.OverallStatus {
		case models.ActivityStatusInProgress,
			models.ActivityStatusDismantling,
			models.ActivityStatusDispatching,
			models.ActivityStatusSurveying:
			anyInProgress = true
		}
	}

	switch {
	case allCompleted:
		return models.SiteStatusCompleted
	case anyInProgress:
		return models.SiteStatusInProgress
	default:
		return models.SiteStatusNotStarted
	}
}
