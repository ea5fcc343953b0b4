package services

import (
	"math"
	"time"

	"github.com/towertrack/backend/internal/models"
	"gorm.io/gorm"
)

type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

type ActivityListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SiteID   uint   `form:"site_id"`
	Kind     string `form:"kind" binding:"omitempty,oneof=dismantling cow relocation"`
	Status   string `form:"status"`
}

type ActivityListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []models.Activity `json:"items"`
}

type CreateActivityRequest struct {
	SiteID          uint            `json:"site_id" binding:"required"`
	Kind            string          `json:"kind" binding:"required,oneof=dismantling cow relocation"`
	Description     string          `json:"description"`
	Status          string          `json:"status" binding:"omitempty,oneof=draft planned"`
	SourceSiteName  string          `json:"source_site_name"`
	DestinationName string          `json:"destination_name"`
	AssignedTo      []uint          `json:"assigned_to"`
	PlannedStart    *time.Time      `json:"planned_start"`
	PlannedEnd      *time.Time      `json:"planned_end"`
}

type UpdateActivityRequest struct {
	Description  string     `json:"description"`
	AssignedTo   []uint     `json:"assigned_to"`
	AssignedBy   *uint      `json:"assigned_by"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
}

// UpdateWorkItemRequest edits one work item inside an activity sub-site.
// Work items have no identity of their own; they are addressed by sub-site
// and work type key.
type UpdateWorkItemRequest struct {
	Target        string  `json:"target" binding:"required,oneof=source destination"`
	WorkType      string  `json:"work_type" binding:"required"`
	Required      *bool   `json:"required"`
	Status        string  `json:"status" binding:"omitempty,oneof=not_started in_progress completed"`
	AssignedUsers []uint  `json:"assigned_users"`
	Notes         *string `json:"notes"`
}

// RecomputeActivityResult is the derived state returned by a recomputation.
type RecomputeActivityResult struct {
	OverallStatus        string     `json:"overall_status"`
	CompletionPercentage int        `json:"completion_percentage"`
	ActualStart          *time.Time `json:"actual_start,omitempty"`
	ActualEnd            *time.Time `json:"actual_end,omitempty"`
}

// List returns paginated activities, deleted ones excluded.
func (s *ActivityService) List(req *ActivityListRequest) (*ActivityListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var activities []models.Activity
	var total int64

	query := s.db.Model(&models.Activity{})
	if req.SiteID != 0 {
		query = query.Where("site_id = ?", req.SiteID)
	}
	if req.Kind != "" {
		query = query.Where("kind = ?", req.Kind)
	}
	if req.Status != "" {
		query = query.Where("overall_status = ?", req.Status)
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&activities).Error; err != nil {
		return nil, err
	}

	return &ActivityListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    activities,
	}, nil
}

// GetByID returns a non-deleted activity by id.
func (s *ActivityService) GetByID(id uint) (*models.Activity, error) {
	var activity models.Activity
	if err := s.db.First(&activity, id).Error; err != nil {
		return nil, wrapDBErr(err, "activity", id)
	}
	return &activity, nil
}

// Create creates a new activity under a site. The source sub-site (and the
// destination for relocation/COW kinds) starts with the default work types.
func (s *ActivityService) Create(req *CreateActivityRequest, userID uint) (*models.Activity, error) {
	var site models.Site
	if err := s.db.First(&site, req.SiteID).Error; err != nil {
		return nil, wrapDBErr(err, "site", req.SiteID)
	}

	status := req.Status
	if status == "" {
		status = models.ActivityStatusDraft
	}
	sourceName := req.SourceSiteName
	if sourceName == "" {
		sourceName = site.Name
	}

	activity := models.Activity{
		SiteID:        req.SiteID,
		Kind:          req.Kind,
		Description:   req.Description,
		OverallStatus: status,
		SourceSite:    models.NewSubSite(sourceName),
		AssignedTo:    req.AssignedTo,
		PlannedStart:  req.PlannedStart,
		PlannedEnd:    req.PlannedEnd,
		CreatedBy:     userID,
	}
	if activity.HasDestination() {
		dest := models.NewSubSite(req.DestinationName)
		activity.DestinationSite = &dest
	}
	if len(req.AssignedTo) > 0 {
		now := time.Now()
		activity.AssignedBy = &userID
		activity.AssignedDate = &now
		activity.AssignmentStatus = "assigned"
	}

	if err := s.db.Create(&activity).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

// Update applies field-level edits. Derived fields are not writable here;
// they only change through Recompute.
func (s *ActivityService) Update(id uint, req *UpdateActivityRequest, userID uint) (*models.Activity, error) {
	activity, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	var cols []string
	if req.Description != "" {
		activity.Description = req.Description
		cols = append(cols, "description")
	}
	if req.AssignedTo != nil {
		now := time.Now()
		activity.AssignedTo = req.AssignedTo
		activity.AssignedBy = &userID
		activity.AssignedDate = &now
		activity.AssignmentStatus = "assigned"
		cols = append(cols, "assigned_to", "assigned_by", "assigned_date", "assignment_status")
	}
	if req.PlannedStart != nil {
		activity.PlannedStart = req.PlannedStart
		cols = append(cols, "planned_start")
	}
	if req.PlannedEnd != nil {
		activity.PlannedEnd = req.PlannedEnd
		cols = append(cols, "planned_end")
	}

	if len(cols) > 0 {
		if err := s.db.Model(activity).Select(cols).Updates(activity).Error; err != nil {
			return nil, err
		}
	}
	return activity, nil
}

// UpdateWorkItem edits a single work item in the activity's source or
// destination sub-site and recomputes the activity's derived state.
func (s *ActivityService) UpdateWorkItem(id uint, req *UpdateWorkItemRequest) (*RecomputeActivityResult, error) {
	activity, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	var sub *models.SubSite
	switch req.Target {
	case "source":
		sub = &activity.SourceSite
	case "destination":
		if activity.DestinationSite == nil {
			return nil, wrapDBErr(gorm.ErrRecordNotFound, "destination sub-site of activity", id)
		}
		sub = activity.DestinationSite
	}

	if sub.WorkItems == nil {
		sub.WorkItems = models.WorkItemMap{}
	}
	wi := sub.WorkItems[req.WorkType]
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
	sub.WorkItems[req.WorkType] = wi

	// Struct-path update so the json serializer runs on the sub-site
	// columns; a map update would hand the raw structs to the driver.
	if err := s.db.Model(activity).Select("source_site", "destination_site").Updates(activity).Error; err != nil {
		return nil, err
	}

	return s.Recompute(id)
}

// Delete soft-deletes an activity, recording who removed it. The row stays
// in place; every default read and every aggregation above it stops seeing
// it from now on.
func (s *ActivityService) Delete(id uint, userID uint) error {
	return softDelete(s.db, &models.Activity{}, id, userID)
}

// Restore brings a soft-deleted activity back into view.
func (s *ActivityService) Restore(id uint) error {
	return restoreDeleted(s.db, &models.Activity{}, id)
}

// ListDeleted returns soft-deleted activities for administrative recovery.
func (s *ActivityService) ListDeleted() ([]models.Activity, error) {
	var activities []models.Activity
	err := s.db.Unscoped().Where("deleted_at IS NOT NULL").Order("deleted_at DESC").Find(&activities).Error
	return activities, err
}

// Recompute derives the activity's overall status and completion
// percentage from its work items and persists the result. Safe to call any
// number of times: with unchanged children it writes the same values and
// never re-stamps the actual timestamps.
func (s *ActivityService) Recompute(id uint) (*RecomputeActivityResult, error) {
	var activity models.Activity
	if err := s.db.First(&activity, id).Error; err != nil {
		return nil, wrapDBErr(err, "activity", id)
	}

	now := time.Now()
	status, pct := deriveActivityState(&activity)

	cols := []string{"overall_status", "completion_percentage"}

	// Monotonic stamps: set once, never overwritten.
	if !isInitialActivityStatus(status) && activity.ActualStart == nil {
		activity.ActualStart = &now
		cols = append(cols, "actual_start")
	}
	if status == models.ActivityStatusCompleted && activity.ActualEnd == nil {
		activity.ActualEnd = &now
		cols = append(cols, "actual_end")
	}
	if status != activity.OverallStatus {
		if activity.StageDates == nil {
			activity.StageDates = map[string]time.Time{}
		}
		if _, seen := activity.StageDates[status]; !seen {
			activity.StageDates[status] = now
			cols = append(cols, "stage_dates")
		}
	}
	activity.OverallStatus = status
	activity.CompletionPercentage = pct

	// Struct path so stage_dates goes through the json serializer.
	if err := s.db.Model(&activity).Select(cols).Updates(&activity).Error; err != nil {
		return nil, err
	}

	return &RecomputeActivityResult{
		OverallStatus:        status,
		CompletionPercentage: pct,
		ActualStart:          activity.ActualStart,
		ActualEnd:            activity.ActualEnd,
	}, nil
}

// deriveActivityState computes the derived status and completion percentage
// from the activity's work items across both sub-sites. Pure: no clock, no
// database.
//
// Completion is the rounded mean of required items' contributions; with no
// required items it is zero and the status cannot auto-advance. Status
// priority: all required items completed wins, any started item means
// in_progress, otherwise the existing initial status is retained.
func deriveActivityState(a *models.Activity) (status string, pct int) {
	var sum, required int
	allCompleted := true
	anyStarted := false

	for _, wi := range a.CollectWorkItems() {
		st, contribution := EvaluateWorkItem(wi)
		if !wi.Required {
			continue
		}
		required++
		sum += contribution
		if st != models.WorkStatusCompleted {
			allCompleted = false
		}
		if st == models.WorkStatusCompleted || st == models.WorkStatusInProgress {
			anyStarted = true
		}
	}

	if required == 0 {
		return a.OverallStatus, 0
	}

	pct = int(math.Round(float64(sum) / float64(required)))
	switch {
	case allCompleted:
		return models.ActivityStatusCompleted, pct
	case anyStarted:
		return models.ActivityStatusInProgress, pct
	default:
		return a.OverallStatus, pct
	}
}

func isInitialActivityStatus(s string) bool {
	return s == models.ActivityStatusDraft || s == models.ActivityStatusPlanned
}
