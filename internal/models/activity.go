package models

import (
	"time"

	"gorm.io/gorm"
)

// Activity kinds. COW is a temporary-coverage (cell-on-wheels) deployment.
const (
	ActivityKindDismantling = "dismantling"
	ActivityKindCOW         = "cow"
	ActivityKindRelocation  = "relocation"
)

// Activity status values. draft and planned are the initial states; the
// aggregator only ever moves an activity forward from them. The
// kind-specific field statuses (dismantling, dispatching, surveying) count
// as in-progress for site resolution.
const (
	ActivityStatusDraft       = "draft"
	ActivityStatusPlanned     = "planned"
	ActivityStatusInProgress  = "in_progress"
	ActivityStatusDismantling = "dismantling"
	ActivityStatusDispatching = "dispatching"
	ActivityStatusSurveying   = "surveying"
	ActivityStatusCompleted   = "completed"
)

// Activity is a unit of field work against a site: a dismantling, a
// relocation, or a COW deployment. The three kinds share one status and
// completion contract; they differ only in which embedded sub-sites carry
// work items. OverallStatus, CompletionPercentage, ActualStart and
// ActualEnd are derived; the actual timestamps are set once and never
// overwritten by recomputation.
type Activity struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	SiteID               uint           `gorm:"index;not null" json:"site_id"`
	Kind                 string         `gorm:"size:50;not null" json:"kind"`
	Description          string         `gorm:"type:text" json:"description"`
	OverallStatus        string         `gorm:"size:50;default:draft" json:"overall_status"`
	CompletionPercentage int            `gorm:"default:0" json:"completion_percentage"`
	SourceSite           SubSite        `gorm:"serializer:json;type:text" json:"source_site"`
	DestinationSite      *SubSite       `gorm:"serializer:json;type:text" json:"destination_site,omitempty"`
	AssignedTo           []uint         `gorm:"serializer:json;type:text" json:"assigned_to"`
	AssignedBy           *uint          `json:"assigned_by"`
	AssignedDate         *time.Time     `json:"assigned_date"`
	AssignmentStatus     string         `gorm:"size:50" json:"assignment_status"`
	PlannedStart         *time.Time     `json:"planned_start"`
	PlannedEnd           *time.Time     `json:"planned_end"`
	ActualStart          *time.Time     `json:"actual_start"`
	ActualEnd            *time.Time     `json:"actual_end"`
	StageDates           map[string]time.Time `gorm:"serializer:json;type:text" json:"stage_dates"`
	CreatedBy            uint           `json:"created_by"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy            *uint          `json:"-"`
}

func (Activity) TableName() string { return "activities" }

// HasDestination reports whether this activity kind carries a destination
// sub-site. Dismantling only tears down; relocation and COW also build up.
func (a *Activity) HasDestination() bool {
	return a.Kind == ActivityKindRelocation || a.Kind == ActivityKindCOW
}

// CollectWorkItems returns all work items across the source sub-site and,
// when present, the destination sub-site.
func (a *Activity) CollectWorkItems() []WorkItem {
	items := make([]WorkItem, 0, len(a.SourceSite.WorkItems))
	for _, wi := range a.SourceSite.WorkItems {
		items = append(items, wi)
	}
	if a.DestinationSite != nil {
		for _, wi := range a.DestinationSite.WorkItems {
			items = append(items, wi)
		}
	}
	return items
}

// IsInitialStatus reports whether the activity still sits in a pre-work
// state that the aggregator must retain when no work item has started.
func (a *Activity) IsInitialStatus() bool {
	return a.OverallStatus == ActivityStatusDraft || a.OverallStatus == ActivityStatusPlanned
}
