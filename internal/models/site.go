package models

import (
	"time"

	"gorm.io/gorm"
)

// Site overall status values, derived from the activities scoped to the
// site. on_hold is only ever set by an explicit hold operation; the
// resolver never produces it.
const (
	SiteStatusNotStarted = "not_started"
	SiteStatusInProgress = "in_progress"
	SiteStatusCompleted  = "completed"
	SiteStatusOnHold     = "on_hold"
)

// Site is a physical telecom site inside a project. OverallStatus is
// derived from the site's non-deleted activities. The site-level work item
// map tracks work required at the site itself, independent of any activity.
type Site struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProjectID     uint           `gorm:"index;not null" json:"project_id"`
	Name          string         `gorm:"size:200;not null" json:"name"`
	Code          string         `gorm:"uniqueIndex;size:50" json:"code"`
	Region        string         `gorm:"size:100" json:"region"`
	OverallStatus string         `gorm:"size:50;default:not_started" json:"overall_status"`
	WorkItems     WorkItemMap    `gorm:"serializer:json;type:text" json:"work_items"`
	Notes         string         `gorm:"type:text" json:"notes"`
	CreatedBy     uint           `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy     *uint          `json:"-"`
}

func (Site) TableName() string { return "sites" }
