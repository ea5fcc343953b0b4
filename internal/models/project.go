package models

import (
	"time"

	"gorm.io/gorm"
)

// Project status values. Status is derived from site statuses on every save;
// callers choose it only at creation (and may cancel, which freezes it).
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Project is the top of the work hierarchy. Its status and actual
// start/end timestamps are derived from its sites; ActualStart and
// ActualEnd are set once and never overwritten by later recomputation.
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	Code        string         `gorm:"uniqueIndex;size:50" json:"code"`
	Description string         `gorm:"type:text" json:"description"`
	ManagerID   uint           `gorm:"index" json:"manager_id"`
	Status      string         `gorm:"size:50;default:planning" json:"status"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     time.Time      `gorm:"not null" json:"end_date"`
	ActualStart *time.Time     `json:"actual_start"`
	ActualEnd   *time.Time     `json:"actual_end"`
	Sites       []Site         `gorm:"foreignKey:ProjectID" json:"sites,omitempty"`
	CreatedBy   uint           `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy   *uint          `json:"-"`
}

func (Project) TableName() string { return "projects" }
