package services

import (
	"github.com/towertrack/backend/internal/models"
	"gorm.io/gorm"
)

type DashboardService struct {
	db    *gorm.DB
	tasks *TaskService
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, tasks: NewTaskService(db)}
}

type DashboardSummary struct {
	ProjectsByStatus  map[string]int64 `json:"projects_by_status"`
	SitesByStatus     map[string]int64 `json:"sites_by_status"`
	ActivitiesByKind  map[string]int64 `json:"activities_by_kind"`
	Performance       TaskPerformance  `json:"performance"`
	OverdueTasks      int              `json:"overdue_tasks"`
	DueTodayTasks     int              `json:"due_today_tasks"`
}

type statusCount struct {
	Label string
	Count int64
}

// GetSummary returns headline counts for the dashboard. Soft-deleted rows
// never appear; the counts run through the default scope.
func (s *DashboardService) GetSummary() (*DashboardSummary, error) {
	summary := &DashboardSummary{
		ProjectsByStatus: map[string]int64{},
		SitesByStatus:    map[string]int64{},
		ActivitiesByKind: map[string]int64{},
	}

	if err := s.groupCount(&models.Project{}, "status", summary.ProjectsByStatus); err != nil {
		return nil, err
	}
	if err := s.groupCount(&models.Site{}, "overall_status", summary.SitesByStatus); err != nil {
		return nil, err
	}
	if err := s.groupCount(&models.Activity{}, "kind", summary.ActivitiesByKind); err != nil {
		return nil, err
	}

	taskResp, err := s.tasks.List(&TaskListRequest{Page: 1, PageSize: 1})
	if err != nil {
		return nil, err
	}
	summary.Performance = taskResp.Performance
	summary.OverdueTasks = taskResp.OverdueTasks
	summary.DueTodayTasks = taskResp.DueTodayTasks

	return summary, nil
}

func (s *DashboardService) groupCount(model interface{}, column string, out map[string]int64) error {
	var rows []statusCount
	err := s.db.Model(model).
		Select(column + " as label, COUNT(*) as count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		out[row.Label] = row.Count
	}
	return nil
}
