package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/towertrack/backend/internal/models"
	"gorm.io/gorm"
)

// Normalized task status buckets. Every activity and work item status folds
// into one of these three for the unified task view.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// Task is a projection, not a stored entity. It is built on demand from
// activities and their work items and has no persistence of its own.
type Task struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Module               string     `json:"module"`
	Status               string     `json:"status"`
	SiteName             string     `json:"site_name"`
	AssignedTo           []uint     `json:"assigned_to"`
	DueDate              *time.Time `json:"due_date"`
	CompletionPercentage int        `json:"completion_percentage"`
	ActualStart          *time.Time `json:"actual_start,omitempty"`
	ActualEnd            *time.Time `json:"actual_end,omitempty"`
}

type TaskListRequest struct {
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Module          string `form:"module" binding:"omitempty,oneof=dismantling cow relocation"`
	Status          string `form:"status" binding:"omitempty,oneof=pending in_progress completed"`
	AssignedTo      uint   `form:"assigned_to"`
	Search          string `form:"search"`
	IncludeSubtasks bool   `form:"include_subtasks"`
}

type TaskPerformance struct {
	TotalTasks            int     `json:"total_tasks"`
	CompletedTasks        int     `json:"completed_tasks"`
	CompletionRate        float64 `json:"completion_rate"`
	AvgCompletionTimeDays float64 `json:"avg_completion_time_days"`
}

type TaskListResponse struct {
	Tasks         []Task          `json:"tasks"`
	Total         int             `json:"total"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	Performance   TaskPerformance `json:"performance"`
	OverdueTasks  int             `json:"overdue_tasks"`
	DueTodayTasks int             `json:"due_today_tasks"`
	ByStatus      map[string]int  `json:"by_status"`
	ByModule      map[string]int  `json:"by_module"`
}

// List flattens the non-deleted activities into the unified task view and
// computes performance metrics. Filters and soft-delete exclusion apply
// before any metric is computed: the metrics describe the filtered set, not
// the returned page. Pagination only slices the task list.
func (s *TaskService) List(req *TaskListRequest) (*TaskListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Activity{})
	if req.Module != "" {
		query = query.Where("kind = ?", req.Module)
	}

	var activities []models.Activity
	if err := query.Order("created_at DESC").Find(&activities).Error; err != nil {
		return nil, err
	}

	siteNames, err := s.siteNames(activities)
	if err != nil {
		return nil, err
	}

	tasks := flattenTasks(activities, siteNames, req.IncludeSubtasks)
	tasks = filterTasks(tasks, req)

	now := time.Now()
	resp := &TaskListResponse{
		Total:         len(tasks),
		Page:          req.Page,
		PageSize:      req.PageSize,
		Performance:   computePerformance(tasks),
		OverdueTasks:  countOverdue(tasks, now),
		DueTodayTasks: countDueToday(tasks, now),
		ByStatus:      map[string]int{},
		ByModule:      map[string]int{},
	}
	for _, task := range tasks {
		resp.ByStatus[task.Status]++
		resp.ByModule[task.Module]++
	}

	resp.Tasks = paginateTasks(tasks, req.Page, req.PageSize)
	return resp, nil
}

// siteNames resolves site ids to names in one read. Deleted sites resolve
// to an empty name rather than resurrecting through the join.
func (s *TaskService) siteNames(activities []models.Activity) (map[uint]string, error) {
	ids := make([]uint, 0, len(activities))
	seen := make(map[uint]bool, len(activities))
	for _, a := range activities {
		if !seen[a.SiteID] {
			seen[a.SiteID] = true
			ids = append(ids, a.SiteID)
		}
	}
	if len(ids) == 0 {
		return map[uint]string{}, nil
	}

	var sites []models.Site
	if err := s.db.Select("id", "name").Where("id IN ?", ids).Find(&sites).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(sites))
	for _, site := range sites {
		names[site.ID] = site.Name
	}
	return names, nil
}

// flattenTasks builds one task per activity and, when sub-task granularity
// is requested, one per outstanding required work item.
func flattenTasks(activities []models.Activity, siteNames map[uint]string, includeSubtasks bool) []Task {
	tasks := make([]Task, 0, len(activities))
	for _, a := range activities {
		siteName := siteNames[a.SiteID]
		title := fmt.Sprintf("%s - %s", a.Kind, siteName)
		if siteName == "" {
			title = a.Kind
		}

		tasks = append(tasks, Task{
			ID:                   fmt.Sprintf("activity-%d", a.ID),
			Title:                title,
			Description:          a.Description,
			Module:               a.Kind,
			Status:               NormalizeTaskStatus(a.OverallStatus),
			SiteName:             siteName,
			AssignedTo:           a.AssignedTo,
			DueDate:              a.PlannedEnd,
			CompletionPercentage: a.CompletionPercentage,
			ActualStart:          a.ActualStart,
			ActualEnd:            a.ActualEnd,
		})

		if includeSubtasks {
			tasks = append(tasks, subtasksOf(&a, siteName)...)
		}
	}
	return tasks
}

// subtasksOf emits one task per outstanding required work item across the
// activity's sub-sites.
func subtasksOf(a *models.Activity, siteName string) []Task {
	var tasks []Task
	emit := func(target string, sub *models.SubSite) {
		if sub == nil {
			return
		}
		for workType, wi := range sub.WorkItems {
			status, _ := EvaluateWorkItem(wi)
			if !wi.Required || status == models.WorkStatusCompleted {
				continue
			}
			tasks = append(tasks, Task{
				ID:         fmt.Sprintf("activity-%d-%s-%s", a.ID, target, workType),
				Title:      fmt.Sprintf("%s (%s) - %s", workType, target, siteName),
				Module:     a.Kind,
				Status:     NormalizeTaskStatus(status),
				SiteName:   siteName,
				AssignedTo: wi.AssignedUsers,
				DueDate:    a.PlannedEnd,
			})
		}
	}
	emit("source", &a.SourceSite)
	emit("destination", a.DestinationSite)
	return tasks
}

func filterTasks(tasks []Task, req *TaskListRequest) []Task {
	if req.Status == "" && req.AssignedTo == 0 && req.Search == "" {
		return tasks
	}

	search := strings.ToLower(req.Search)
	filtered := tasks[:0:0]
	for _, task := range tasks {
		if req.Status != "" && task.Status != req.Status {
			continue
		}
		if req.AssignedTo != 0 && !containsUser(task.AssignedTo, req.AssignedTo) {
			continue
		}
		if search != "" && !taskMatches(task, search) {
			continue
		}
		filtered = append(filtered, task)
	}
	return filtered
}

func containsUser(users []uint, id uint) bool {
	for _, u := range users {
		if u == id {
			return true
		}
	}
	return false
}

// taskMatches does a free-text match over site name, module, title and description.
func taskMatches(task Task, search string) bool {
	return strings.Contains(strings.ToLower(task.SiteName), search) ||
		strings.Contains(strings.ToLower(task.Module), search) ||
		strings.Contains(strings.ToLower(task.Title), search) ||
		strings.Contains(strings.ToLower(task.Description), search)
}

func computePerformance(tasks []Task) TaskPerformance {
	perf := TaskPerformance{TotalTasks: len(tasks)}

	var durationSum float64
	var durationCount int
	for _, task := range tasks {
		if task.Status != TaskStatusCompleted {
			continue
		}
		perf.CompletedTasks++
		if task.ActualStart != nil && task.ActualEnd != nil {
			durationSum += task.ActualEnd.Sub(*task.ActualStart).Hours() / 24
			durationCount++
		}
	}

	if perf.TotalTasks > 0 {
		perf.CompletionRate = float64(perf.CompletedTasks) / float64(perf.TotalTasks)
	}
	if durationCount > 0 {
		perf.AvgCompletionTimeDays = durationSum / float64(durationCount)
	}
	return perf
}

func countOverdue(tasks []Task, now time.Time) int {
	count := 0
	for _, task := range tasks {
		if task.Status == TaskStatusCompleted || task.DueDate == nil {
			continue
		}
		if task.DueDate.Before(now) {
			count++
		}
	}
	return count
}

func countDueToday(tasks []Task, now time.Time) int {
	y, m, d := now.Date()
	count := 0
	for _, task := range tasks {
		if task.Status == TaskStatusCompleted || task.DueDate == nil {
			continue
		}
		ty, tm, td := task.DueDate.Date()
		if ty == y && tm == m && td == d {
			count++
		}
	}
	return count
}

func paginateTasks(tasks []Task, page, pageSize int) []Task {
	start := (page - 1) * pageSize
	if start >= len(tasks) {
		return []Task{}
	}
	end := start + pageSize
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[start:end]
}

// NormalizeTaskStatus buckets any activity or work item status into the
// three task statuses. Unrecognized strings are treated as pending, the
// conservative bucket, so malformed child data can never fail a projection.
func NormalizeTaskStatus(status string) string {
	switch status {
	case models.ActivityStatusDraft, models.ActivityStatusPlanned,
		"not-started", models.WorkStatusNotStarted:
		return TaskStatusPending
	case "in-progress", models.ActivityStatusInProgress, models.ActivityStatusDismantling:
		return TaskStatusInProgress
	case models.ActivityStatusCompleted:
		return TaskStatusCompleted
	default:
		return TaskStatusPending
	}
}
