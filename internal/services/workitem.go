package services

import "github.com/towertrack/backend/internal/models"

// Work item contribution scores toward activity completion.
const (
	contributionCompleted  = 100
	contributionInProgress = 50
	contributionNone       = 0
)

// EvaluateWorkItem maps a work item to its normalized status and its 0-100
// contribution toward the owning activity's completion percentage.
// Non-required items contribute nothing and are excluded from completion
// math entirely; they are not counted as complete. Unknown status strings
// score zero rather than failing, and a zero-value item behaves like a
// non-required one.
func EvaluateWorkItem(wi models.WorkItem) (status string, contribution int) {
	status = normalizeWorkStatus(wi.Status)
	if !wi.Required {
		return status, contributionNone
	}
	switch status {
	case models.WorkStatusCompleted:
		return status, contributionCompleted
	case models.WorkStatusInProgress:
		return status, contributionInProgress
	default:
		return status, contributionNone
	}
}

// normalizeWorkStatus folds legacy hyphenated spellings into the canonical
// snake_case values. Anything unrecognized becomes not_started, the most
// conservative bucket.
func normalizeWorkStatus(s string) string {
	switch s {
	case models.WorkStatusCompleted, "complete", "done":
		return models.WorkStatusCompleted
	case models.WorkStatusInProgress, "in-progress", "inprogress":
		return models.WorkStatusInProgress
	default:
		return models.WorkStatusNotStarted
	}
}
