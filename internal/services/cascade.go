package services

import (
	"context"
	"errors"

	"github.com/towertrack/backend/internal/models"
	"github.com/towertrack/backend/pkg/logger"
	"gorm.io/gorm"
)

// CascadeService runs the bottom-up recompute chain: work items feed an
// activity, the activity set feeds its site, the site set feeds its
// project. The three levels are deliberately not one transaction; each
// step re-reads the full current state of its children and writes only its
// own record, so any step can be re-run at any time with the same outcome.
type CascadeService struct {
	db         *gorm.DB
	activities *ActivityService
	sites      *SiteService
	projects   *ProjectService
}

func NewCascadeService(db *gorm.DB) *CascadeService {
	return &CascadeService{
		db:         db,
		activities: NewActivityService(db),
		sites:      NewSiteService(db),
		projects:   NewProjectService(db),
	}
}

// Process handles one queued recompute and propagates upward from its
// level. A missing or soft-deleted record ends the chain quietly: there is
// nothing to derive from it anymore, and retrying would not change that.
func (s *CascadeService) Process(ctx context.Context, task *RecomputeTask) error {
	switch task.Level {
	case RecomputeLevelActivity:
		return s.FromActivity(task.ID)
	case RecomputeLevelSite:
		return s.FromSite(task.ID)
	case RecomputeLevelProject:
		_, err := s.projects.Recompute(task.ID)
		return ignoreNotFound(err, "project", task.ID)
	default:
		logger.Warn().Str("level", task.Level).Uint("id", task.ID).Msg("unknown recompute level")
		return nil
	}
}

// FromActivity recomputes an activity, then its site, then the project.
func (s *CascadeService) FromActivity(activityID uint) error {
	if _, err := s.activities.Recompute(activityID); err != nil {
		return ignoreNotFound(err, "activity", activityID)
	}

	var activity models.Activity
	if err := s.db.First(&activity, activityID).Error; err != nil {
		return ignoreNotFound(wrapDBErr(err, "activity", activityID), "activity", activityID)
	}
	return s.FromSite(activity.SiteID)
}

// FromSite recomputes a site and then its project.
func (s *CascadeService) FromSite(siteID uint) error {
	if _, err := s.sites.Recompute(siteID); err != nil {
		return ignoreNotFound(err, "site", siteID)
	}

	var site models.Site
	if err := s.db.First(&site, siteID).Error; err != nil {
		return ignoreNotFound(wrapDBErr(err, "site", siteID), "site", siteID)
	}
	_, err := s.projects.Recompute(site.ProjectID)
	return ignoreNotFound(err, "project", site.ProjectID)
}

func ignoreNotFound(err error, entity string, id uint) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		logger.Debug().Str("entity", entity).Uint("id", id).Msg("recompute skipped, record gone")
		return nil
	}
	return err
}
