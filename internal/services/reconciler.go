package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/towertrack/backend/internal/models"
	"github.com/towertrack/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	reconcileLockName = "reconcile_sweep"
	reconcileLockTTL  = 10 * time.Minute
)

// ReconcilerService periodically re-derives every live project bottom-up.
// Derived status is otherwise only refreshed when something writes, so a
// project can go stale when a downstream activity changed and nothing ever
// saved the project afterwards. The sweep closes that gap.
type ReconcilerService struct {
	db       *gorm.DB
	cascade  *CascadeService
	cron     *cron.Cron
	entryID  cron.EntryID
	instance string
}

func NewReconcilerService(db *gorm.DB) *ReconcilerService {
	return &ReconcilerService{
		db:       db,
		cascade:  NewCascadeService(db),
		instance: uuid.NewString(),
	}
}

// Start schedules the sweep with the given cron spec.
func (s *ReconcilerService) Start(spec string) error {
	s.cron = cron.New()
	entryID, err := s.cron.AddFunc(spec, func() { s.Sweep() })
	if err != nil {
		return err
	}
	s.entryID = entryID
	s.cron.Start()
	logger.Info().Str("spec", spec).Msg("reconciliation sweep scheduled")
	return nil
}

func (s *ReconcilerService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep recomputes every non-deleted project from the bottom up. A
// database lock row keeps concurrent instances from double-sweeping; the
// recomputes themselves are idempotent, so a lost race is only wasted work.
func (s *ReconcilerService) Sweep() {
	if !s.acquireLock() {
		logger.Debug().Msg("reconciliation sweep already running elsewhere")
		return
	}
	defer s.releaseLock()

	start := time.Now()
	var projects []models.Project
	if err := s.db.Select("id").Find(&projects).Error; err != nil {
		logger.Error().Err(err).Msg("reconciliation sweep failed to list projects")
		return
	}

	var swept, failed int
	for _, project := range projects {
		if err := s.sweepProject(project.ID); err != nil {
			failed++
			logger.Error().Err(err).Uint("project_id", project.ID).Msg("project reconciliation failed")
			continue
		}
		swept++
	}

	logger.Info().Int("swept", swept).Int("failed", failed).Dur("took", time.Since(start)).Msg("reconciliation sweep done")
	Audit("reconciler", "sweep", nil, nil, map[string]interface{}{"swept": swept, "failed": failed})
}

// sweepProject recomputes each activity, then each site, then the project.
func (s *ReconcilerService) sweepProject(projectID uint) error {
	var sites []models.Site
	if err := s.db.Select("id").Where("project_id = ?", projectID).Find(&sites).Error; err != nil {
		return err
	}

	for _, site := range sites {
		var activities []models.Activity
		if err := s.db.Select("id").Where("site_id = ?", site.ID).Find(&activities).Error; err != nil {
			return err
		}
		for _, activity := range activities {
			if _, err := s.cascade.activities.Recompute(activity.ID); err != nil {
				if err := ignoreNotFound(err, "activity", activity.ID); err != nil {
					return err
				}
			}
		}
		if _, err := s.cascade.sites.Recompute(site.ID); err != nil {
			if err := ignoreNotFound(err, "site", site.ID); err != nil {
				return err
			}
		}
	}

	_, err := s.cascade.projects.Recompute(projectID)
	return ignoreNotFound(err, "project", projectID)
}

// acquireLock claims the sweep lock for this instance. The lock is held for
// the whole sweep and released on completion; the TTL only reclaims locks
// from crashed instances. Expired locks are cleared first and the unique
// (name, key) index decides the race.
func (s *ReconcilerService) acquireLock() bool {
	now := time.Now()
	s.db.Where("lock_name = ? AND expires_at < ?", reconcileLockName, now).Delete(&models.SchedulerLock{})

	lock := models.SchedulerLock{
		LockName:  reconcileLockName,
		LockKey:   reconcileLockName,
		LockedBy:  s.instance,
		LockedAt:  now,
		ExpiresAt: now.Add(reconcileLockTTL),
	}
	return s.db.Create(&lock).Error == nil
}

func (s *ReconcilerService) releaseLock() {
	s.db.Where("lock_name = ? AND locked_by = ?", reconcileLockName, s.instance).Delete(&models.SchedulerLock{})
}
