package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/towertrack/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testDB opens a private in-memory database per test. The uuid in the DSN
// keeps shared-cache connections of one test from bleeding into another.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Site{},
		&models.Activity{},
		&models.AuditLog{},
		&models.SchedulerLock{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// seedProject creates a project with one site and returns both.
func seedProject(t *testing.T, db *gorm.DB) (*models.Project, *models.Site) {
	t.Helper()

	project := &models.Project{
		Name:   "Region North Decommission",
		Code:   "PRJ-" + uuid.NewString()[:8],
		Status: models.ProjectStatusPlanning,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}

	site := &models.Site{
		ProjectID:     project.ID,
		Name:          "Tower A12",
		Code:          "SITE-" + uuid.NewString()[:8],
		OverallStatus: models.SiteStatusNotStarted,
		WorkItems:     models.NewSubSite("Tower A12").WorkItems,
	}
	if err := db.Create(site).Error; err != nil {
		t.Fatalf("failed to seed site: %v", err)
	}
	return project, site
}

// seedActivity creates an activity of the given kind under the site.
func seedActivity(t *testing.T, db *gorm.DB, siteID uint, kind string) *models.Activity {
	t.Helper()

	activity := &models.Activity{
		SiteID:        siteID,
		Kind:          kind,
		OverallStatus: models.ActivityStatusDraft,
		SourceSite:    models.NewSubSite("Tower A12"),
	}
	if activity.HasDestination() {
		dest := models.NewSubSite("Tower B7")
		activity.DestinationSite = &dest
	}
	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("failed to seed activity: %v", err)
	}
	return activity
}
