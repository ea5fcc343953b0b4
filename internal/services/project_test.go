package services

import (
	"testing"
	"time"

	"github.com/towertrack/backend/internal/models"
)

func TestProjectRecompute_EmptyProjectStaysPlanning(t *testing.T) {
	db := testDB(t)
	svc := NewProjectService(db)

	project, err := svc.Create(&CreateProjectRequest{
		Name:    "Greenfield",
		EndDate: time.Now().AddDate(0, 6, 0),
	}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := svc.Recompute(project.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.Status != models.ProjectStatusPlanning {
		t.Errorf("status = %q, expected %q", result.Status, models.ProjectStatusPlanning)
	}
	if result.Timeline.ActualStart != nil || result.Timeline.ActualEnd != nil {
		t.Error("planning project must not carry actual timestamps")
	}
}

func TestProjectRecompute_ActivatesAndStampsOnce(t *testing.T) {
	db := testDB(t)
	project, site := seedProject(t, db)
	svc := NewProjectService(db)

	db.Model(site).Update("overall_status", models.SiteStatusInProgress)

	first, err := svc.Recompute(project.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if first.Status != models.ProjectStatusActive {
		t.Errorf("status = %q, expected %q", first.Status, models.ProjectStatusActive)
	}
	if first.Timeline.ActualStart == nil {
		t.Fatal("ActualStart should be stamped on activation")
	}

	time.Sleep(10 * time.Millisecond)
	second, err := svc.Recompute(project.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if !second.Timeline.ActualStart.Equal(*first.Timeline.ActualStart) {
		t.Error("repeated recompute re-stamped ActualStart")
	}
}

func TestProjectRecompute_CompletesWhenAllSitesDone(t *testing.T) {
	db := testDB(t)
	project, site := seedProject(t, db)
	svc := NewProjectService(db)

	db.Model(site).Update("overall_status", models.SiteStatusCompleted)

	result, err := svc.Recompute(project.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.Status != models.ProjectStatusCompleted {
		t.Errorf("status = %q, expected %q", result.Status, models.ProjectStatusCompleted)
	}
	if result.Timeline.ActualEnd == nil {
		t.Fatal("ActualEnd should be stamped on completion")
	}
	firstEnd := *result.Timeline.ActualEnd

	// A new outstanding site reopens the work, but the end stamp survives
	// and the status does not regress to planning.
	db.Create(&models.Site{
		ProjectID:     project.ID,
		Name:          "Tower D4",
		Code:          "SITE-D4",
		OverallStatus: models.SiteStatusNotStarted,
	})

	result, err = svc.Recompute(project.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.Status != models.ProjectStatusCompleted {
		t.Errorf("status = %q, completion must not regress on a mixed set", result.Status)
	}
	if result.Timeline.ActualEnd == nil || !result.Timeline.ActualEnd.Equal(firstEnd) {
		t.Error("ActualEnd must never be cleared or re-stamped")
	}
}

func TestProjectRecompute_SurfacesSitesReadError(t *testing.T) {
	db := testDB(t)
	project, _ := seedProject(t, db)
	svc := NewProjectService(db)

	if err := db.Migrator().DropTable(&models.Site{}); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}

	if _, err := svc.Recompute(project.ID); err == nil {
		t.Error("a failed sites read must not report success with a stale status")
	}
}

func TestProjectCancel_IsTerminal(t *testing.T) {
	db := testDB(t)
	project, site := seedProject(t, db)
	svc := NewProjectService(db)

	cancel := true
	if _, err := svc.Update(project.ID, &UpdateProjectRequest{Cancel: &cancel}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Site progress must not pull a cancelled project back to active.
	db.Model(site).Update("overall_status", models.SiteStatusInProgress)
	result, err := svc.Recompute(project.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.Status != models.ProjectStatusCancelled {
		t.Errorf("status = %q, cancelled is terminal", result.Status)
	}
	if result.Timeline.ActualStart != nil {
		t.Error("cancelled project must not be stamped")
	}
}

func TestProjectUpdate_CascadesInSameSave(t *testing.T) {
	db := testDB(t)
	project, site := seedProject(t, db)
	svc := NewProjectService(db)

	db.Model(site).Update("overall_status", models.SiteStatusInProgress)

	updated, err := svc.Update(project.ID, &UpdateProjectRequest{Description: "wave 2"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != models.ProjectStatusActive {
		t.Errorf("status = %q, expected %q derived during the save", updated.Status, models.ProjectStatusActive)
	}
}

func TestProjectDelete_FreezesAndRestores(t *testing.T) {
	db := testDB(t)
	project, _ := seedProject(t, db)
	svc := NewProjectService(db)

	if err := svc.Delete(project.ID, 3); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := svc.Recompute(project.ID); err == nil {
		t.Error("recompute of a deleted project should fail with not found")
	}

	if err := svc.Restore(project.ID); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if _, err := svc.GetByID(project.ID); err != nil {
		t.Errorf("restored project should be visible, got %v", err)
	}
}
