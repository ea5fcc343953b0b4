package services

import (
	"errors"
	"testing"

	"github.com/towertrack/backend/internal/models"
)

func TestResolveSiteStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"no activities", nil, models.SiteStatusNotStarted},
		{"all completed", []string{"completed", "completed"}, models.SiteStatusCompleted},
		{"one outstanding blocks completion", []string{"completed", "draft"}, models.SiteStatusNotStarted},
		{"any in progress wins", []string{"draft", "in_progress"}, models.SiteStatusInProgress},
		{"dismantling counts as in progress", []string{"planned", "dismantling"}, models.SiteStatusInProgress},
		{"dispatching counts as in progress", []string{"dispatching"}, models.SiteStatusInProgress},
		{"surveying counts as in progress", []string{"surveying"}, models.SiteStatusInProgress},
		{"all initial", []string{"draft", "planned"}, models.SiteStatusNotStarted},
		{"completed beats in progress when unanimous", []string{"completed"}, models.SiteStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activities := make([]models.Activity, len(tt.statuses))
			for i, st := range tt.statuses {
				activities[i] = models.Activity{OverallStatus: st}
			}
			if got := resolveSiteStatus(activities); got != tt.want {
				t.Errorf("resolveSiteStatus = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestSiteRecompute_IgnoresDeletedActivities(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	svc := NewSiteService(db)
	activitySvc := NewActivityService(db)

	done := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	db.Model(done).Update("overall_status", models.ActivityStatusCompleted)

	open := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	db.Model(open).Update("overall_status", models.ActivityStatusInProgress)

	result, err := svc.Recompute(site.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.OverallStatus != models.SiteStatusInProgress {
		t.Errorf("status = %q, expected %q", result.OverallStatus, models.SiteStatusInProgress)
	}

	// Deleting the open activity leaves a unanimous completed set.
	if err := activitySvc.Delete(open.ID, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	result, err = svc.Recompute(site.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.OverallStatus != models.SiteStatusCompleted {
		t.Errorf("status = %q, expected %q after delete", result.OverallStatus, models.SiteStatusCompleted)
	}
}

func TestSiteRecompute_EmptyAfterDeletes(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	svc := NewSiteService(db)
	activitySvc := NewActivityService(db)

	only := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	db.Model(only).Update("overall_status", models.ActivityStatusCompleted)

	if _, err := svc.Recompute(site.ID); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if err := activitySvc.Delete(only.ID, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	result, err := svc.Recompute(site.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if result.OverallStatus != models.SiteStatusNotStarted {
		t.Errorf("empty activity set should resolve to %q, got %q",
			models.SiteStatusNotStarted, result.OverallStatus)
	}
}

func TestSiteOnHoldToggle(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	svc := NewSiteService(db)

	activity := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	db.Model(activity).Update("overall_status", models.ActivityStatusInProgress)

	hold := true
	if _, err := svc.Update(site.ID, &UpdateSiteRequest{OnHold: &hold}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := svc.GetByID(site.ID)
	if got.OverallStatus != models.SiteStatusOnHold {
		t.Errorf("status = %q, expected %q", got.OverallStatus, models.SiteStatusOnHold)
	}

	// Releasing the hold re-derives from the live activity set.
	hold = false
	if _, err := svc.Update(site.ID, &UpdateSiteRequest{OnHold: &hold}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ = svc.GetByID(site.ID)
	if got.OverallStatus != models.SiteStatusInProgress {
		t.Errorf("status = %q, expected %q after hold release", got.OverallStatus, models.SiteStatusInProgress)
	}
}

func TestSiteUpdateWorkItem_PersistsThroughSerializer(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	svc := NewSiteService(db)

	required := true
	notes := "access road cleared"
	updated, err := svc.UpdateWorkItem(site.ID, &SiteWorkItemRequest{
		WorkType:      "civil",
		Required:      &required,
		Status:        models.WorkStatusInProgress,
		AssignedUsers: []uint{3, 5},
		Notes:         &notes,
	})
	if err != nil {
		t.Fatalf("UpdateWorkItem failed: %v", err)
	}
	if updated.WorkItems["civil"].Status != models.WorkStatusInProgress {
		t.Errorf("returned status = %q, expected %q", updated.WorkItems["civil"].Status, models.WorkStatusInProgress)
	}

	// The map must round-trip through the database, not just the return value.
	var stored models.Site
	if err := db.First(&stored, site.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	wi := stored.WorkItems["civil"]
	if wi.Status != models.WorkStatusInProgress || !wi.Required {
		t.Errorf("stored work item = %+v, expected required in_progress", wi)
	}
	if len(wi.AssignedUsers) != 2 || wi.Notes != notes {
		t.Errorf("stored work item = %+v, assignment or notes lost", wi)
	}
}

func TestSiteUpdate_HoldReleaseSurfacesReadError(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	svc := NewSiteService(db)

	if err := db.Migrator().DropTable(&models.Activity{}); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}

	hold := false
	if _, err := svc.Update(site.ID, &UpdateSiteRequest{OnHold: &hold}); err == nil {
		t.Error("a failed activity read must not silently resolve to not_started")
	}
}

func TestSiteCreate_RequiresProject(t *testing.T) {
	db := testDB(t)
	svc := NewSiteService(db)

	_, err := svc.Create(&CreateSiteRequest{ProjectID: 999, Name: "Orphan"}, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing parent project, got %v", err)
	}
}

func TestSiteCreate_StartsWithDefaultWorkTypes(t *testing.T) {
	db := testDB(t)
	project, _ := seedProject(t, db)
	svc := NewSiteService(db)

	site, err := svc.Create(&CreateSiteRequest{ProjectID: project.ID, Name: "Tower C3"}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(site.WorkItems) != len(models.DefaultWorkTypes) {
		t.Fatalf("len(WorkItems) = %d, expected %d", len(site.WorkItems), len(models.DefaultWorkTypes))
	}
	for _, wt := range models.DefaultWorkTypes {
		wi, ok := site.WorkItems[wt]
		if !ok {
			t.Errorf("missing default work type %q", wt)
			continue
		}
		if wi.Required || wi.Status != models.WorkStatusNotStarted {
			t.Errorf("work type %q should start optional and not started, got %+v", wt, wi)
		}
	}
}
