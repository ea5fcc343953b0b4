package services

import (
	"errors"
	"testing"
	"time"

	"github.com/towertrack/backend/internal/models"
)

func TestDeriveActivityState_RequiredOnlyMean(t *testing.T) {
	activity := &models.Activity{
		OverallStatus: models.ActivityStatusDraft,
		SourceSite: models.SubSite{WorkItems: models.WorkItemMap{
			"civil":   {Required: true, Status: models.WorkStatusCompleted},
			"telecom": {Required: true, Status: models.WorkStatusInProgress},
			"survey":  {Status: models.WorkStatusNotStarted},
		}},
	}

	status, pct := deriveActivityState(activity)
	if status != models.ActivityStatusInProgress {
		t.Errorf("status = %q, expected %q", status, models.ActivityStatusInProgress)
	}
	if pct != 75 {
		t.Errorf("pct = %d, expected 75 (mean over required items only)", pct)
	}
}

func TestDeriveActivityState_RoundsMean(t *testing.T) {
	activity := &models.Activity{
		OverallStatus: models.ActivityStatusPlanned,
		SourceSite: models.SubSite{WorkItems: models.WorkItemMap{
			"civil":   {Required: true, Status: models.WorkStatusCompleted},
			"telecom": {Required: true, Status: models.WorkStatusInProgress},
			"survey":  {Required: true, Status: models.WorkStatusNotStarted},
		}},
	}

	_, pct := deriveActivityState(activity)
	if pct != 50 {
		t.Errorf("pct = %d, expected 50", pct)
	}
}

func TestDeriveActivityState_AllRequiredCompleted(t *testing.T) {
	activity := &models.Activity{
		OverallStatus: models.ActivityStatusInProgress,
		SourceSite: models.SubSite{WorkItems: models.WorkItemMap{
			"civil": {Required: true, Status: models.WorkStatusCompleted},
		}},
	}

	status, pct := deriveActivityState(activity)
	if status != models.ActivityStatusCompleted {
		t.Errorf("status = %q, expected %q", status, models.ActivityStatusCompleted)
	}
	if pct != 100 {
		t.Errorf("pct = %d, expected 100", pct)
	}
}

func TestDeriveActivityState_OptionalItemsCannotComplete(t *testing.T) {
	// All required items done, one optional item outstanding: the optional
	// item must not block completion nor count toward the percentage.
	activity := &models.Activity{
		OverallStatus: models.ActivityStatusInProgress,
		SourceSite: models.SubSite{WorkItems: models.WorkItemMap{
			"civil":  {Required: true, Status: models.WorkStatusCompleted},
			"survey": {Status: models.WorkStatusInProgress},
		}},
	}

	status, pct := deriveActivityState(activity)
	if status != models.ActivityStatusCompleted {
		t.Errorf("status = %q, expected %q", status, models.ActivityStatusCompleted)
	}
	if pct != 100 {
		t.Errorf("pct = %d, expected 100", pct)
	}
}

func TestDeriveActivityState_NoRequiredItemsRetainsStatus(t *testing.T) {
	activity := &models.Activity{
		OverallStatus: models.ActivityStatusPlanned,
		SourceSite:    models.NewSubSite("Tower A12"),
	}

	status, pct := deriveActivityState(activity)
	if status != models.ActivityStatusPlanned {
		t.Errorf("status = %q, expected retained %q", status, models.ActivityStatusPlanned)
	}
	if pct != 0 {
		t.Errorf("pct = %d, expected 0", pct)
	}
}

func TestDeriveActivityState_SpansBothSubSites(t *testing.T) {
	dest := models.SubSite{WorkItems: models.WorkItemMap{
		"civil": {Required: true, Status: models.WorkStatusNotStarted},
	}}
	activity := &models.Activity{
		Kind:          models.ActivityKindRelocation,
		OverallStatus: models.ActivityStatusDraft,
		SourceSite: models.SubSite{WorkItems: models.WorkItemMap{
			"dismantling": {Required: true, Status: models.WorkStatusCompleted},
		}},
		DestinationSite: &dest,
	}

	status, pct := deriveActivityState(activity)
	if status != models.ActivityStatusInProgress {
		t.Errorf("status = %q, expected %q", status, models.ActivityStatusInProgress)
	}
	if pct != 50 {
		t.Errorf("pct = %d, expected 50", pct)
	}
}

func TestActivityRecompute_MonotonicStamps(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	activity := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	svc := NewActivityService(db)

	required := true
	if _, err := svc.UpdateWorkItem(activity.ID, &UpdateWorkItemRequest{
		Target: "source", WorkType: "civil", Required: &required, Status: models.WorkStatusInProgress,
	}); err != nil {
		t.Fatalf("UpdateWorkItem failed: %v", err)
	}

	got, err := svc.GetByID(activity.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.OverallStatus != models.ActivityStatusInProgress {
		t.Errorf("status = %q, expected %q", got.OverallStatus, models.ActivityStatusInProgress)
	}
	if got.ActualStart == nil {
		t.Fatal("ActualStart should be stamped when work starts")
	}
	firstStart := *got.ActualStart

	// Completing the item stamps ActualEnd but never re-stamps ActualStart.
	time.Sleep(10 * time.Millisecond)
	if _, err := svc.UpdateWorkItem(activity.ID, &UpdateWorkItemRequest{
		Target: "source", WorkType: "civil", Status: models.WorkStatusCompleted,
	}); err != nil {
		t.Fatalf("UpdateWorkItem failed: %v", err)
	}

	got, _ = svc.GetByID(activity.ID)
	if got.OverallStatus != models.ActivityStatusCompleted {
		t.Errorf("status = %q, expected %q", got.OverallStatus, models.ActivityStatusCompleted)
	}
	if got.CompletionPercentage != 100 {
		t.Errorf("pct = %d, expected 100", got.CompletionPercentage)
	}
	if got.ActualEnd == nil {
		t.Fatal("ActualEnd should be stamped on completion")
	}
	if !got.ActualStart.Equal(firstStart) {
		t.Errorf("ActualStart changed from %v to %v", firstStart, *got.ActualStart)
	}
	firstEnd := *got.ActualEnd

	// Reopening the item moves status back but the end stamp stays.
	if _, err := svc.UpdateWorkItem(activity.ID, &UpdateWorkItemRequest{
		Target: "source", WorkType: "civil", Status: models.WorkStatusInProgress,
	}); err != nil {
		t.Fatalf("UpdateWorkItem failed: %v", err)
	}

	got, _ = svc.GetByID(activity.ID)
	if got.OverallStatus != models.ActivityStatusInProgress {
		t.Errorf("status = %q, expected %q", got.OverallStatus, models.ActivityStatusInProgress)
	}
	if got.ActualEnd == nil || !got.ActualEnd.Equal(firstEnd) {
		t.Error("ActualEnd must survive a reopened work item")
	}
}

func TestActivityRecompute_Idempotent(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	activity := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	svc := NewActivityService(db)

	required := true
	if _, err := svc.UpdateWorkItem(activity.ID, &UpdateWorkItemRequest{
		Target: "source", WorkType: "telecom", Required: &required, Status: models.WorkStatusCompleted,
	}); err != nil {
		t.Fatalf("UpdateWorkItem failed: %v", err)
	}

	first, err := svc.Recompute(activity.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	second, err := svc.Recompute(activity.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	if first.OverallStatus != second.OverallStatus || first.CompletionPercentage != second.CompletionPercentage {
		t.Errorf("recompute not idempotent: %+v vs %+v", first, second)
	}
	if !first.ActualEnd.Equal(*second.ActualEnd) {
		t.Error("repeated recompute re-stamped ActualEnd")
	}
}

func TestActivityUpdateWorkItem_NoDestinationOnDismantling(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	activity := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	svc := NewActivityService(db)

	_, err := svc.UpdateWorkItem(activity.ID, &UpdateWorkItemRequest{
		Target: "destination", WorkType: "civil", Status: models.WorkStatusCompleted,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing destination sub-site, got %v", err)
	}
}

func TestActivityRecompute_StampsStageDates(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	activity := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	svc := NewActivityService(db)

	required := true
	if _, err := svc.UpdateWorkItem(activity.ID, &UpdateWorkItemRequest{
		Target: "source", WorkType: "civil", Required: &required, Status: models.WorkStatusInProgress,
	}); err != nil {
		t.Fatalf("UpdateWorkItem failed: %v", err)
	}

	got, _ := svc.GetByID(activity.ID)
	if _, ok := got.StageDates[models.ActivityStatusInProgress]; !ok {
		t.Error("StageDates missing entry for in_progress transition")
	}
}

func TestActivityDelete_ExcludedFromDefaultReads(t *testing.T) {
	db := testDB(t)
	_, site := seedProject(t, db)
	activity := seedActivity(t, db, site.ID, models.ActivityKindDismantling)
	svc := NewActivityService(db)

	if err := svc.Delete(activity.ID, 7); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := svc.GetByID(activity.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted activity should be invisible, got %v", err)
	}

	deleted, err := svc.ListDeleted()
	if err != nil {
		t.Fatalf("ListDeleted failed: %v", err)
	}
	if len(deleted) != 1 {
		t.Fatalf("len(deleted) = %d, expected 1", len(deleted))
	}
	if deleted[0].DeletedBy == nil || *deleted[0].DeletedBy != 7 {
		t.Error("DeletedBy should record who removed the activity")
	}

	if err := svc.Restore(activity.ID); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	restored, err := svc.GetByID(activity.ID)
	if err != nil {
		t.Fatalf("restored activity should be visible, got %v", err)
	}
	if restored.DeletedBy != nil {
		t.Error("Restore should clear DeletedBy")
	}
}
