package services

import (
	"context"
	"errors"
	"testing"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

func TestOnboardingChecklistAndStages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewOnboardingService(f.deps, f.cascade(nil))

	v, err := svc.Create(ctx, f.consultant, &models.OnboardingItem{
		ClientName: "Padaria Central",
		Product:    "Diagnóstico Financeiro",
		Consultant: "Clara Consultora",
		Checklist:  []models.ChecklistItem{{Title: "Kickoff"}, {Title: "Acessos"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.Stage != models.OnboardingPendingKickoff || v.Progress != 0 {
		t.Fatalf("unexpected view %+v", v)
	}

	v, err = svc.ToggleChecklistItem(ctx, f.consultant, v.ID, v.Checklist[0].ID)
	if err != nil || v.Progress != 50 {
		t.Fatalf("toggle = %+v, %v", v, err)
	}
	v, err = svc.AddChecklistItem(ctx, f.consultant, v.ID, models.ChecklistItem{Title: "Reunião de alinhamento"})
	if err != nil || len(v.Checklist) != 3 || v.Progress != 33 {
		t.Fatalf("add item = %+v, %v", v, err)
	}
	owner := "Rita"
	v, err = svc.UpdateChecklistItem(ctx, f.consultant, v.ID, v.Checklist[1].ID, ChecklistPatch{AssignedTo: &owner})
	if err != nil || v.Checklist[1].AssignedTo != "Rita" {
		t.Fatalf("update item = %+v, %v", v, err)
	}

	res, err := svc.ChangeStage(ctx, f.consultant, v.ID, models.OnboardingInProgress)
	if err != nil || res.Item.Stage != models.OnboardingInProgress {
		t.Fatalf("to in progress = %+v, %v", res, err)
	}
	if _, err := svc.ChangeStage(ctx, f.consultant, v.ID, models.OnboardingPendingKickoff); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("backwards: want validation, got %v", err)
	}

	done, err := svc.ChangeStage(ctx, f.consultant, v.ID, models.OnboardingDone)
	if err != nil {
		t.Fatalf("to done: %v", err)
	}
	if done.Project.Type != models.ProjectDiagnostico || len(done.Tasks) != 3 {
		t.Fatalf("unexpected cascade result %+v", done)
	}
	if _, err := svc.ToggleChecklistItem(ctx, f.consultant, v.ID, v.Checklist[0].ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("toggle on completed: want conflict, got %v", err)
	}
	again, err := svc.Finish(ctx, f.consultant, v.ID)
	if err != nil || !again.Replayed || again.Project.ID != done.Project.ID {
		t.Fatalf("finish again = %+v, %v", again, err)
	}
}

func TestOnboardingCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewOnboardingService(f.deps, f.cascade(nil))

	if _, err := svc.Create(ctx, f.consultant, &models.OnboardingItem{ClientName: "x", Product: "y", Stage: models.OnboardingDone}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("start completed: want validation, got %v", err)
	}
	if _, err := svc.Create(ctx, f.consultant, &models.OnboardingItem{Product: "y"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("missing client: want validation, got %v", err)
	}
	if _, err := svc.Create(ctx, f.commercial, &models.OnboardingItem{ClientName: "x", Product: "y"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("commercial: want forbidden, got %v", err)
	}
	note, err := svc.AddNote(ctx, f.consultant, 9999, "oi")
	if !errors.Is(err, apperr.ErrNotFound) || note != nil {
		t.Fatalf("note on missing item: %v", err)
	}
}
