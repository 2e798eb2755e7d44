package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

func TestProjectDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "Padaria Central")
	projects := NewProjectService(f.deps, classifier(), 3)
	tasks := NewTaskService(f.deps)

	tomorrow := testNow.Add(24 * time.Hour)
	for _, task := range []*models.Task{
		{ProjectID: &p.ID, Title: "Kickoff", Status: models.TaskCompleted},
		{ProjectID: &p.ID, Title: "Diagnóstico", DueDate: &tomorrow},
	} {
		if _, err := tasks.Create(ctx, f.consultant, task); err != nil {
			t.Fatal(err)
		}
	}
	for _, n := range []*models.ProjectNote{
		{ProjectID: p.ID, Text: "Cliente atrasou envio", Type: "risk"},
		{ProjectID: p.ID, Text: "Meta de caixa atingida", Type: "highlight"},
	} {
		if err := projects.AddNote(ctx, f.consultant, n); err != nil {
			t.Fatal(err)
		}
	}

	d, err := projects.Dashboard(ctx, f.consultant, p.ID)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Progress != 50 || d.SLAStatus != models.SLAWarning || len(d.Tasks) != 2 || len(d.Notes) != 2 {
		t.Fatalf("unexpected dashboard %+v", d)
	}

	cd, err := projects.Dashboard(ctx, f.client, p.ID)
	if err != nil {
		t.Fatalf("client Dashboard: %v", err)
	}
	if len(cd.Notes) != 1 || cd.Notes[0].Type != "highlight" {
		t.Fatalf("client notes = %+v", cd.Notes)
	}
}

func TestProjectClientVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := f.project(t, "  padaria central ")
	other := f.project(t, "Oficina Zeta")
	projects := NewProjectService(f.deps, classifier(), 3)

	list, err := projects.List(ctx, f.client)
	if err != nil || len(list) != 1 || list[0].ID != own.ID {
		t.Fatalf("client list = %+v, %v", list, err)
	}
	if _, err := projects.Get(ctx, f.client, other.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("foreign project: want not found, got %v", err)
	}
	all, _ := projects.List(ctx, f.consultant)
	if len(all) != 2 {
		t.Fatalf("staff sees %d projects", len(all))
	}
}

func TestProjectRefreshSLA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := f.project(t, "Padaria Central")
	fine := f.project(t, "Oficina Zeta")
	projects := NewProjectService(f.deps, classifier(), 3)
	tasks := NewTaskService(f.deps)

	lastWeek := testNow.Add(-7 * 24 * time.Hour)
	if _, err := tasks.Create(ctx, f.consultant, &models.Task{ProjectID: &late.ID, Title: "Atrasada", DueDate: &lastWeek}); err != nil {
		t.Fatal(err)
	}

	n, err := projects.RefreshSLA(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RefreshSLA = %d, %v", n, err)
	}
	got, _ := f.store.Repos().Projects.GetByID(ctx, late.ID)
	if got.SLAStatus != models.SLADelay || got.Progress != 0 {
		t.Fatalf("late project = %+v", got)
	}
	untouched, _ := f.store.Repos().Projects.GetByID(ctx, fine.ID)
	if untouched.SLAStatus != models.SLAOk || untouched.Version != fine.Version {
		t.Fatalf("project without tasks must stay as is: %+v", untouched)
	}

	if n, _ := projects.RefreshSLA(ctx); n != 0 {
		t.Fatalf("second refresh changed %d projects", n)
	}
}

func TestProjectCreateGeneratesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	projects := NewProjectService(f.deps, classifier(), 3)
	p := &models.Project{Title: "Implantação ERP", ClientName: "Oficina Zeta"}
	if err := projects.Create(ctx, f.consultant, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Code == "" || p.Type != models.ProjectImplementacao || p.Status != models.ProjectStatusActive {
		t.Fatalf("unexpected project %+v", p)
	}
	if err := projects.Create(ctx, f.consultant, &models.Project{Title: "x", ClientName: "y", Progress: 120}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("progress out of range: want validation, got %v", err)
	}
	if err := projects.Create(ctx, f.client, &models.Project{Title: "x", ClientName: "y"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("client create: want forbidden, got %v", err)
	}
}
