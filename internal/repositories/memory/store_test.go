package memory

import (
	"context"
	"errors"
	"testing"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

func TestOptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repos()

	d := &models.Deal{Title: "Deal", Stage: models.DealStageLead}
	if err := repos.Deals.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}
	a, _ := repos.Deals.GetByID(ctx, d.ID)
	b, _ := repos.Deals.GetByID(ctx, d.ID)

	a.Stage = models.DealStageContact
	if err := repos.Deals.Update(ctx, a); err != nil {
		t.Fatalf("first update: %v", err)
	}
	b.Stage = models.DealStageLost
	if err := repos.Deals.Update(ctx, b); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale update should conflict, got %v", err)
	}
	got, _ := repos.Deals.GetByID(ctx, d.ID)
	if got.Stage != models.DealStageContact || got.Version != 2 {
		t.Fatalf("unexpected stored deal: %+v", got)
	}
}

func TestProjectCodeUnique(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repos()
	if err := repos.Projects.Create(ctx, &models.Project{Code: "PRJ-2025-1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repos.Projects.Create(ctx, &models.Project{Code: "PRJ-2025-1"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate code should conflict, got %v", err)
	}
}

func TestTicketInteractionsAppendOnly(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repos()
	tk := &models.Ticket{ProjectID: 1, Title: "Help", Status: models.TicketOpen}
	if err := repos.Tickets.Create(ctx, tk); err != nil {
		t.Fatalf("create: %v", err)
	}
	in := &models.Interaction{TicketID: tk.ID, Role: models.RoleClient, Text: "hi"}
	if err := repos.Tickets.AppendInteraction(ctx, in); err != nil {
		t.Fatalf("append: %v", err)
	}
	tk.Interactions = nil
	tk.Status = models.TicketAnsweredByClient
	if err := repos.Tickets.Update(ctx, tk); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := repos.Tickets.GetByID(ctx, tk.ID)
	if len(got.Interactions) != 1 || got.Status != models.TicketAnsweredByClient {
		t.Fatalf("update must not drop history: %+v", got)
	}
}

func TestCascadeRunKeyUnique(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repos()
	run := &models.CascadeRun{EntityKind: "onboarding", EntityID: 1, Transition: "Concluído"}
	if err := repos.CascadeRuns.Create(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &models.CascadeRun{EntityKind: "onboarding", EntityID: 1, Transition: "Concluído"}
	if err := repos.CascadeRuns.Create(ctx, dup); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	found, err := repos.CascadeRuns.Find(ctx, "onboarding", 1, "Concluído")
	if err != nil || found == nil || found.ID != run.ID {
		t.Fatalf("find: %+v %v", found, err)
	}
}
