package workflow

import (
	"errors"
	"testing"
	"time"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

var env = Env{
	Now:     time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	Intn:    func(int) int { return 42 },
	ActorID: 1,
}

var club = MembershipRule{ProductTitle: "Potencialize Club", RoleID: "club_member"}

func TestPlanDealWonUpgradesMatchingUser(t *testing.T) {
	deal := models.Deal{ID: 9, Company: "Acme  Ltda", Stage: models.DealStageProposal, ProductInterest: "Potencialize Club"}
	deal, entered, err := TransitionDeal(deal, models.DealStageWon)
	if err != nil || !entered {
		t.Fatalf("transition: entered=%v err=%v", entered, err)
	}
	users := []models.User{
		{ID: 2, CompanyName: "Other", RoleID: "client_basic", Active: true},
		{ID: 3, CompanyName: "acme ltda", RoleID: "client_basic", Active: true, Email: "ceo@acme.test"},
	}

	plan := PlanDealWon(deal, users, club, env)
	if plan.UserUpgrade == nil || plan.UserUpgrade.ID != 3 || plan.UserUpgrade.RoleID != "club_member" {
		t.Fatalf("expected user 3 upgraded, got %+v", plan.UserUpgrade)
	}
	if len(plan.Events) != 1 || plan.Events[0].Type != models.EventMembershipActivated {
		t.Fatalf("expected exactly one membership event, got %+v", plan.Events)
	}
	if plan.Events[0].Payload["previous_role"] != "client_basic" {
		t.Fatalf("payload missing previous role: %+v", plan.Events[0].Payload)
	}
}

func TestPlanDealWonWithoutMatchWarns(t *testing.T) {
	deal := models.Deal{ID: 9, Company: "Nobody", Stage: models.DealStageWon, ProductInterest: "Potencialize Club"}
	plan := PlanDealWon(deal, []models.User{{ID: 4, CompanyName: "Nobody", Active: false}}, club, env)
	if plan.UserUpgrade != nil {
		t.Fatalf("inactive user must not be upgraded")
	}
	if len(plan.Events) != 1 || plan.Events[0].Type != models.EventMembershipUserMissing {
		t.Fatalf("expected user-missing warning, got %+v", plan.Events)
	}
}

func TestPlanDealWonOtherProduct(t *testing.T) {
	deal := models.Deal{Company: "Acme", Stage: models.DealStageWon, ProductInterest: "Diagnóstico"}
	plan := PlanDealWon(deal, []models.User{{CompanyName: "Acme", Active: true}}, club, env)
	if plan.UserUpgrade != nil || len(plan.Events) != 0 {
		t.Fatalf("non-membership product must not cascade: %+v", plan)
	}
}

func TestPlanOnboardingCompletion(t *testing.T) {
	itemDue := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	item := models.OnboardingItem{
		ID:         5,
		ClientName: "Beta SA",
		Product:    "Assessoria Financeira",
		Consultant: "Ana",
		Stage:      models.OnboardingInProgress,
		Checklist: []models.ChecklistItem{
			{Title: "Kickoff", Completed: true},
			{Title: "Collect data", DueDate: &itemDue, AssignedTo: "Bruno"},
			{Title: "Report"},
		},
	}

	plan, err := PlanOnboardingCompletion(item, ProjectDefaults{}, env)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Item.Stage != models.OnboardingDone {
		t.Fatalf("item stage = %s", plan.Item.Stage)
	}
	p := plan.Project
	if p.Code != "PRJ-2025-42" || p.Type != models.ProjectAssessoria || p.Title != "Assessoria Financeira - Beta SA" {
		t.Fatalf("unexpected project: %+v", p)
	}
	if p.Progress != 33 || p.Status != models.ProjectStatusActive || p.SLAStatus != models.SLAOk {
		t.Fatalf("unexpected project state: %+v", p)
	}
	if p.EndDate == nil || !p.EndDate.Equal(env.Now.AddDate(0, 6, 0)) {
		t.Fatalf("end date = %v", p.EndDate)
	}
	if len(plan.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(plan.Tasks))
	}
	if plan.Tasks[0].Status != models.TaskCompleted || plan.Tasks[0].AssignedTo != "Ana" {
		t.Fatalf("task 0: %+v", plan.Tasks[0])
	}
	if plan.Tasks[1].AssignedTo != "Bruno" || !plan.Tasks[1].DueDate.Equal(itemDue) {
		t.Fatalf("task 1: %+v", plan.Tasks[1])
	}
	if got := plan.Tasks[2].DueDate; got == nil || !got.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("task 2 should default to today, got %v", got)
	}
	if len(plan.Events) != 1 || plan.Events[0].Type != models.EventOnboardingCompleted {
		t.Fatalf("events: %+v", plan.Events)
	}
}

func TestPlanOnboardingCompletionRejectsDone(t *testing.T) {
	_, err := PlanOnboardingCompletion(models.OnboardingItem{ID: 1, Stage: models.OnboardingDone}, ProjectDefaults{}, env)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict for completed item, got %v", err)
	}
}

func TestPlanOnboardingEmptyChecklistDefaultsAssignee(t *testing.T) {
	item := models.OnboardingItem{ID: 2, Product: "Club Mensal", Stage: models.OnboardingPendingKickoff,
		Checklist: []models.ChecklistItem{{Title: "Welcome"}}}
	plan, err := PlanOnboardingCompletion(item, ProjectDefaults{}, env)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Project.Type != models.ProjectClub || plan.Tasks[0].AssignedTo != "Sistema" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestInferProjectType(t *testing.T) {
	cases := map[string]models.ProjectType{
		"Diagnóstico Empresarial": models.ProjectDiagnostico,
		"diagnostico":             models.ProjectDiagnostico,
		"ASSESSORIA":              models.ProjectAssessoria,
		"Potencialize Club":       models.ProjectClub,
		"ERP rollout":             models.ProjectImplementacao,
	}
	for in, want := range cases {
		if got := InferProjectType(in); got != want {
			t.Fatalf("InferProjectType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPlanLeadConversion(t *testing.T) {
	lead := models.Lead{ID: 11, Company: "Gamma", Status: models.LeadQualified}
	deal, evt := PlanLeadConversion(lead, LeadConversionDefaults{ProductTitle: "Diagnóstico", Owner: "Carla"}, env)
	if deal.Stage != models.DealStageLead || deal.Value != 0 || deal.LeadID == nil || *deal.LeadID != 11 {
		t.Fatalf("unexpected deal: %+v", deal)
	}
	if deal.Title != "Oportunidade - Gamma" || deal.ProductInterest != "Diagnóstico" || deal.Owner != "Carla" {
		t.Fatalf("unexpected deal fields: %+v", deal)
	}
	if evt.Type != models.EventLeadConverted || evt.EntityID != 11 {
		t.Fatalf("unexpected event: %+v", evt)
	}
}
