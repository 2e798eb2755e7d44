package services

import (
	"context"
	"errors"
	"testing"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
	"potencialize/internal/repositories"
	"potencialize/internal/workflow"
)

func seedOnboarding(t *testing.T, f *fixture, items ...models.ChecklistItem) *models.OnboardingItem {
	t.Helper()
	o := &models.OnboardingItem{
		ClientName: "Padaria Central",
		Product:    "Assessoria Financeira",
		Consultant: "Clara Consultora",
		Stage:      models.OnboardingInProgress,
		StartDate:  testNow,
		Checklist:  items,
	}
	if err := f.store.Repos().Onboarding.Create(context.Background(), o); err != nil {
		t.Fatalf("create onboarding: %v", err)
	}
	return o
}

func threeItems() []models.ChecklistItem {
	return []models.ChecklistItem{
		{Title: "Kickoff", Completed: true},
		{Title: "Acesso ao ERP", Completed: true, AssignedTo: "Rita"},
		{Title: "Diagnóstico inicial"},
	}
}

func TestCompleteOnboardingCreatesProjectAndTasks(t *testing.T) {
	f := newFixture(t)
	o := seedOnboarding(t, f, threeItems()...)
	svc := f.cascade(nil)

	res, err := svc.CompleteOnboarding(context.Background(), f.consultant, o.ID)
	if err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}
	if res.Project.Code != "PRJ-2025-42" || res.Project.Type != models.ProjectAssessoria {
		t.Fatalf("unexpected project %+v", res.Project)
	}
	if res.Project.Progress != 67 {
		t.Fatalf("progress = %d, want 67", res.Project.Progress)
	}
	if len(res.Tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(res.Tasks))
	}
	wantCompleted := []bool{true, true, false}
	for i, task := range res.Tasks {
		if (task.Status == models.TaskCompleted) != wantCompleted[i] {
			t.Fatalf("task %d status %s", i, task.Status)
		}
		if task.ProjectID == nil || *task.ProjectID != res.Project.ID {
			t.Fatalf("task %d not linked to project", i)
		}
	}
	if res.Tasks[1].AssignedTo != "Rita" || res.Tasks[2].AssignedTo != "Clara Consultora" {
		t.Fatalf("assignees not carried over: %q %q", res.Tasks[1].AssignedTo, res.Tasks[2].AssignedTo)
	}

	stored, _ := f.store.Repos().Onboarding.GetByID(context.Background(), o.ID)
	if stored.Stage != models.OnboardingDone || stored.ProjectID == nil {
		t.Fatalf("onboarding not completed: %+v", stored)
	}
	run, _ := f.store.Repos().CascadeRuns.Find(context.Background(), workflow.KindOnboarding, o.ID, TransitionCompleted)
	if run == nil || run.Status != models.CascadeCompleted || len(run.TaskIDs) != 3 {
		t.Fatalf("unexpected journal %+v", run)
	}
	if got := len(f.pub.ofType(models.EventOnboardingCompleted)); got != 1 {
		t.Fatalf("published %d completion events, want 1", got)
	}
}

func TestCompleteOnboardingTwiceKeepsOneProject(t *testing.T) {
	f := newFixture(t)
	o := seedOnboarding(t, f, threeItems()...)
	svc := f.cascade(nil)
	ctx := context.Background()

	first, err := svc.CompleteOnboarding(ctx, f.consultant, o.ID)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.CompleteOnboarding(ctx, f.consultant, o.ID)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Replayed || second.Project.ID != first.Project.ID || len(second.Tasks) != 3 {
		t.Fatalf("second run should replay the first: %+v", second)
	}
	projects, _ := f.store.Repos().Projects.List(ctx)
	if len(projects) != 1 {
		t.Fatalf("projects = %d, want 1", len(projects))
	}
	tasks, _ := f.store.Repos().Tasks.List(ctx, models.TaskFilter{})
	if len(tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(tasks))
	}
}

func TestCompleteOnboardingRequiresPermission(t *testing.T) {
	f := newFixture(t)
	o := seedOnboarding(t, f, threeItems()...)
	_, err := f.cascade(nil).CompleteOnboarding(context.Background(), f.commercial, o.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	projects, _ := f.store.Repos().Projects.List(context.Background())
	if len(projects) != 0 {
		t.Fatalf("nothing may be created without permission")
	}
}

type flakyTasks struct {
	repositories.TaskRepository
	failOn int
	calls  int
}

func (r *flakyTasks) Create(ctx context.Context, t *models.Task) error {
	r.calls++
	if r.calls == r.failOn {
		return apperr.Transient(errors.New("connection reset"))
	}
	return r.TaskRepository.Create(ctx, t)
}

func TestCompleteOnboardingFailureThenResume(t *testing.T) {
	f := newFixture(t)
	o := seedOnboarding(t, f, threeItems()...)
	svc := f.cascade(nil)
	ctx := context.Background()

	var original repositories.TaskRepository
	f.store.Override(func(r *repositories.Repos) {
		original = r.Tasks
		r.Tasks = &flakyTasks{TaskRepository: r.Tasks, failOn: 2}
	})

	_, err := svc.CompleteOnboarding(ctx, f.consultant, o.ID)
	var cerr *apperr.CascadeError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected cascade error, got %v", err)
	}
	if cerr.Step != "task[1]" || !errors.Is(err, apperr.ErrCascade) {
		t.Fatalf("unexpected cascade error %+v", cerr)
	}
	stored, _ := f.store.Repos().Onboarding.GetByID(ctx, o.ID)
	if stored.Stage == models.OnboardingDone {
		t.Fatalf("stage must not be completed after a failed cascade")
	}
	run, _ := f.store.Repos().CascadeRuns.Get(ctx, cerr.RunID)
	if run.Status != models.CascadeFailed || run.ProjectID == nil {
		t.Fatalf("unexpected journal after failure %+v", run)
	}
	if got := len(f.pub.ofType(models.EventCascadeFailed)); got != 1 {
		t.Fatalf("cascade.failed events = %d, want 1", got)
	}

	f.store.Override(func(r *repositories.Repos) { r.Tasks = original })
	resumed, err := svc.Resume(ctx, f.consultant, cerr.RunID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != models.CascadeCompleted {
		t.Fatalf("run status %s after resume", resumed.Status)
	}
	tasks, _ := f.store.Repos().Tasks.List(ctx, models.TaskFilter{})
	if len(tasks) != 3 {
		t.Fatalf("tasks = %d after resume, want 3", len(tasks))
	}
	projects, _ := f.store.Repos().Projects.List(ctx)
	if len(projects) != 1 {
		t.Fatalf("projects = %d after resume, want 1", len(projects))
	}
}

func TestResumePendingPicksUpFailedRuns(t *testing.T) {
	f := newFixture(t)
	o := seedOnboarding(t, f, threeItems()...)
	svc := f.cascade(nil)
	ctx := context.Background()

	var original repositories.TaskRepository
	f.store.Override(func(r *repositories.Repos) {
		original = r.Tasks
		r.Tasks = &flakyTasks{TaskRepository: r.Tasks, failOn: 1}
	})
	if _, err := svc.CompleteOnboarding(ctx, f.consultant, o.ID); err == nil {
		t.Fatalf("expected failure")
	}
	f.store.Override(func(r *repositories.Repos) { r.Tasks = original })

	n, err := svc.ResumePending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ResumePending = %d, %v", n, err)
	}
	failed, _ := svc.ListRuns(ctx, models.CascadeFailed)
	if len(failed) != 0 {
		t.Fatalf("failed runs left: %d", len(failed))
	}
}

func TestCompleteOnboardingRegeneratesTakenCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	taken := &models.Project{Code: "PRJ-2025-1", Title: "Outro", ClientName: "Outro"}
	if err := f.store.Repos().Projects.Create(ctx, taken); err != nil {
		t.Fatal(err)
	}
	o := seedOnboarding(t, f, threeItems()...)
	seq := []int{1, 1, 2}
	svc := f.cascade(func(int) int {
		n := seq[0]
		seq = seq[1:]
		return n
	})

	res, err := svc.CompleteOnboarding(ctx, f.consultant, o.ID)
	if err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}
	if res.Project.Code != "PRJ-2025-2" {
		t.Fatalf("code = %s, want PRJ-2025-2", res.Project.Code)
	}
}

func TestDealWonUpgradesMembershipUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.user(t, "João", "joao@mercadosol.com.br", "  mercado   SOL ", authz.RoleClientBasic)
	deal := &models.Deal{Title: "Club", Company: "Mercado Sol", Stage: models.DealStageProposal,
		ProductInterest: "Potencialize Club", Value: 4800000}
	if err := f.store.Repos().Deals.Create(ctx, deal); err != nil {
		t.Fatal(err)
	}
	deals := NewDealService(f.deps, f.cascade(nil))

	res, err := deals.ChangeStage(ctx, f.commercial, deal.ID, models.DealStageWon, 0)
	if err != nil {
		t.Fatalf("ChangeStage: %v", err)
	}
	if res.Deal.Stage != models.DealStageWon || res.UpgradedUser == nil || res.UpgradedUser.ID != member.ID {
		t.Fatalf("unexpected result %+v", res)
	}
	stored, _ := f.store.Repos().Users.GetByID(ctx, member.ID)
	if stored.RoleID != authz.RoleClubMember {
		t.Fatalf("role = %s, want club_member", stored.RoleID)
	}
	if got := len(f.pub.ofType(models.EventMembershipActivated)); got != 1 {
		t.Fatalf("activation events = %d, want 1", got)
	}

	// leaving and re-entering Won must not run the automation again
	if _, err := deals.ChangeStage(ctx, f.commercial, deal.ID, models.DealStageLost, 0); err != nil {
		t.Fatal(err)
	}
	again, err := deals.ChangeStage(ctx, f.commercial, deal.ID, models.DealStageWon, 0)
	if err != nil {
		t.Fatal(err)
	}
	if again.UpgradedUser != nil || len(f.pub.ofType(models.EventMembershipActivated)) != 1 {
		t.Fatalf("automation ran twice")
	}
}

func TestDealWonWithoutMatchingUserWarns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deal := &models.Deal{Title: "Club", Company: "Empresa Sem Conta", Stage: models.DealStageNegotiation,
		ProductInterest: "Potencialize Club"}
	if err := f.store.Repos().Deals.Create(ctx, deal); err != nil {
		t.Fatal(err)
	}
	res, err := NewDealService(f.deps, f.cascade(nil)).ChangeStage(ctx, f.commercial, deal.ID, models.DealStageWon, 0)
	if err != nil {
		t.Fatalf("ChangeStage: %v", err)
	}
	if res.Deal.Stage != models.DealStageWon || res.UpgradedUser != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := len(f.pub.ofType(models.EventMembershipUserMissing)); got != 1 {
		t.Fatalf("warning events = %d, want 1", got)
	}
}

type failingUsers struct {
	repositories.UserRepository
}

func (r *failingUsers) Update(context.Context, *models.User) error {
	return apperr.Transient(errors.New("connection reset"))
}

func TestDealWonFailureAbandonedByLaterStageChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.user(t, "João", "joao@mercadosol.com.br", "Mercado Sol", authz.RoleClientBasic)
	deal := &models.Deal{Title: "Club", Company: "Mercado Sol", Stage: models.DealStageProposal,
		ProductInterest: "Potencialize Club"}
	if err := f.store.Repos().Deals.Create(ctx, deal); err != nil {
		t.Fatal(err)
	}
	svc := f.cascade(nil)
	deals := NewDealService(f.deps, svc)

	var original repositories.UserRepository
	f.store.Override(func(r *repositories.Repos) {
		original = r.Users
		r.Users = &failingUsers{UserRepository: r.Users}
	})
	_, err := deals.ChangeStage(ctx, f.commercial, deal.ID, models.DealStageWon, 0)
	var cerr *apperr.CascadeError
	if !errors.As(err, &cerr) || cerr.Step != "user_upgrade" {
		t.Fatalf("expected user_upgrade cascade error, got %v", err)
	}
	stored, _ := f.store.Repos().Deals.GetByID(ctx, deal.ID)
	if stored.Stage != models.DealStageProposal {
		t.Fatalf("stage = %s after failed cascade, want Proposal", stored.Stage)
	}
	f.store.Override(func(r *repositories.Repos) { r.Users = original })

	if _, err := deals.ChangeStage(ctx, f.commercial, deal.ID, models.DealStageLost, 0); err != nil {
		t.Fatalf("ChangeStage(Lost): %v", err)
	}
	run, _ := f.store.Repos().CascadeRuns.Get(ctx, cerr.RunID)
	if run.Status != models.CascadeAbandoned {
		t.Fatalf("run status = %s, want abandoned", run.Status)
	}

	n, err := svc.ResumePending(ctx)
	if err != nil || n != 0 {
		t.Fatalf("ResumePending = %d, %v", n, err)
	}
	if _, err := svc.Resume(ctx, f.admin, cerr.RunID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("manual resume of abandoned run: %v", err)
	}
	stored, _ = f.store.Repos().Deals.GetByID(ctx, deal.ID)
	if stored.Stage != models.DealStageLost {
		t.Fatalf("stage = %s, want Lost", stored.Stage)
	}
	u, _ := f.store.Repos().Users.GetByID(ctx, member.ID)
	if u.RoleID != authz.RoleClientBasic {
		t.Fatalf("role = %s, membership must not be granted", u.RoleID)
	}

	// entering Won again reopens the run and completes it
	res, err := deals.ChangeStage(ctx, f.commercial, deal.ID, models.DealStageWon, 0)
	if err != nil {
		t.Fatalf("ChangeStage(Won): %v", err)
	}
	if res.UpgradedUser == nil || res.UpgradedUser.ID != member.ID {
		t.Fatalf("unexpected result %+v", res)
	}
	run, _ = f.store.Repos().CascadeRuns.Get(ctx, cerr.RunID)
	if run.Status != models.CascadeCompleted {
		t.Fatalf("run status = %s, want completed", run.Status)
	}
}

func TestResumePendingFinishesDealStillHeadedToWon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.user(t, "João", "joao@mercadosol.com.br", "Mercado Sol", authz.RoleClientBasic)
	deal := &models.Deal{Title: "Club", Company: "Mercado Sol", Stage: models.DealStageNegotiation,
		ProductInterest: "Potencialize Club"}
	if err := f.store.Repos().Deals.Create(ctx, deal); err != nil {
		t.Fatal(err)
	}
	svc := f.cascade(nil)
	deals := NewDealService(f.deps, svc)

	var original repositories.UserRepository
	f.store.Override(func(r *repositories.Repos) {
		original = r.Users
		r.Users = &failingUsers{UserRepository: r.Users}
	})
	if _, err := deals.ChangeStage(ctx, f.commercial, deal.ID, models.DealStageWon, 0); err == nil {
		t.Fatalf("expected failure")
	}
	f.store.Override(func(r *repositories.Repos) { r.Users = original })

	n, err := svc.ResumePending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ResumePending = %d, %v", n, err)
	}
	stored, _ := f.store.Repos().Deals.GetByID(ctx, deal.ID)
	if stored.Stage != models.DealStageWon {
		t.Fatalf("stage = %s, want Won", stored.Stage)
	}
	u, _ := f.store.Repos().Users.GetByID(ctx, member.ID)
	if u.RoleID != authz.RoleClubMember {
		t.Fatalf("role = %s, want club_member", u.RoleID)
	}
}
