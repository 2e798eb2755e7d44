package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"potencialize/internal/authz"
	"potencialize/internal/models"
	"potencialize/internal/repositories/memory"
	"potencialize/internal/sla"
	"potencialize/internal/workflow"
)

var testNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) ofType(typ string) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store *memory.Store
	deps  Deps
	pub   *recordingPublisher
	now   time.Time

	admin      *models.User
	commercial *models.User
	consultant *models.User
	assessor   *models.User
	client     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(func() time.Time { return testNow })
	f := &fixture{store: store, pub: &recordingPublisher{}, now: testNow}
	f.deps = Deps{
		Store:     store,
		Registry:  authz.NewRegistry(authz.DefaultRoles()),
		Publisher: f.pub,
		Now:       func() time.Time { return f.now },
	}
	f.admin = f.user(t, "Ana Admin", "ana@potencialize.com.br", "Potencialize", authz.RoleAdmin)
	f.commercial = f.user(t, "Caio Comercial", "caio@potencialize.com.br", "Potencialize", authz.RoleCommercial)
	f.consultant = f.user(t, "Clara Consultora", "clara@potencialize.com.br", "Potencialize", authz.RoleConsultant)
	f.assessor = f.user(t, "Ivo Assessor", "ivo@potencialize.com.br", "Potencialize", authz.RoleAssessor)
	f.client = f.user(t, "Rita Cliente", "rita@padaria.com.br", "Padaria Central", authz.RoleClientBasic)
	return f
}

func (f *fixture) user(t *testing.T, name, email, company, role string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, CompanyName: company, RoleID: role, Active: true}
	if err := f.store.Repos().Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) cascade(intn func(int) int) *CascadeService {
	if intn == nil {
		intn = func(int) int { return 42 }
	}
	return NewCascadeService(f.deps, CascadeConfig{
		Membership: workflow.MembershipRule{ProductTitle: "Potencialize Club", RoleID: authz.RoleClubMember},
		Project:    workflow.ProjectDefaults{DurationMonths: 6, DefaultAssignee: "Sistema"},
		Intn:       intn,
	})
}

func (f *fixture) project(t *testing.T, client string) *models.Project {
	t.Helper()
	p := &models.Project{Code: "PRJ-T-" + client, Title: "Projeto " + client, ClientName: client,
		Type: models.ProjectAssessoria, Status: models.ProjectStatusActive, SLAStatus: models.SLAOk}
	if err := f.store.Repos().Projects.Create(context.Background(), p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func classifier() sla.Classifier { return sla.NewClassifier(sla.DefaultThresholds()) }

func ptr[T any](v T) *T { return &v }
