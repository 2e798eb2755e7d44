package services

import (
	"context"
	"errors"
	"math/rand"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/checklist"
	"potencialize/internal/models"
	"potencialize/internal/sla"
	"potencialize/internal/workflow"
)

const kindProject = "project"

var noteTypes = map[string]bool{"internal": true, "external": true, "risk": true, "highlight": true}

type ProjectService struct {
	deps         Deps
	classifier   sla.Classifier
	codeAttempts int
	intn         func(int) int
}

func NewProjectService(deps Deps, classifier sla.Classifier, codeAttempts int) *ProjectService {
	if codeAttempts <= 0 {
		codeAttempts = 3
	}
	return &ProjectService{deps: deps.withDefaults(), classifier: classifier, codeAttempts: codeAttempts, intn: rand.Intn}
}

func (s *ProjectService) Create(ctx context.Context, actor *models.User, p *models.Project) error {
	if err := s.deps.authorize(actor, authz.EditProjects); err != nil {
		return err
	}
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.ClientName) == "" {
		return apperr.Validation("project title and client are required")
	}
	if p.Progress < 0 || p.Progress > 100 {
		return apperr.Validation("progress must be within 0..100")
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusActive
	}
	if p.SLAStatus == "" {
		p.SLAStatus = models.SLAOk
	}
	if p.Type == "" {
		p.Type = models.ProjectImplementacao
	}
	now := s.deps.Now()
	generated := p.Code == ""
	for attempt := 1; ; attempt++ {
		if generated {
			p.Code = workflow.ProjectCode(now, s.intn)
		}
		err := s.deps.Store.Repos().Projects.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !generated || !errors.Is(err, apperr.ErrConflict) || attempt >= s.codeAttempts {
			return err
		}
	}
}

func (s *ProjectService) List(ctx context.Context, actor *models.User) ([]models.Project, error) {
	if err := s.deps.authorize(actor, authz.ViewProjects); err != nil {
		return nil, err
	}
	all, err := s.deps.Store.Repos().Projects.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(all))
	for _, p := range all {
		if s.deps.canSeeProject(actor, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *ProjectService) Get(ctx context.Context, actor *models.User, id int64) (*models.Project, error) {
	if err := s.deps.authorize(actor, authz.ViewProjects); err != nil {
		return nil, err
	}
	p, err := s.deps.Store.Repos().Projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.deps.canSeeProject(actor, *p) {
		return nil, apperr.NotFound("project", id)
	}
	return p, nil
}

func (s *ProjectService) Update(ctx context.Context, actor *models.User, in *models.Project) (*models.Project, error) {
	if err := s.deps.authorize(actor, authz.EditProjects); err != nil {
		return nil, err
	}
	if in.Progress < 0 || in.Progress > 100 {
		return nil, apperr.Validation("progress must be within 0..100")
	}
	var out *models.Project
	err := s.deps.locked(ctx, kindProject, in.ID, func() error {
		repo := s.deps.Store.Repos().Projects
		cur, err := repo.GetByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := checkVersion("project", in.ID, in.Version, cur.Version); err != nil {
			return err
		}
		if in.Title != "" {
			cur.Title = in.Title
		}
		if in.Status != "" {
			cur.Status = in.Status
		}
		if in.Type != "" {
			cur.Type = in.Type
		}
		if in.Manager != "" {
			cur.Manager = in.Manager
		}
		cur.Description = in.Description
		cur.Progress = in.Progress
		cur.StartDate, cur.EndDate = in.StartDate, in.EndDate
		cur.ContractStart, cur.ContractEnd = in.ContractStart, in.ContractEnd
		cur.UpdatedAt = s.deps.Now()
		if err := repo.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *ProjectService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := s.deps.authorize(actor, authz.EditProjects); err != nil {
		return err
	}
	return s.deps.Store.Repos().Projects.Delete(ctx, id)
}

func (s *ProjectService) AddMeeting(ctx context.Context, actor *models.User, m *models.Meeting) error {
	if err := s.deps.authorize(actor, authz.EditProjects); err != nil {
		return err
	}
	if strings.TrimSpace(m.Title) == "" || m.Date.IsZero() {
		return apperr.Validation("meeting title and date are required")
	}
	if m.DurationMinutes < 0 {
		return apperr.Validation("meeting duration cannot be negative")
	}
	if err := s.deps.requireProject(ctx, actor, m.ProjectID); err != nil {
		return err
	}
	if m.Attendees == nil {
		m.Attendees = []string{}
	}
	return s.deps.Store.Repos().Projects.AddMeeting(ctx, m)
}

func (s *ProjectService) Meetings(ctx context.Context, actor *models.User, projectID int64) ([]models.Meeting, error) {
	if err := s.deps.authorize(actor, authz.ViewProjects); err != nil {
		return nil, err
	}
	if err := s.deps.requireProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Projects.ListMeetings(ctx, projectID)
}

// AddDocument records a reference to an already stored blob.
func (s *ProjectService) AddDocument(ctx context.Context, actor *models.User, d *models.Document) error {
	if err := s.deps.authorize(actor, authz.EditProjects); err != nil {
		return err
	}
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.URL) == "" {
		return apperr.Validation("document title and url are required")
	}
	if err := s.deps.requireProject(ctx, actor, d.ProjectID); err != nil {
		return err
	}
	d.UploadedBy = actorName(actor)
	d.UploadedAt = s.deps.Now()
	if d.Version == "" {
		d.Version = "1.0"
	}
	return s.deps.Store.Repos().Projects.AddDocument(ctx, d)
}

func (s *ProjectService) Documents(ctx context.Context, actor *models.User, projectID int64) ([]models.Document, error) {
	if err := s.deps.authorize(actor, authz.ViewProjects); err != nil {
		return nil, err
	}
	if err := s.deps.requireProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Projects.ListDocuments(ctx, projectID)
}

func (s *ProjectService) AddNote(ctx context.Context, actor *models.User, n *models.ProjectNote) error {
	if err := s.deps.authorize(actor, authz.EditProjects); err != nil {
		return err
	}
	if strings.TrimSpace(n.Text) == "" {
		return apperr.Validation("note text is required")
	}
	if n.Type == "" {
		n.Type = "internal"
	}
	if !noteTypes[n.Type] {
		return apperr.Validation("unknown note type %q", n.Type)
	}
	if err := s.deps.requireProject(ctx, actor, n.ProjectID); err != nil {
		return err
	}
	n.Author = actorName(actor)
	n.CreatedAt = s.deps.Now()
	return s.deps.Store.Repos().Projects.AddNote(ctx, n)
}

// Notes hides internal and risk notes from client accounts.
func (s *ProjectService) Notes(ctx context.Context, actor *models.User, projectID int64) ([]models.ProjectNote, error) {
	if err := s.deps.authorize(actor, authz.ViewProjects); err != nil {
		return nil, err
	}
	if err := s.deps.requireProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	notes, err := s.deps.Store.Repos().Projects.ListNotes(ctx, projectID)
	if err != nil || !s.deps.Registry.IsClient(actor) {
		return notes, err
	}
	out := notes[:0:0]
	for _, n := range notes {
		if n.Type == "external" || n.Type == "highlight" {
			out = append(out, n)
		}
	}
	return out, nil
}

type ProjectDashboard struct {
	Project   models.Project       `json:"project"`
	Progress  int                  `json:"progress"`
	SLAStatus models.SLAStatus     `json:"sla_status"`
	Tasks     []TaskView           `json:"tasks"`
	Tickets   []TicketView         `json:"tickets"`
	Meetings  []models.Meeting     `json:"meetings"`
	Documents []models.Document    `json:"documents"`
	Notes     []models.ProjectNote `json:"notes"`
}

// Dashboard reads the project's children concurrently and derives progress
// and SLA state at the same instant.
func (s *ProjectService) Dashboard(ctx context.Context, actor *models.User, id int64) (*ProjectDashboard, error) {
	project, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	repos := s.deps.Store.Repos()
	var (
		tasks     []models.Task
		tickets   []models.Ticket
		meetings  []models.Meeting
		documents []models.Document
		notes     []models.ProjectNote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tasks, err = repos.Tasks.List(gctx, models.TaskFilter{ProjectID: &id})
		return err
	})
	g.Go(func() (err error) {
		tickets, err = repos.Tickets.List(gctx, models.TicketFilter{ProjectID: &id})
		return err
	})
	g.Go(func() (err error) {
		meetings, err = repos.Projects.ListMeetings(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		documents, err = repos.Projects.ListDocuments(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		notes, err = s.Notes(gctx, actor, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	d := &ProjectDashboard{
		Project:   *project,
		Progress:  checklist.ProjectProgress(tasks),
		SLAStatus: s.classifier.ProjectSLA(tasks, tickets, now),
		Tasks:     make([]TaskView, 0, len(tasks)),
		Tickets:   make([]TicketView, 0, len(tickets)),
		Meetings:  meetings,
		Documents: documents,
		Notes:     notes,
	}
	for _, t := range tasks {
		d.Tasks = append(d.Tasks, taskView(t, now))
	}
	for _, t := range tickets {
		d.Tickets = append(d.Tickets, ticketView(s.classifier, t, now))
	}
	return d, nil
}

// RefreshSLA recomputes the stored sla_status and progress of every project
// from its tasks and tickets. It returns how many projects changed.
func (s *ProjectService) RefreshSLA(ctx context.Context) (int, error) {
	repos := s.deps.Store.Repos()
	projects, err := repos.Projects.List(ctx)
	if err != nil {
		return 0, err
	}
	now := s.deps.Now()
	changed := 0
	for _, p := range projects {
		tasks, err := repos.Tasks.List(ctx, models.TaskFilter{ProjectID: &p.ID})
		if err != nil {
			return changed, err
		}
		tickets, err := repos.Tickets.List(ctx, models.TicketFilter{ProjectID: &p.ID})
		if err != nil {
			return changed, err
		}
		status := s.classifier.ProjectSLA(tasks, tickets, now)
		progress := p.Progress
		if len(tasks) > 0 {
			progress = checklist.ProjectProgress(tasks)
		}
		if status == p.SLAStatus && progress == p.Progress {
			continue
		}
		err = s.deps.locked(ctx, kindProject, p.ID, func() error {
			cur, err := repos.Projects.GetByID(ctx, p.ID)
			if err != nil {
				return err
			}
			cur.SLAStatus, cur.Progress, cur.UpdatedAt = status, progress, now
			return repos.Projects.Update(ctx, cur)
		})
		if err != nil {
			s.deps.Logger.Warn("sla refresh skipped project", zap.Int64("project_id", p.ID), zap.Error(err))
			continue
		}
		changed++
	}
	return changed, nil
}
