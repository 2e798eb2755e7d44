package memory

import (
	"context"
	"time"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
	"potencialize/internal/repositories"
)

// ---- projects

type projects struct{ s *Store }

func (r *projects) Create(_ context.Context, p *models.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.projects {
		if other.Code == p.Code {
			return apperr.Conflict("project code %s already taken", p.Code)
		}
		if p.SourceID != nil && other.SourceID != nil && other.SourceKind == p.SourceKind && *other.SourceID == *p.SourceID {
			return apperr.Conflict("project already synthesized from %s %d", p.SourceKind, *p.SourceID)
		}
	}
	now := r.s.now()
	p.ID, p.Version, p.CreatedAt, p.UpdatedAt = r.s.nextID(), 1, now, now
	r.s.projects[p.ID] = *p
	return nil
}

func (r *projects) GetByID(_ context.Context, id int64) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, apperr.NotFound("project", id)
	}
	return &p, nil
}

func (r *projects) GetBySource(_ context.Context, kind string, id int64) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.projects {
		if p.SourceKind == kind && p.SourceID != nil && *p.SourceID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *projects) List(_ context.Context) ([]models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.projects, func(a, b models.Project) bool { return a.ID < b.ID }), nil
}

func (r *projects) Update(_ context.Context, p *models.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.projects[p.ID]
	if !ok || cur.Version != p.Version {
		return apperr.Conflict("project %d was modified concurrently or does not exist", p.ID)
	}
	p.Version++
	p.UpdatedAt = r.s.now()
	r.s.projects[p.ID] = *p
	return nil
}

// Delete mirrors the postgres cascade: tasks, tickets and sub-resources go
// with the project.
func (r *projects) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return apperr.NotFound("project", id)
	}
	delete(r.s.projects, id)
	for tid, t := range r.s.tasks {
		if t.ProjectID != nil && *t.ProjectID == id {
			delete(r.s.tasks, tid)
		}
	}
	for tid, t := range r.s.tickets {
		if t.ProjectID == id {
			delete(r.s.tickets, tid)
		}
	}
	r.s.meetings = dropByProject(r.s.meetings, id, func(m models.Meeting) int64 { return m.ProjectID })
	r.s.documents = dropByProject(r.s.documents, id, func(d models.Document) int64 { return d.ProjectID })
	r.s.notes = dropByProject(r.s.notes, id, func(n models.ProjectNote) int64 { return n.ProjectID })
	for oid, o := range r.s.onboarding {
		if o.ProjectID != nil && *o.ProjectID == id {
			o.ProjectID = nil
			r.s.onboarding[oid] = o
		}
	}
	return nil
}

func dropByProject[T any](list []T, id int64, projectOf func(T) int64) []T {
	out := list[:0:0]
	for _, v := range list {
		if projectOf(v) != id {
			out = append(out, v)
		}
	}
	return out
}

func (r *projects) AddMeeting(_ context.Context, m *models.Meeting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.nextID()
	m.Attendees = append([]string{}, m.Attendees...)
	r.s.meetings = append(r.s.meetings, *m)
	return nil
}

func (r *projects) ListMeetings(_ context.Context, projectID int64) ([]models.Meeting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Meeting
	for _, m := range r.s.meetings {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *projects) AddDocument(_ context.Context, d *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID, d.UploadedAt = r.s.nextID(), r.s.now()
	r.s.documents = append(r.s.documents, *d)
	return nil
}

func (r *projects) ListDocuments(_ context.Context, projectID int64) ([]models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Document
	for _, d := range r.s.documents {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *projects) AddNote(_ context.Context, n *models.ProjectNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID, n.CreatedAt = r.s.nextID(), r.s.now()
	r.s.notes = append(r.s.notes, *n)
	return nil
}

func (r *projects) ListNotes(_ context.Context, projectID int64) ([]models.ProjectNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ProjectNote
	for _, n := range r.s.notes {
		if n.ProjectID == projectID {
			out = append(out, n)
		}
	}
	return out, nil
}

// ---- tasks

type tasks struct{ s *Store }

func cloneTask(t models.Task) models.Task {
	t.SubTasks = append([]models.SubTask{}, t.SubTasks...)
	return t
}

func (r *tasks) assignSubTaskIDs(t *models.Task) {
	for i := range t.SubTasks {
		t.SubTasks[i].TaskID = t.ID
		t.SubTasks[i].Position = i
		if t.SubTasks[i].ID == 0 {
			t.SubTasks[i].ID = r.s.nextID()
		}
	}
}

func (r *tasks) Create(_ context.Context, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	t.ID, t.Version, t.CreatedAt, t.UpdatedAt = r.s.nextID(), 1, now, now
	r.assignSubTaskIDs(t)
	r.s.tasks[t.ID] = cloneTask(*t)
	return nil
}

func (r *tasks) GetByID(_ context.Context, id int64) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task", id)
	}
	t = cloneTask(t)
	return &t, nil
}

func (r *tasks) List(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Task
	for _, t := range sortedValues(r.s.tasks, func(a, b models.Task) bool { return a.ID < b.ID }) {
		if f.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *f.ProjectID) {
			continue
		}
		if f.AssignedTo != nil && t.AssignedTo != *f.AssignedTo {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, cloneTask(t))
	}
	return out, nil
}

func (r *tasks) Update(_ context.Context, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tasks[t.ID]
	if !ok || cur.Version != t.Version {
		return apperr.Conflict("task %d was modified concurrently or does not exist", t.ID)
	}
	t.Version++
	t.UpdatedAt = r.s.now()
	r.assignSubTaskIDs(t)
	r.s.tasks[t.ID] = cloneTask(*t)
	return nil
}

func (r *tasks) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tasks, id)
	return nil
}

// ---- tickets

type tickets struct{ s *Store }

func cloneTicket(t models.Ticket) models.Ticket {
	t.Interactions = append([]models.Interaction{}, t.Interactions...)
	return t
}

func (r *tickets) Create(_ context.Context, t *models.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	t.ID, t.Version, t.CreatedAt, t.UpdatedAt = r.s.nextID(), 1, now, now
	for i := range t.Interactions {
		t.Interactions[i].ID = r.s.nextID()
		t.Interactions[i].TicketID = t.ID
	}
	r.s.tickets[t.ID] = cloneTicket(*t)
	return nil
}

func (r *tickets) GetByID(_ context.Context, id int64) (*models.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket", id)
	}
	t = cloneTicket(t)
	return &t, nil
}

func (r *tickets) List(_ context.Context, f models.TicketFilter) ([]models.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Ticket
	for _, t := range sortedValues(r.s.tickets, func(a, b models.Ticket) bool { return a.ID < b.ID }) {
		if f.ProjectID != nil && t.ProjectID != *f.ProjectID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, cloneTicket(t))
	}
	return out, nil
}

func (r *tickets) Update(_ context.Context, t *models.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tickets[t.ID]
	if !ok || cur.Version != t.Version {
		return apperr.Conflict("ticket %d was modified concurrently or does not exist", t.ID)
	}
	t.Version++
	t.UpdatedAt = r.s.now()
	// interactions are only added through AppendInteraction
	next := cloneTicket(*t)
	next.Interactions = cur.Interactions
	r.s.tickets[t.ID] = next
	return nil
}

func (r *tickets) AppendInteraction(_ context.Context, in *models.Interaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[in.TicketID]
	if !ok {
		return apperr.NotFound("ticket", in.TicketID)
	}
	in.ID = r.s.nextID()
	t.Interactions = append(append([]models.Interaction{}, t.Interactions...), *in)
	r.s.tickets[t.ID] = t
	return nil
}

// ---- onboarding

type onboarding struct{ s *Store }

func cloneOnboarding(o models.OnboardingItem) models.OnboardingItem {
	o.Checklist = append([]models.ChecklistItem{}, o.Checklist...)
	o.Notes = append([]models.OnboardingNote{}, o.Notes...)
	if o.ProjectID != nil {
		v := *o.ProjectID
		o.ProjectID = &v
	}
	return o
}

func (r *onboarding) assignChecklistIDs(o *models.OnboardingItem) {
	for i := range o.Checklist {
		o.Checklist[i].OnboardingID = o.ID
		o.Checklist[i].Position = i
		if o.Checklist[i].ID == 0 {
			o.Checklist[i].ID = r.s.nextID()
		}
	}
}

func (r *onboarding) Create(_ context.Context, o *models.OnboardingItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.ID, o.Version = r.s.nextID(), 1
	if o.StartDate.IsZero() {
		o.StartDate = r.s.now()
	}
	r.assignChecklistIDs(o)
	r.s.onboarding[o.ID] = cloneOnboarding(*o)
	return nil
}

func (r *onboarding) GetByID(_ context.Context, id int64) (*models.OnboardingItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.onboarding[id]
	if !ok {
		return nil, apperr.NotFound("onboarding", id)
	}
	o = cloneOnboarding(o)
	return &o, nil
}

func (r *onboarding) List(_ context.Context) ([]models.OnboardingItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := sortedValues(r.s.onboarding, func(a, b models.OnboardingItem) bool { return a.ID < b.ID })
	for i := range out {
		out[i] = cloneOnboarding(out[i])
	}
	return out, nil
}

func (r *onboarding) Update(_ context.Context, o *models.OnboardingItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.onboarding[o.ID]
	if !ok || cur.Version != o.Version {
		return apperr.Conflict("onboarding %d was modified concurrently or does not exist", o.ID)
	}
	o.Version++
	r.assignChecklistIDs(o)
	next := cloneOnboarding(*o)
	next.Notes = cur.Notes
	r.s.onboarding[o.ID] = next
	return nil
}

func (r *onboarding) AddNote(_ context.Context, n *models.OnboardingNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.onboarding[n.OnboardingID]
	if !ok {
		return apperr.NotFound("onboarding", n.OnboardingID)
	}
	n.ID, n.CreatedAt = r.s.nextID(), r.s.now()
	o.Notes = append(append([]models.OnboardingNote{}, o.Notes...), *n)
	r.s.onboarding[o.ID] = o
	return nil
}

// ---- reports

type reports struct{ s *Store }

func (r *reports) DealFunnel(_ context.Context) ([]repositories.StageSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	by := map[string]*repositories.StageSummary{}
	var order []string
	for _, d := range sortedValues(r.s.deals, func(a, b models.Deal) bool { return a.ID < b.ID }) {
		st, ok := by[string(d.Stage)]
		if !ok {
			st = &repositories.StageSummary{Stage: string(d.Stage)}
			by[string(d.Stage)] = st
			order = append(order, string(d.Stage))
		}
		st.Count++
		st.Value += d.Value
	}
	out := make([]repositories.StageSummary, 0, len(order))
	for _, s := range order {
		out = append(out, *by[s])
	}
	return out, nil
}

func (r *reports) ProjectHealth(_ context.Context) ([]repositories.ProjectSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	by := map[string]*repositories.ProjectSummary{}
	for _, p := range r.s.projects {
		s, ok := by[string(p.SLAStatus)]
		if !ok {
			s = &repositories.ProjectSummary{SLAStatus: string(p.SLAStatus)}
			by[string(p.SLAStatus)] = s
		}
		s.Progress = (s.Progress*float64(s.Count) + float64(p.Progress)) / float64(s.Count+1)
		s.Count++
	}
	out := sortedValues(by, func(a, b *repositories.ProjectSummary) bool { return a.SLAStatus < b.SLAStatus })
	res := make([]repositories.ProjectSummary, len(out))
	for i, s := range out {
		res[i] = *s
	}
	return res, nil
}

func (r *reports) WonValueSince(_ context.Context, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, d := range r.s.deals {
		if d.Stage == models.DealStageWon && !d.UpdatedAt.Before(since) {
			total += d.Value
		}
	}
	return total, nil
}
