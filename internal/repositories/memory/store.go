// Package memory is an in-process Store for tests and local runs. WithinTx is
// not atomic: a failing callback leaves earlier writes in place.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
	"potencialize/internal/repositories"
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	users       map[int64]models.User
	roles       map[string]models.Role
	leads       map[int64]models.Lead
	deals       map[int64]models.Deal
	products    map[int64]models.Product
	projects    map[int64]models.Project
	meetings    []models.Meeting
	documents   []models.Document
	notes       []models.ProjectNote
	tasks       map[int64]models.Task
	tickets     map[int64]models.Ticket
	onboarding  map[int64]models.OnboardingItem
	events      []models.Event
	cascadeRuns map[string]models.CascadeRun

	repos repositories.Repos
}

func NewStore() *Store {
	s := &Store{
		now:         time.Now,
		users:       map[int64]models.User{},
		roles:       map[string]models.Role{},
		leads:       map[int64]models.Lead{},
		deals:       map[int64]models.Deal{},
		products:    map[int64]models.Product{},
		projects:    map[int64]models.Project{},
		tasks:       map[int64]models.Task{},
		tickets:     map[int64]models.Ticket{},
		onboarding:  map[int64]models.OnboardingItem{},
		cascadeRuns: map[string]models.CascadeRun{},
	}
	s.repos = repositories.Repos{
		Users:       &users{s},
		Roles:       &roles{s},
		Leads:       &leads{s},
		Deals:       &deals{s},
		Products:    &products{s},
		Projects:    &projects{s},
		Tasks:       &tasks{s},
		Tickets:     &tickets{s},
		Onboarding:  &onboarding{s},
		Events:      &events{s},
		CascadeRuns: &cascadeRuns{s},
		Reports:     &reports{s},
	}
	return s
}

// SetClock fixes the timestamps written by the store.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Override lets tests wrap individual repositories, e.g. to inject faults.
func (s *Store) Override(fn func(r *repositories.Repos)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.repos)
}

func (s *Store) Repos() repositories.Repos {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos
}

func (s *Store) WithinTx(ctx context.Context, fn func(repositories.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.Repos())
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// ---- users

type users struct{ s *Store }

func (r *users) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, other := range r.s.users {
		if other.Email == email {
			return apperr.Conflict("user %s already exists", email)
		}
	}
	u.ID, u.Email, u.Version, u.CreatedAt = r.s.nextID(), email, 1, r.s.now()
	r.s.users[u.ID] = *u
	return nil
}

func (r *users) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	return &u, nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user", email)
}

func (r *users) List(_ context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.users, func(a, b models.User) bool { return a.ID < b.ID }), nil
}

func (r *users) ListByCompany(ctx context.Context, company string) ([]models.User, error) {
	all, _ := r.List(ctx)
	var out []models.User
	for _, u := range all {
		if normalize(u.CompanyName) == normalize(company) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *users) CountByRole(_ context.Context, roleID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, u := range r.s.users {
		if u.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

func (r *users) Update(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok || cur.Version != u.Version {
		return apperr.Conflict("user %d was modified concurrently or does not exist", u.ID)
	}
	u.Version++
	u.Email = strings.ToLower(u.Email)
	r.s.users[u.ID] = *u
	return nil
}

func (r *users) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	return nil
}

// ---- roles

type roles struct{ s *Store }

func cloneRole(r models.Role) models.Role {
	r.Permissions = append([]string(nil), r.Permissions...)
	return r
}

func (r *roles) List(_ context.Context) ([]models.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := sortedValues(r.s.roles, func(a, b models.Role) bool { return a.ID < b.ID })
	for i := range out {
		out[i] = cloneRole(out[i])
	}
	return out, nil
}

func (r *roles) Get(_ context.Context, id string) (*models.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok {
		return nil, apperr.NotFound("role", id)
	}
	role = cloneRole(role)
	return &role, nil
}

func (r *roles) Upsert(_ context.Context, role *models.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.roles[role.ID] = cloneRole(*role)
	return nil
}

func (r *roles) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[id]; !ok {
		return apperr.NotFound("role", id)
	}
	delete(r.s.roles, id)
	return nil
}

// ---- leads

type leads struct{ s *Store }

func (r *leads) Create(_ context.Context, l *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID, l.Version, l.CreatedAt = r.s.nextID(), 1, r.s.now()
	r.s.leads[l.ID] = *l
	return nil
}

func (r *leads) GetByID(_ context.Context, id int64) (*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[id]
	if !ok {
		return nil, apperr.NotFound("lead", id)
	}
	return &l, nil
}

func (r *leads) List(_ context.Context) ([]models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.leads, func(a, b models.Lead) bool { return a.ID > b.ID }), nil
}

func (r *leads) Update(_ context.Context, l *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.leads[l.ID]
	if !ok || cur.Version != l.Version {
		return apperr.Conflict("lead %d was modified concurrently or does not exist", l.ID)
	}
	l.Version++
	r.s.leads[l.ID] = *l
	return nil
}

func (r *leads) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.leads, id)
	return nil
}

// ---- deals

type deals struct{ s *Store }

func cloneDeal(d models.Deal) models.Deal {
	d.AdditionalProducts = append([]string{}, d.AdditionalProducts...)
	if d.LeadID != nil {
		v := *d.LeadID
		d.LeadID = &v
	}
	return d
}

func (r *deals) Create(_ context.Context, d *models.Deal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d.LeadID != nil {
		for _, other := range r.s.deals {
			if other.LeadID != nil && *other.LeadID == *d.LeadID {
				return apperr.Conflict("lead %d already converted", *d.LeadID)
			}
		}
	}
	now := r.s.now()
	d.ID, d.Version, d.CreatedAt, d.UpdatedAt = r.s.nextID(), 1, now, now
	r.s.deals[d.ID] = cloneDeal(*d)
	return nil
}

func (r *deals) GetByID(_ context.Context, id int64) (*models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deals[id]
	if !ok {
		return nil, apperr.NotFound("deal", id)
	}
	d = cloneDeal(d)
	return &d, nil
}

func (r *deals) GetByLeadID(_ context.Context, leadID int64) (*models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.deals {
		if d.LeadID != nil && *d.LeadID == leadID {
			d = cloneDeal(d)
			return &d, nil
		}
	}
	return nil, nil
}

func (r *deals) List(_ context.Context) ([]models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := sortedValues(r.s.deals, func(a, b models.Deal) bool { return a.ID < b.ID })
	for i := range out {
		out[i] = cloneDeal(out[i])
	}
	return out, nil
}

func (r *deals) Update(_ context.Context, d *models.Deal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.deals[d.ID]
	if !ok || cur.Version != d.Version {
		return apperr.Conflict("deal %d was modified concurrently or does not exist", d.ID)
	}
	d.Version++
	d.UpdatedAt = r.s.now()
	r.s.deals[d.ID] = cloneDeal(*d)
	return nil
}

func (r *deals) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.deals, id)
	return nil
}

// ---- products

type products struct{ s *Store }

func (r *products) List(_ context.Context) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.products, func(a, b models.Product) bool { return a.Title < b.Title }), nil
}

func (r *products) Create(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.products {
		if other.Title == p.Title {
			return apperr.Conflict("product %q already exists", p.Title)
		}
	}
	p.ID = r.s.nextID()
	r.s.products[p.ID] = *p
	return nil
}

func (r *products) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.products, id)
	return nil
}

// ---- events

type events struct{ s *Store }

func (r *events) Append(_ context.Context, e *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	r.s.events = append(r.s.events, *e)
	return nil
}

func (r *events) ListByEntity(_ context.Context, kind string, id int64) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Event
	for _, e := range r.s.events {
		if e.EntityKind == kind && e.EntityID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *events) ListRecent(_ context.Context, limit int) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []models.Event
	for i := len(r.s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.s.events[i])
	}
	return out, nil
}

// ---- cascade runs

type cascadeRuns struct{ s *Store }

func cloneRun(run models.CascadeRun) models.CascadeRun {
	run.TaskIDs = append([]int64{}, run.TaskIDs...)
	return run
}

func (r *cascadeRuns) Create(_ context.Context, run *models.CascadeRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.cascadeRuns {
		if other.EntityKind == run.EntityKind && other.EntityID == run.EntityID && other.Transition == run.Transition {
			return apperr.Conflict("cascade already recorded for %s %d", run.EntityKind, run.EntityID)
		}
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	r.s.cascadeRuns[run.ID] = cloneRun(*run)
	return nil
}

func (r *cascadeRuns) Get(_ context.Context, id string) (*models.CascadeRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.cascadeRuns[id]
	if !ok {
		return nil, apperr.NotFound("cascade run", id)
	}
	run = cloneRun(run)
	return &run, nil
}

func (r *cascadeRuns) Find(_ context.Context, kind string, entityID int64, transition string) (*models.CascadeRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, run := range r.s.cascadeRuns {
		if run.EntityKind == kind && run.EntityID == entityID && run.Transition == transition {
			run = cloneRun(run)
			return &run, nil
		}
	}
	return nil, nil
}

func (r *cascadeRuns) ListByStatus(_ context.Context, status models.CascadeStatus) ([]models.CascadeRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.CascadeRun
	for _, run := range r.s.cascadeRuns {
		if run.Status == status {
			out = append(out, cloneRun(run))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r *cascadeRuns) Update(_ context.Context, run *models.CascadeRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cascadeRuns[run.ID]; !ok {
		return apperr.NotFound("cascade run", run.ID)
	}
	r.s.cascadeRuns[run.ID] = cloneRun(*run)
	return nil
}
