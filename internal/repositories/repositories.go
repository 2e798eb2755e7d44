package repositories

import (
	"context"
	"database/sql"
	"time"

	"potencialize/internal/models"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Update methods take the caller's Version as the expected one and bump it on
// success. A mismatch returns apperr.ErrConflict.

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// ListByCompany matches case- and whitespace-insensitively.
	ListByCompany(ctx context.Context, company string) ([]models.User, error)
	CountByRole(ctx context.Context, roleID string) (int, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id int64) error
}

type RoleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	Get(ctx context.Context, id string) (*models.Role, error)
	Upsert(ctx context.Context, r *models.Role) error
	Delete(ctx context.Context, id string) error
}

type LeadRepository interface {
	Create(ctx context.Context, l *models.Lead) error
	GetByID(ctx context.Context, id int64) (*models.Lead, error)
	List(ctx context.Context) ([]models.Lead, error)
	Update(ctx context.Context, l *models.Lead) error
	Delete(ctx context.Context, id int64) error
}

type DealRepository interface {
	Create(ctx context.Context, d *models.Deal) error
	GetByID(ctx context.Context, id int64) (*models.Deal, error)
	// GetByLeadID returns (nil, nil) when the lead was never converted.
	GetByLeadID(ctx context.Context, leadID int64) (*models.Deal, error)
	List(ctx context.Context) ([]models.Deal, error)
	Update(ctx context.Context, d *models.Deal) error
	Delete(ctx context.Context, id int64) error
}

type ProductRepository interface {
	List(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) error
}

type ProjectRepository interface {
	// Create returns apperr.ErrConflict when the code is taken.
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	// GetBySource returns (nil, nil) when nothing was synthesized from it.
	GetBySource(ctx context.Context, kind string, id int64) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	// Delete removes the project with its tasks, tickets and sub-resources.
	Delete(ctx context.Context, id int64) error

	AddMeeting(ctx context.Context, m *models.Meeting) error
	ListMeetings(ctx context.Context, projectID int64) ([]models.Meeting, error)
	AddDocument(ctx context.Context, d *models.Document) error
	ListDocuments(ctx context.Context, projectID int64) ([]models.Document, error)
	AddNote(ctx context.Context, n *models.ProjectNote) error
	ListNotes(ctx context.Context, projectID int64) ([]models.ProjectNote, error)
}

type TaskRepository interface {
	// Create also stores the sub-tasks and fills their ids.
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	List(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	// Update replaces the sub-task list.
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id int64) error
}

type TicketRepository interface {
	Create(ctx context.Context, t *models.Ticket) error
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	List(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error)
	// Update stores status and assignment. Interactions are append-only.
	Update(ctx context.Context, t *models.Ticket) error
	AppendInteraction(ctx context.Context, in *models.Interaction) error
}

type OnboardingRepository interface {
	Create(ctx context.Context, o *models.OnboardingItem) error
	GetByID(ctx context.Context, id int64) (*models.OnboardingItem, error)
	List(ctx context.Context) ([]models.OnboardingItem, error)
	// Update replaces the checklist.
	Update(ctx context.Context, o *models.OnboardingItem) error
	AddNote(ctx context.Context, n *models.OnboardingNote) error
}

type EventRepository interface {
	Append(ctx context.Context, e *models.Event) error
	ListByEntity(ctx context.Context, kind string, id int64) ([]models.Event, error)
	ListRecent(ctx context.Context, limit int) ([]models.Event, error)
}

type CascadeRunRepository interface {
	// Create returns apperr.ErrConflict when the key already has a run.
	Create(ctx context.Context, r *models.CascadeRun) error
	Get(ctx context.Context, id string) (*models.CascadeRun, error)
	// Find returns (nil, nil) when no run exists for the key.
	Find(ctx context.Context, kind string, entityID int64, transition string) (*models.CascadeRun, error)
	ListByStatus(ctx context.Context, status models.CascadeStatus) ([]models.CascadeRun, error)
	Update(ctx context.Context, r *models.CascadeRun) error
}

type StageSummary struct {
	Stage string `db:"stage" json:"stage"`
	Count int    `db:"count" json:"count"`
	Value int64  `db:"value" json:"value"`
}

type ProjectSummary struct {
	SLAStatus string  `db:"sla_status" json:"sla_status"`
	Count     int     `db:"count" json:"count"`
	Progress  float64 `db:"progress" json:"avg_progress"`
}

type ReportRepository interface {
	DealFunnel(ctx context.Context) ([]StageSummary, error)
	ProjectHealth(ctx context.Context) ([]ProjectSummary, error)
	WonValueSince(ctx context.Context, since time.Time) (int64, error)
}

// Repos is one consistent view of storage: either the pool or a transaction.
type Repos struct {
	Users       UserRepository
	Roles       RoleRepository
	Leads       LeadRepository
	Deals       DealRepository
	Products    ProductRepository
	Projects    ProjectRepository
	Tasks       TaskRepository
	Tickets     TicketRepository
	Onboarding  OnboardingRepository
	Events      EventRepository
	CascadeRuns CascadeRunRepository
	Reports     ReportRepository
}

// Store hands out repositories and runs multi-entity writes. Implementations
// document whether WithinTx is atomic.
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(Repos) error) error
}
