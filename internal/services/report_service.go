package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"potencialize/internal/authz"
	"potencialize/internal/models"
	"potencialize/internal/repositories"
)

type ReportService struct {
	deps Deps
}

func NewReportService(deps Deps) *ReportService {
	return &ReportService{deps: deps.withDefaults()}
}

type Overview struct {
	Funnel        []repositories.StageSummary   `json:"funnel,omitempty"`
	WonThisMonth  *int64                        `json:"won_this_month,omitempty"`
	ProjectHealth []repositories.ProjectSummary `json:"project_health"`
	RecentEvents  []models.Event                `json:"recent_events"`
}

// Overview is the dashboard payload. Financial figures are left out for
// roles without view_financials.
func (s *ReportService) Overview(ctx context.Context, actor *models.User) (*Overview, error) {
	if err := s.deps.authorize(actor, authz.ViewDashboard); err != nil {
		return nil, err
	}
	repos := s.deps.Store.Repos()
	financial := s.deps.Registry.HasPermission(actor, authz.ViewFinancials)
	now := s.deps.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	out := &Overview{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.ProjectHealth, err = repos.Reports.ProjectHealth(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentEvents, err = repos.Events.ListRecent(gctx, 20)
		return err
	})
	if financial {
		g.Go(func() (err error) {
			out.Funnel, err = repos.Reports.DealFunnel(gctx)
			return err
		})
		g.Go(func() error {
			won, err := repos.Reports.WonValueSince(gctx, monthStart)
			out.WonThisMonth = &won
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReportService) Funnel(ctx context.Context, actor *models.User) ([]repositories.StageSummary, error) {
	if err := s.deps.authorize(actor, authz.ViewFinancials); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Reports.DealFunnel(ctx)
}

// History lists the events recorded for one entity.
func (s *ReportService) History(ctx context.Context, actor *models.User, kind string, id int64) ([]models.Event, error) {
	if err := s.deps.authorize(actor, authz.ViewDashboard); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Events.ListByEntity(ctx, kind, id)
}
