package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
	"potencialize/internal/repositories"
	"potencialize/internal/workflow"
)

type LeadService struct {
	deps     Deps
	defaults workflow.LeadConversionDefaults
}

func NewLeadService(deps Deps, defaults workflow.LeadConversionDefaults) *LeadService {
	return &LeadService{deps: deps.withDefaults(), defaults: defaults}
}

var leadStatuses = map[models.LeadStatus]bool{
	models.LeadNew:       true,
	models.LeadContacted: true,
	models.LeadQualified: true,
}

func validateLead(l *models.Lead) error {
	if strings.TrimSpace(l.Name) == "" && strings.TrimSpace(l.Company) == "" {
		return apperr.Validation("lead needs a name or a company")
	}
	if !leadStatuses[l.Status] {
		return apperr.Validation("unknown lead status %q", l.Status)
	}
	return nil
}

func (s *LeadService) Create(ctx context.Context, actor *models.User, lead *models.Lead) error {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return err
	}
	if lead.Status == "" {
		lead.Status = models.LeadNew
	}
	if err := validateLead(lead); err != nil {
		return err
	}
	lead.CreatedAt = s.deps.Now()
	return s.deps.Store.Repos().Leads.Create(ctx, lead)
}

func (s *LeadService) List(ctx context.Context, actor *models.User) ([]models.Lead, error) {
	if err := s.deps.authorize(actor, authz.ViewCRM); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Leads.List(ctx)
}

func (s *LeadService) Get(ctx context.Context, actor *models.User, id int64) (*models.Lead, error) {
	if err := s.deps.authorize(actor, authz.ViewCRM); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Leads.GetByID(ctx, id)
}

func (s *LeadService) Update(ctx context.Context, actor *models.User, lead *models.Lead) error {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return err
	}
	if err := validateLead(lead); err != nil {
		return err
	}
	return s.deps.locked(ctx, workflow.KindLead, lead.ID, func() error {
		return s.deps.Store.Repos().Leads.Update(ctx, lead)
	})
}

func (s *LeadService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return err
	}
	return s.deps.Store.Repos().Leads.Delete(ctx, id)
}

// Convert creates the lead's deal at the head of the pipeline and marks the
// lead qualified. A lead converts once; a second attempt is a Conflict.
func (s *LeadService) Convert(ctx context.Context, actor *models.User, leadID int64) (*models.Deal, error) {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return nil, err
	}
	var (
		deal models.Deal
		evt  models.Event
	)
	err := s.deps.locked(ctx, workflow.KindLead, leadID, func() error {
		return s.deps.Store.WithinTx(ctx, func(r repositories.Repos) error {
			lead, err := r.Leads.GetByID(ctx, leadID)
			if err != nil {
				return err
			}
			existing, err := r.Deals.GetByLeadID(ctx, leadID)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperr.Conflict("lead %d already converted to deal %d", leadID, existing.ID)
			}

			env := workflow.Env{Now: s.deps.Now(), ActorID: actorID(actor)}
			deal, evt = workflow.PlanLeadConversion(*lead, s.defaults, env)
			if err := r.Deals.Create(ctx, &deal); err != nil {
				return err
			}
			evt.Payload["deal_id"] = deal.ID
			return r.Events.Append(ctx, &evt)
		})
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("lead converted", zap.Int64("lead_id", leadID), zap.Int64("deal_id", deal.ID))
	s.deps.Publisher.Publish(ctx, evt)
	return &deal, nil
}
