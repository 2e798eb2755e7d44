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

type DealService struct {
	deps    Deps
	cascade *CascadeService
}

func NewDealService(deps Deps, cascade *CascadeService) *DealService {
	return &DealService{deps: deps.withDefaults(), cascade: cascade}
}

type StageChange struct {
	Deal         models.Deal    `json:"deal"`
	UpgradedUser *models.User   `json:"upgraded_user,omitempty"`
	Events       []models.Event `json:"events,omitempty"`
}

func (s *DealService) Create(ctx context.Context, actor *models.User, deal *models.Deal) error {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return err
	}
	if strings.TrimSpace(deal.Title) == "" {
		return apperr.Validation("deal title is required")
	}
	if deal.Stage == "" {
		deal.Stage = models.DealStageLead
	}
	if !workflow.DealTransitions.Known(deal.Stage) {
		return apperr.Validation("unknown deal stage %q", deal.Stage)
	}
	if deal.Value < 0 {
		return apperr.Validation("deal value cannot be negative")
	}
	if deal.AdditionalProducts == nil {
		deal.AdditionalProducts = []string{}
	}
	now := s.deps.Now()
	deal.CreatedAt, deal.UpdatedAt = now, now
	return s.deps.Store.Repos().Deals.Create(ctx, deal)
}

func (s *DealService) List(ctx context.Context, actor *models.User) ([]models.Deal, error) {
	if err := s.deps.authorize(actor, authz.ViewCRM); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Deals.List(ctx)
}

func (s *DealService) Get(ctx context.Context, actor *models.User, id int64) (*models.Deal, error) {
	if err := s.deps.authorize(actor, authz.ViewCRM); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Deals.GetByID(ctx, id)
}

// Update edits the deal's descriptive fields. Value may be overridden here;
// stage changes go through ChangeStage so the Won automation cannot be
// bypassed.
func (s *DealService) Update(ctx context.Context, actor *models.User, in *models.Deal) (*models.Deal, error) {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return nil, err
	}
	if in.Value < 0 {
		return nil, apperr.Validation("deal value cannot be negative")
	}
	var out *models.Deal
	err := s.deps.locked(ctx, workflow.KindDeal, in.ID, func() error {
		repo := s.deps.Store.Repos().Deals
		cur, err := repo.GetByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := checkVersion("deal", in.ID, in.Version, cur.Version); err != nil {
			return err
		}
		if in.Title != "" {
			cur.Title = in.Title
		}
		if in.Company != "" {
			cur.Company = in.Company
		}
		if in.Owner != "" {
			cur.Owner = in.Owner
		}
		cur.Priority = in.Priority
		cur.Value = in.Value
		cur.UpdatedAt = s.deps.Now()
		if err := repo.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *DealService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return err
	}
	return s.deps.Store.Repos().Deals.Delete(ctx, id)
}

// ChangeStage forces the deal to any stage. Entering Won runs the membership
// automation once per deal.
func (s *DealService) ChangeStage(ctx context.Context, actor *models.User, id int64, to models.DealStage, version int) (*StageChange, error) {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return nil, err
	}
	var out *StageChange
	err := s.deps.locked(ctx, workflow.KindDeal, id, func() error {
		repo := s.deps.Store.Repos().Deals
		cur, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion("deal", id, version, cur.Version); err != nil {
			return err
		}
		next, enteredWon, err := workflow.TransitionDeal(*cur, to)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.deps.Now()
		if !enteredWon {
			var abandoned *models.CascadeRun
			err = s.deps.Store.WithinTx(ctx, func(r repositories.Repos) error {
				if err := r.Deals.Update(ctx, &next); err != nil {
					return err
				}
				// leaving for any other stage cancels a pending Won automation
				if next.Stage == models.DealStageWon {
					return nil
				}
				run, err := abandonRun(ctx, r.CascadeRuns, workflow.KindDeal, id, TransitionWon, s.deps.Now())
				abandoned = run
				return err
			})
			if err != nil {
				return err
			}
			if abandoned != nil {
				s.deps.Logger.Info("pending won cascade abandoned",
					zap.Int64("deal_id", id), zap.String("run_id", abandoned.ID), zap.String("stage", string(next.Stage)))
			}
			out = &StageChange{Deal: next}
			return nil
		}
		res, err := s.cascade.DealWon(ctx, actorID(actor), next)
		if err != nil {
			return err
		}
		out = &StageChange{Deal: res.Deal, UpgradedUser: res.UpgradedUser, Events: res.Events}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("deal stage changed",
		zap.Int64("deal_id", id), zap.String("stage", string(to)), zap.Int64("actor_id", actorID(actor)))
	return out, nil
}

// SetProducts replaces the deal's product list, keeping the value in step
// with catalogue prices.
func (s *DealService) SetProducts(ctx context.Context, actor *models.User, id int64, products []string, version int) (*models.Deal, error) {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return nil, err
	}
	var out *models.Deal
	err := s.deps.locked(ctx, workflow.KindDeal, id, func() error {
		repos := s.deps.Store.Repos()
		cur, err := repos.Deals.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion("deal", id, version, cur.Version); err != nil {
			return err
		}
		catalogue, err := productCatalogue(ctx, repos.Products)
		if err != nil {
			return err
		}
		next, err := workflow.SetProducts(*cur, products, catalogue)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.deps.Now()
		if err := repos.Deals.Update(ctx, &next); err != nil {
			return err
		}
		out = &next
		return nil
	})
	return out, err
}

type productLister interface {
	List(ctx context.Context) ([]models.Product, error)
}

func productCatalogue(ctx context.Context, repo productLister) (map[string]models.Product, error) {
	list, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Product, len(list))
	for _, p := range list {
		out[p.Title] = p
	}
	return out, nil
}
