package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"potencialize/internal/ai"
	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
	"potencialize/internal/pdf"
	"potencialize/internal/workflow"
)

type ProposalService struct {
	deps      Deps
	assistant *ai.Assistant
	pdf       pdf.Generator
}

func NewProposalService(deps Deps, assistant *ai.Assistant, gen pdf.Generator) *ProposalService {
	return &ProposalService{deps: deps.withDefaults(), assistant: assistant, pdf: gen}
}

type Proposal struct {
	Deal     models.Deal `json:"deal"`
	Text     string      `json:"text"`
	Document string      `json:"document"`
}

// Generate drafts the proposal text, renders it to PDF and moves the deal to
// Proposal when it is still earlier in the pipeline.
func (s *ProposalService) Generate(ctx context.Context, actor *models.User, dealID int64, scope string) (*Proposal, error) {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return nil, err
	}
	deal, err := s.deps.Store.Repos().Deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	products := deal.Products()
	if len(products) == 0 {
		return nil, apperr.Validation("deal %d has no products", dealID)
	}
	if strings.TrimSpace(scope) == "" {
		scope = deal.Title
	}

	text, err := s.assistant.Proposal(ctx, ai.ProposalInput{
		Client:   deal.Company,
		Products: products,
		Value:    deal.Value,
		Scope:    scope,
	})
	if err != nil {
		return nil, err
	}
	ref, err := s.pdf.GenerateProposal(pdf.ProposalData{
		DealID:    deal.ID,
		Client:    deal.Company,
		Owner:     deal.Owner,
		Products:  products,
		Value:     deal.Value,
		Body:      text,
		CreatedAt: s.deps.Now(),
	})
	if err != nil {
		return nil, err
	}

	out := &Proposal{Text: text, Document: ref}
	err = s.deps.locked(ctx, workflow.KindDeal, dealID, func() error {
		repo := s.deps.Store.Repos().Deals
		cur, err := repo.GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		idx := workflow.StageIndex(cur.Stage)
		if idx < 0 || idx >= workflow.StageIndex(models.DealStageProposal) {
			out.Deal = *cur
			return nil
		}
		next, _, err := workflow.TransitionDeal(*cur, models.DealStageProposal)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.deps.Now()
		if err := repo.Update(ctx, &next); err != nil {
			return err
		}
		out.Deal = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("proposal generated", zap.Int64("deal_id", dealID), zap.String("document", ref))
	return out, nil
}

// ActionPlan drafts an action plan for a project from its description.
func (s *ProposalService) ActionPlan(ctx context.Context, actor *models.User, projectID int64) (string, error) {
	if err := s.deps.authorize(actor, authz.EditProjects); err != nil {
		return "", err
	}
	p, err := s.deps.Store.Repos().Projects.GetByID(ctx, projectID)
	if err != nil {
		return "", err
	}
	brief := strings.TrimSpace(p.Title + ". " + p.Description)
	return s.assistant.ActionPlan(ctx, brief)
}
