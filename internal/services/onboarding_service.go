package services

import (
	"context"
	"strings"
	"time"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/checklist"
	"potencialize/internal/models"
	"potencialize/internal/workflow"
)

type OnboardingService struct {
	deps    Deps
	cascade *CascadeService
}

func NewOnboardingService(deps Deps, cascade *CascadeService) *OnboardingService {
	return &OnboardingService{deps: deps.withDefaults(), cascade: cascade}
}

// OnboardingView is an item with its derived checklist progress.
type OnboardingView struct {
	models.OnboardingItem
	Progress int `json:"progress"`
}

func onboardingView(o models.OnboardingItem) OnboardingView {
	return OnboardingView{OnboardingItem: o, Progress: checklist.OnboardingProgress(o)}
}

func (s *OnboardingService) Create(ctx context.Context, actor *models.User, o *models.OnboardingItem) (*OnboardingView, error) {
	if err := s.deps.authorize(actor, authz.EditOnboarding); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.ClientName) == "" || strings.TrimSpace(o.Product) == "" {
		return nil, apperr.Validation("client name and product are required")
	}
	if o.Stage == "" {
		o.Stage = models.OnboardingPendingKickoff
	}
	if o.Stage == models.OnboardingDone {
		return nil, apperr.Validation("an onboarding cannot start completed")
	}
	if !workflow.OnboardingTransitions.Known(o.Stage) {
		return nil, apperr.Validation("unknown onboarding stage %q", o.Stage)
	}
	if o.StartDate.IsZero() {
		o.StartDate = s.deps.Now()
	}
	for i := range o.Checklist {
		o.Checklist[i].Position = i
	}
	if err := s.deps.Store.Repos().Onboarding.Create(ctx, o); err != nil {
		return nil, err
	}
	v := onboardingView(*o)
	return &v, nil
}

func (s *OnboardingService) List(ctx context.Context, actor *models.User) ([]OnboardingView, error) {
	if err := s.deps.authorize(actor, authz.ViewOnboarding); err != nil {
		return nil, err
	}
	items, err := s.deps.Store.Repos().Onboarding.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]OnboardingView, 0, len(items))
	for _, o := range items {
		out = append(out, onboardingView(o))
	}
	return out, nil
}

func (s *OnboardingService) Get(ctx context.Context, actor *models.User, id int64) (*OnboardingView, error) {
	if err := s.deps.authorize(actor, authz.ViewOnboarding); err != nil {
		return nil, err
	}
	o, err := s.deps.Store.Repos().Onboarding.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := onboardingView(*o)
	return &v, nil
}

// mutate runs a read-modify-write on one item under its lock.
func (s *OnboardingService) mutate(ctx context.Context, actor *models.User, id int64, fn func(*models.OnboardingItem) error) (*OnboardingView, error) {
	if err := s.deps.authorize(actor, authz.EditOnboarding); err != nil {
		return nil, err
	}
	var out OnboardingView
	err := s.deps.locked(ctx, workflow.KindOnboarding, id, func() error {
		repo := s.deps.Store.Repos().Onboarding
		o, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		if err := repo.Update(ctx, o); err != nil {
			return err
		}
		out = onboardingView(*o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleChecklistItem flips one item. Completed onboardings are frozen.
func (s *OnboardingService) ToggleChecklistItem(ctx context.Context, actor *models.User, id, itemID int64) (*OnboardingView, error) {
	return s.mutate(ctx, actor, id, func(o *models.OnboardingItem) error {
		if o.Stage == models.OnboardingDone {
			return apperr.Conflict("onboarding %d is completed", id)
		}
		next, _, err := checklist.ToggleChecklistItem(*o, itemID)
		if err != nil {
			return err
		}
		*o = next
		return nil
	})
}

type ChecklistPatch struct {
	Title      *string    `json:"title"`
	DueDate    *time.Time `json:"due_date"`
	AssignedTo *string    `json:"assigned_to"`
}

func (s *OnboardingService) UpdateChecklistItem(ctx context.Context, actor *models.User, id, itemID int64, patch ChecklistPatch) (*OnboardingView, error) {
	return s.mutate(ctx, actor, id, func(o *models.OnboardingItem) error {
		if o.Stage == models.OnboardingDone {
			return apperr.Conflict("onboarding %d is completed", id)
		}
		items := append([]models.ChecklistItem(nil), o.Checklist...)
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			if patch.Title != nil {
				if strings.TrimSpace(*patch.Title) == "" {
					return apperr.Validation("checklist title cannot be empty")
				}
				items[i].Title = *patch.Title
			}
			if patch.DueDate != nil {
				items[i].DueDate = patch.DueDate
			}
			if patch.AssignedTo != nil {
				items[i].AssignedTo = *patch.AssignedTo
			}
			o.Checklist = items
			return nil
		}
		return apperr.NotFound("checklist item", itemID)
	})
}

func (s *OnboardingService) AddChecklistItem(ctx context.Context, actor *models.User, id int64, item models.ChecklistItem) (*OnboardingView, error) {
	return s.mutate(ctx, actor, id, func(o *models.OnboardingItem) error {
		if o.Stage == models.OnboardingDone {
			return apperr.Conflict("onboarding %d is completed", id)
		}
		if strings.TrimSpace(item.Title) == "" {
			return apperr.Validation("checklist title cannot be empty")
		}
		item.ID = 0
		item.OnboardingID = id
		item.Position = len(o.Checklist)
		o.Checklist = append(append([]models.ChecklistItem(nil), o.Checklist...), item)
		return nil
	})
}

func (s *OnboardingService) AddNote(ctx context.Context, actor *models.User, id int64, text string) (*models.OnboardingNote, error) {
	if err := s.deps.authorize(actor, authz.EditOnboarding); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("note text is required")
	}
	repo := s.deps.Store.Repos().Onboarding
	if _, err := repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	n := &models.OnboardingNote{OnboardingID: id, Text: text, User: actorName(actor), CreatedAt: s.deps.Now()}
	if err := repo.AddNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// ChangeStage moves forward only. Concluído runs the completion cascade.
func (s *OnboardingService) ChangeStage(ctx context.Context, actor *models.User, id int64, to models.OnboardingStage) (*OnboardingResult, error) {
	if to == models.OnboardingDone {
		return s.cascade.CompleteOnboarding(ctx, actor, id)
	}
	v, err := s.mutate(ctx, actor, id, func(o *models.OnboardingItem) error {
		next, err := workflow.TransitionOnboarding(*o, to)
		if err != nil {
			return err
		}
		*o = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &OnboardingResult{Item: v.OnboardingItem}, nil
}

// Finish is the "finish onboarding" action.
func (s *OnboardingService) Finish(ctx context.Context, actor *models.User, id int64) (*OnboardingResult, error) {
	return s.cascade.CompleteOnboarding(ctx, actor, id)
}
