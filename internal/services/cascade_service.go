package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
	"potencialize/internal/repositories"
	"potencialize/internal/workflow"
)

const (
	TransitionWon       = "won"
	TransitionCompleted = "completed"
)

// staleRunAge is how long a run may stay "running" before the resume job
// treats it as abandoned.
const staleRunAge = 10 * time.Minute

var (
	errCodeTaken  = errors.New("project code taken")
	errRunSettled = errors.New("cascade run already settled")
)

type CascadeConfig struct {
	Membership   workflow.MembershipRule
	Project      workflow.ProjectDefaults
	CodeAttempts int
	// Intn picks the numeric part of project codes; defaults to math/rand.
	Intn func(n int) int
}

// CascadeService executes the workflow planners at most once per
// (entity, transition), journalling progress so a failed run can resume.
// Cascades ignore request cancellation once started.
type CascadeService struct {
	deps Deps
	cfg  CascadeConfig
}

func NewCascadeService(deps Deps, cfg CascadeConfig) *CascadeService {
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 3
	}
	if cfg.Intn == nil {
		cfg.Intn = rand.Intn
	}
	return &CascadeService{deps: deps.withDefaults(), cfg: cfg}
}

type OnboardingResult struct {
	Item    models.OnboardingItem `json:"item"`
	Project models.Project        `json:"project"`
	Tasks   []models.Task         `json:"tasks"`
	// Replayed is set when the cascade had already run.
	Replayed bool `json:"replayed"`
}

type DealWonResult struct {
	Deal         models.Deal    `json:"deal"`
	UpgradedUser *models.User   `json:"upgraded_user,omitempty"`
	Events       []models.Event `json:"events"`
	Replayed     bool           `json:"replayed"`
}

// stepError names the cascade step that failed.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func step(name string, err error) error {
	if err == nil {
		return nil
	}
	return &stepError{step: name, err: err}
}

// CompleteOnboarding moves the item to Concluído and synthesizes its project
// and tasks. Finishing an already completed item returns the existing project.
func (s *CascadeService) CompleteOnboarding(ctx context.Context, actor *models.User, id int64) (*OnboardingResult, error) {
	if err := s.deps.authorize(actor, authz.EditOnboarding); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	var out *OnboardingResult
	err := s.deps.locked(ctx, workflow.KindOnboarding, id, func() error {
		var err error
		out, err = s.completeOnboarding(ctx, actorID(actor), id)
		return err
	})
	return out, err
}

func (s *CascadeService) completeOnboarding(ctx context.Context, actor int64, id int64) (*OnboardingResult, error) {
	repos := s.deps.Store.Repos()
	item, err := repos.Onboarding.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Stage == models.OnboardingDone {
		s.settleRun(ctx, workflow.KindOnboarding, id, TransitionCompleted)
		return s.existingOnboarding(ctx, *item)
	}

	env := workflow.Env{Now: s.deps.Now(), Intn: s.cfg.Intn, ActorID: actor}
	plan, err := workflow.PlanOnboardingCompletion(*item, s.cfg.Project, env)
	if err != nil {
		return nil, err
	}

	run, err := s.startRun(ctx, workflow.KindOnboarding, id, TransitionCompleted, actor)
	if err != nil {
		return nil, err
	}
	if run.Status == models.CascadeCompleted {
		return s.existingOnboarding(ctx, *item)
	}

	var result *OnboardingResult
	for attempt := 1; ; attempt++ {
		result, err = s.applyOnboarding(ctx, *run, plan)
		if err == nil {
			break
		}
		if errors.Is(err, errCodeTaken) && attempt < s.cfg.CodeAttempts {
			s.deps.Logger.Info("project code taken, regenerating",
				zap.String("code", plan.Project.Code), zap.Int("attempt", attempt))
			plan.Project.Code = workflow.ProjectCode(env.Now, env.Intn)
			continue
		}
		return nil, s.fail(ctx, run.ID, err)
	}

	s.deps.Logger.Info("onboarding cascade completed",
		zap.Int64("onboarding_id", id),
		zap.Int64("project_id", result.Project.ID),
		zap.Int("tasks", len(result.Tasks)),
		zap.String("run_id", run.ID))
	s.deps.Publisher.Publish(ctx, plan.Events...)
	return result, nil
}

// applyOnboarding runs inside one transaction. Entities already recorded in
// the journal are reused, so a resumed run only creates what is missing.
func (s *CascadeService) applyOnboarding(ctx context.Context, run models.CascadeRun, plan workflow.OnboardingPlan) (*OnboardingResult, error) {
	result := &OnboardingResult{}
	err := s.deps.Store.WithinTx(ctx, func(r repositories.Repos) error {
		progress := run
		progress.TaskIDs = append([]int64(nil), run.TaskIDs...)

		project, err := s.ensureProject(ctx, r, &progress, plan)
		if err != nil {
			return err
		}
		result.Project = project

		for i, t := range plan.Tasks {
			if i < len(progress.TaskIDs) && progress.TaskIDs[i] != 0 {
				existing, err := r.Tasks.GetByID(ctx, progress.TaskIDs[i])
				if err != nil {
					return step(fmt.Sprintf("task[%d]", i), err)
				}
				result.Tasks = append(result.Tasks, *existing)
				continue
			}
			t.ProjectID = &project.ID
			if err := r.Tasks.Create(ctx, &t); err != nil {
				return step(fmt.Sprintf("task[%d]", i), err)
			}
			for len(progress.TaskIDs) <= i {
				progress.TaskIDs = append(progress.TaskIDs, 0)
			}
			progress.TaskIDs[i] = t.ID
			if err := r.CascadeRuns.Update(ctx, &progress); err != nil {
				return step("journal", err)
			}
			result.Tasks = append(result.Tasks, t)
		}

		for i := range plan.Events {
			if err := r.Events.Append(ctx, &plan.Events[i]); err != nil {
				return step("events", err)
			}
		}

		item := plan.Item
		item.ProjectID = &project.ID
		if err := r.Onboarding.Update(ctx, &item); err != nil {
			return step("onboarding", err)
		}
		result.Item = item

		finished := s.deps.Now()
		progress.Status = models.CascadeCompleted
		progress.Error = ""
		progress.FinishedAt = &finished
		return step("journal", r.CascadeRuns.Update(ctx, &progress))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CascadeService) ensureProject(ctx context.Context, r repositories.Repos, progress *models.CascadeRun, plan workflow.OnboardingPlan) (models.Project, error) {
	if progress.ProjectID != nil {
		p, err := r.Projects.GetByID(ctx, *progress.ProjectID)
		if err != nil {
			return models.Project{}, step("project", err)
		}
		return *p, nil
	}
	existing, err := r.Projects.GetBySource(ctx, workflow.KindOnboarding, plan.Item.ID)
	if err != nil {
		return models.Project{}, step("project", err)
	}
	project := plan.Project
	if existing != nil {
		project = *existing
	} else if err := r.Projects.Create(ctx, &project); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return models.Project{}, step("project", fmt.Errorf("%w: %w", errCodeTaken, err))
		}
		return models.Project{}, step("project", err)
	}
	progress.ProjectID = &project.ID
	if err := r.CascadeRuns.Update(ctx, progress); err != nil {
		return models.Project{}, step("journal", err)
	}
	return project, nil
}

func (s *CascadeService) existingOnboarding(ctx context.Context, item models.OnboardingItem) (*OnboardingResult, error) {
	repos := s.deps.Store.Repos()
	project, err := repos.Projects.GetBySource(ctx, workflow.KindOnboarding, item.ID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperr.Conflict("onboarding %d is completed but has no project", item.ID)
	}
	tasks, err := repos.Tasks.List(ctx, models.TaskFilter{ProjectID: &project.ID})
	if err != nil {
		return nil, err
	}
	return &OnboardingResult{Item: item, Project: *project, Tasks: tasks, Replayed: true}, nil
}

// DealWon runs the membership automation for a deal entering Won and stores
// the deal in the same transaction. The caller holds the deal lock and has
// already moved deal.Stage to Won.
func (s *CascadeService) DealWon(ctx context.Context, actor int64, deal models.Deal) (*DealWonResult, error) {
	ctx = context.WithoutCancel(ctx)
	run, err := s.startRun(ctx, workflow.KindDeal, deal.ID, TransitionWon, actor)
	if err != nil {
		return nil, err
	}
	if run.Status == models.CascadeCompleted {
		if err := s.deps.Store.Repos().Deals.Update(ctx, &deal); err != nil {
			return nil, err
		}
		return &DealWonResult{Deal: deal, Replayed: true}, nil
	}

	env := workflow.Env{Now: s.deps.Now(), Intn: s.cfg.Intn, ActorID: actor}
	var plan workflow.DealWonPlan
	err = s.deps.Store.WithinTx(ctx, func(r repositories.Repos) error {
		candidates, err := r.Users.ListByCompany(ctx, deal.Company)
		if err != nil {
			return step("users", err)
		}
		plan = workflow.PlanDealWon(deal, candidates, s.cfg.Membership, env)
		if plan.UserUpgrade != nil {
			if err := r.Users.Update(ctx, plan.UserUpgrade); err != nil {
				return step("user_upgrade", err)
			}
		}
		for i := range plan.Events {
			if err := r.Events.Append(ctx, &plan.Events[i]); err != nil {
				return step("events", err)
			}
		}
		if err := r.Deals.Update(ctx, &plan.Deal); err != nil {
			return step("deal", err)
		}
		finished := s.deps.Now()
		done := *run
		done.Status = models.CascadeCompleted
		done.Error = ""
		done.FinishedAt = &finished
		return step("journal", r.CascadeRuns.Update(ctx, &done))
	})
	if err != nil {
		return nil, s.fail(ctx, run.ID, err)
	}

	for _, e := range plan.Events {
		if e.Type == models.EventMembershipUserMissing {
			s.deps.Logger.Warn("membership product sold but no user matches company",
				zap.Int64("deal_id", deal.ID), zap.String("company", deal.Company))
		}
	}
	s.deps.Publisher.Publish(ctx, plan.Events...)
	return &DealWonResult{Deal: plan.Deal, UpgradedUser: plan.UserUpgrade, Events: plan.Events}, nil
}

// startRun returns the journal entry for the key, creating it when absent and
// flipping a failed one back to running.
func (s *CascadeService) startRun(ctx context.Context, kind string, id int64, transition string, actor int64) (*models.CascadeRun, error) {
	runs := s.deps.Store.Repos().CascadeRuns
	run, err := runs.Find(ctx, kind, id, transition)
	if err != nil {
		return nil, err
	}
	if run == nil {
		run = &models.CascadeRun{
			ID:         uuid.NewString(),
			EntityKind: kind,
			EntityID:   id,
			Transition: transition,
			Status:     models.CascadeRunning,
			ActorID:    actor,
			TaskIDs:    []int64{},
			StartedAt:  s.deps.Now(),
		}
		if err := runs.Create(ctx, run); err != nil {
			return nil, err
		}
		return run, nil
	}
	if run.Status == models.CascadeCompleted {
		return run, nil
	}
	run.Status = models.CascadeRunning
	run.Error = ""
	run.FinishedAt = nil
	if err := runs.Update(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// settleRun closes a run whose effects are all visible but whose journal
// update was lost, so the resume job stops picking it up.
func (s *CascadeService) settleRun(ctx context.Context, kind string, id int64, transition string) {
	runs := s.deps.Store.Repos().CascadeRuns
	run, err := runs.Find(ctx, kind, id, transition)
	if err != nil || run == nil || run.Status == models.CascadeCompleted {
		return
	}
	finished := s.deps.Now()
	run.Status = models.CascadeCompleted
	run.Error = ""
	run.FinishedAt = &finished
	if err := runs.Update(ctx, run); err != nil {
		s.deps.Logger.Warn("cannot settle cascade run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// abandonRun closes an unfinished run for the key so the resume job cannot
// drive the entity back into the transition. Completed runs are left alone.
func abandonRun(ctx context.Context, runs repositories.CascadeRunRepository, kind string, id int64, transition string, now time.Time) (*models.CascadeRun, error) {
	run, err := runs.Find(ctx, kind, id, transition)
	if err != nil || run == nil {
		return nil, err
	}
	if run.Status != models.CascadeFailed && run.Status != models.CascadeRunning {
		return nil, nil
	}
	run.Status = models.CascadeAbandoned
	run.FinishedAt = &now
	if err := runs.Update(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// fail marks the run failed outside the aborted transaction and returns the
// error handlers surface as retryable.
func (s *CascadeService) fail(ctx context.Context, runID string, cause error) error {
	stepName := "unknown"
	var se *stepError
	if errors.As(cause, &se) {
		stepName = se.step
	}

	runs := s.deps.Store.Repos().CascadeRuns
	run, err := runs.Get(ctx, runID)
	if err == nil {
		finished := s.deps.Now()
		run.Status = models.CascadeFailed
		run.Error = cause.Error()
		run.FinishedAt = &finished
		err = runs.Update(ctx, run)
	}
	if err != nil {
		s.deps.Logger.Error("cannot mark cascade run failed", zap.String("run_id", runID), zap.Error(err))
	}

	s.deps.Logger.Error("cascade failed",
		zap.String("run_id", runID), zap.String("step", stepName), zap.Error(cause))
	if run != nil {
		s.deps.Publisher.Publish(ctx, models.Event{
			ID:         uuid.NewString(),
			Type:       models.EventCascadeFailed,
			EntityKind: run.EntityKind,
			EntityID:   run.EntityID,
			ActorID:    run.ActorID,
			Payload:    map[string]any{"run_id": runID, "step": stepName, "error": cause.Error()},
			CreatedAt:  s.deps.Now(),
		})
	}
	return &apperr.CascadeError{RunID: runID, Step: stepName, Err: cause}
}

// Resume re-executes a failed or abandoned run. Completed runs are returned
// as they are.
func (s *CascadeService) Resume(ctx context.Context, actor *models.User, runID string) (*models.CascadeRun, error) {
	run, err := s.deps.Store.Repos().CascadeRuns.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	switch run.EntityKind {
	case workflow.KindOnboarding:
		if err := s.deps.authorize(actor, authz.EditOnboarding); err != nil {
			return nil, err
		}
	case workflow.KindDeal:
		if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validation("cascade kind %q cannot be resumed", run.EntityKind)
	}
	switch run.Status {
	case models.CascadeCompleted:
		return run, nil
	case models.CascadeAbandoned:
		return nil, apperr.Conflict("cascade run %s was abandoned: %s %d left the %s transition",
			run.ID, run.EntityKind, run.EntityID, run.Transition)
	}
	if err := s.resume(ctx, *run); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().CascadeRuns.Get(ctx, runID)
}

func (s *CascadeService) resume(ctx context.Context, run models.CascadeRun) error {
	ctx = context.WithoutCancel(ctx)
	switch run.EntityKind {
	case workflow.KindOnboarding:
		return s.deps.locked(ctx, workflow.KindOnboarding, run.EntityID, func() error {
			_, err := s.completeOnboarding(ctx, run.ActorID, run.EntityID)
			return err
		})
	case workflow.KindDeal:
		return s.deps.locked(ctx, workflow.KindDeal, run.EntityID, func() error {
			// re-read under the lock: a stage change may have abandoned the run
			cur, err := s.deps.Store.Repos().CascadeRuns.Get(ctx, run.ID)
			if err != nil {
				return err
			}
			if cur.Status == models.CascadeAbandoned || cur.Status == models.CascadeCompleted {
				return errRunSettled
			}
			deal, err := s.deps.Store.Repos().Deals.GetByID(ctx, run.EntityID)
			if err != nil {
				return err
			}
			won, _, err := workflow.TransitionDeal(*deal, models.DealStageWon)
			if err != nil {
				return err
			}
			_, err = s.DealWon(ctx, run.ActorID, won)
			return err
		})
	}
	return apperr.Validation("cascade kind %q cannot be resumed", run.EntityKind)
}

// ResumePending retries failed runs and runs stuck in running for longer
// than staleRunAge. It is driven by the scheduler and returns how many runs
// completed.
func (s *CascadeService) ResumePending(ctx context.Context) (int, error) {
	runs := s.deps.Store.Repos().CascadeRuns
	failed, err := runs.ListByStatus(ctx, models.CascadeFailed)
	if err != nil {
		return 0, err
	}
	running, err := runs.ListByStatus(ctx, models.CascadeRunning)
	if err != nil {
		return 0, err
	}
	cutoff := s.deps.Now().Add(-staleRunAge)
	for _, r := range running {
		if r.StartedAt.Before(cutoff) {
			failed = append(failed, r)
		}
	}

	resumed := 0
	for _, r := range failed {
		if err := s.resume(ctx, r); err != nil {
			if errors.Is(err, errRunSettled) {
				continue
			}
			s.deps.Logger.Warn("cascade resume failed", zap.String("run_id", r.ID), zap.Error(err))
			continue
		}
		resumed++
	}
	return resumed, nil
}

// ListRuns exposes the journal for the ops CLI and the API.
func (s *CascadeService) ListRuns(ctx context.Context, status models.CascadeStatus) ([]models.CascadeRun, error) {
	return s.deps.Store.Repos().CascadeRuns.ListByStatus(ctx, status)
}
