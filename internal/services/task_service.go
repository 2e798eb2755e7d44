package services

import (
	"context"
	"strings"
	"time"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/checklist"
	"potencialize/internal/models"
	"potencialize/internal/sla"
	"potencialize/internal/workflow"
)

const kindTask = "task"

// TaskView carries the read-time status. Two reads at different instants may
// disagree on overdue; the stored status is never rewritten by a read.
type TaskView struct {
	models.Task
	EffectiveStatus models.TaskStatus `json:"effective_status"`
	Deadline        sla.DeadlineState `json:"deadline"`
	Progress        int               `json:"progress"`
}

func taskView(t models.Task, now time.Time) TaskView {
	return TaskView{
		Task:            t,
		EffectiveStatus: sla.EffectiveTaskStatus(t, now),
		Deadline:        sla.TaskDeadline(t, now),
		Progress:        checklist.TaskProgress(t),
	}
}

type TaskService struct {
	deps Deps
}

func NewTaskService(deps Deps) *TaskService {
	return &TaskService{deps: deps.withDefaults()}
}

func (s *TaskService) Create(ctx context.Context, actor *models.User, t *models.Task) (*TaskView, error) {
	if err := s.deps.authorize(actor, authz.EditTasks); err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Title) == "" {
		return nil, apperr.Validation("task title is required")
	}
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	if !workflow.TaskTransitions.Known(t.Status) {
		return nil, apperr.Validation("unknown task status %q", t.Status)
	}
	if t.AssigneeType == "" {
		t.AssigneeType = models.AssigneeConsultant
	}
	if t.AssigneeType != models.AssigneeConsultant && t.AssigneeType != models.AssigneeClient {
		return nil, apperr.Validation("unknown assignee type %q", t.AssigneeType)
	}
	if t.ProjectID != nil {
		if err := s.deps.requireProject(ctx, actor, *t.ProjectID); err != nil {
			return nil, err
		}
	}
	for i := range t.SubTasks {
		t.SubTasks[i].Position = i
	}
	if t.SubTasks == nil {
		t.SubTasks = []models.SubTask{}
	}
	now := s.deps.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.deps.Store.Repos().Tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	v := taskView(*t, now)
	return &v, nil
}

func (s *TaskService) Get(ctx context.Context, actor *models.User, id int64) (*TaskView, error) {
	if err := s.deps.authorize(actor, authz.ViewProjects); err != nil {
		return nil, err
	}
	t, err := s.deps.Store.Repos().Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.ProjectID != nil {
		if err := s.deps.requireProject(ctx, actor, *t.ProjectID); err != nil {
			return nil, apperr.NotFound("task", id)
		}
	} else if s.deps.Registry.IsClient(actor) {
		return nil, apperr.NotFound("task", id)
	}
	v := taskView(*t, s.deps.Now())
	return &v, nil
}

// List filters on the derived status when f.Status is overdue so the result
// matches what the views show.
func (s *TaskService) List(ctx context.Context, actor *models.User, f models.TaskFilter) ([]TaskView, error) {
	if err := s.deps.authorize(actor, authz.ViewProjects); err != nil {
		return nil, err
	}
	want := f.Status
	f.Status = nil
	tasks, err := s.deps.Store.Repos().Tasks.List(ctx, f)
	if err != nil {
		return nil, err
	}
	client := s.deps.Registry.IsClient(actor)
	visible := map[int64]bool{}
	now := s.deps.Now()
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		if client {
			if t.ProjectID == nil {
				continue
			}
			ok, seen := visible[*t.ProjectID]
			if !seen {
				ok = s.deps.requireProject(ctx, actor, *t.ProjectID) == nil
				visible[*t.ProjectID] = ok
			}
			if !ok {
				continue
			}
		}
		v := taskView(t, now)
		if want != nil && v.EffectiveStatus != *want {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *TaskService) mutate(ctx context.Context, actor *models.User, id int64, fn func(*models.Task) error) (*TaskView, error) {
	if err := s.deps.authorize(actor, authz.EditTasks); err != nil {
		return nil, err
	}
	var out TaskView
	err := s.deps.locked(ctx, kindTask, id, func() error {
		repo := s.deps.Store.Repos().Tasks
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		now := s.deps.Now()
		t.UpdatedAt = now
		if err := repo.Update(ctx, t); err != nil {
			return err
		}
		out = taskView(*t, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type TaskPatch struct {
	Version      int                  `json:"version"`
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	DueDate      *time.Time           `json:"due_date"`
	AssignedTo   *string              `json:"assigned_to"`
	AssigneeType *models.AssigneeType `json:"assignee_type"`
}

func (s *TaskService) Update(ctx context.Context, actor *models.User, id int64, p TaskPatch) (*TaskView, error) {
	return s.mutate(ctx, actor, id, func(t *models.Task) error {
		if err := checkVersion("task", id, p.Version, t.Version); err != nil {
			return err
		}
		if p.Title != nil {
			if strings.TrimSpace(*p.Title) == "" {
				return apperr.Validation("task title is required")
			}
			t.Title = *p.Title
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.DueDate != nil {
			t.DueDate = p.DueDate
		}
		if p.AssignedTo != nil {
			t.AssignedTo = *p.AssignedTo
		}
		if p.AssigneeType != nil {
			if *p.AssigneeType != models.AssigneeConsultant && *p.AssigneeType != models.AssigneeClient {
				return apperr.Validation("unknown assignee type %q", *p.AssigneeType)
			}
			t.AssigneeType = *p.AssigneeType
		}
		return nil
	})
}

func (s *TaskService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := s.deps.authorize(actor, authz.EditTasks); err != nil {
		return err
	}
	return s.deps.Store.Repos().Tasks.Delete(ctx, id)
}

// ChangeStatus applies the task table. Completed tasks cannot be reopened.
func (s *TaskService) ChangeStatus(ctx context.Context, actor *models.User, id int64, to models.TaskStatus, version int) (*TaskView, error) {
	return s.mutate(ctx, actor, id, func(t *models.Task) error {
		if err := checkVersion("task", id, version, t.Version); err != nil {
			return err
		}
		next, err := workflow.TransitionTask(*t, to)
		if err != nil {
			return err
		}
		*t = next
		return nil
	})
}

func (s *TaskService) AddSubTask(ctx context.Context, actor *models.User, id int64, title string) (*TaskView, error) {
	return s.mutate(ctx, actor, id, func(t *models.Task) error {
		if strings.TrimSpace(title) == "" {
			return apperr.Validation("sub-task title is required")
		}
		t.SubTasks = append(append([]models.SubTask(nil), t.SubTasks...), models.SubTask{
			TaskID:   id,
			Title:    title,
			Position: len(t.SubTasks),
		})
		return nil
	})
}

func (s *TaskService) ToggleSubTask(ctx context.Context, actor *models.User, id, subTaskID int64) (*TaskView, error) {
	return s.mutate(ctx, actor, id, func(t *models.Task) error {
		next, _, err := checklist.ToggleSubTask(*t, subTaskID)
		if err != nil {
			return err
		}
		*t = next
		return nil
	})
}

func (s *TaskService) DeleteSubTask(ctx context.Context, actor *models.User, id, subTaskID int64) (*TaskView, error) {
	return s.mutate(ctx, actor, id, func(t *models.Task) error {
		kept := make([]models.SubTask, 0, len(t.SubTasks))
		for _, st := range t.SubTasks {
			if st.ID != subTaskID {
				st.Position = len(kept)
				kept = append(kept, st)
			}
		}
		if len(kept) == len(t.SubTasks) {
			return apperr.NotFound("sub-task", subTaskID)
		}
		t.SubTasks = kept
		return nil
	})
}
