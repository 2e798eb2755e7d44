package checklist

import (
	"errors"
	"testing"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

func TestProgress(t *testing.T) {
	cases := []struct {
		name string
		done []bool
		want int
	}{
		{"empty", nil, 0},
		{"none done", []bool{false, false}, 0},
		{"two of three", []bool{true, true, false}, 67},
		{"one of three", []bool{true, false, false}, 33},
		{"half", []bool{true, false}, 50},
		{"all", []bool{true, true, true, true}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Progress(tc.done, func(b bool) bool { return b })
			if got != tc.want {
				t.Fatalf("Progress = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestToggleSubTask(t *testing.T) {
	task := models.Task{SubTasks: []models.SubTask{
		{ID: 1, Completed: true},
		{ID: 2, Completed: true},
		{ID: 3},
	}}
	next, pct, err := ToggleSubTask(task, 3)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if pct != 100 || !next.SubTasks[2].Completed {
		t.Fatalf("expected 100%% after toggle, got %d", pct)
	}
	if task.SubTasks[2].Completed {
		t.Fatalf("input task must not be mutated")
	}

	next, pct, _ = ToggleSubTask(next, 1)
	if pct != 67 || next.SubTasks[0].Completed {
		t.Fatalf("expected 67%% after untoggle, got %d", pct)
	}

	if _, _, err := ToggleSubTask(task, 99); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleChecklistItem(t *testing.T) {
	o := models.OnboardingItem{Checklist: []models.ChecklistItem{{ID: 10}, {ID: 11}}}
	next, pct, err := ToggleChecklistItem(o, 11)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if pct != 50 || !next.Checklist[1].Completed {
		t.Fatalf("expected 50%%, got %d", pct)
	}
}

func TestProjectProgress(t *testing.T) {
	tasks := []models.Task{
		{Status: models.TaskCompleted},
		{Status: models.TaskPending},
		{Status: models.TaskOverdue},
		{Status: models.TaskCompleted},
	}
	if got := ProjectProgress(tasks); got != 50 {
		t.Fatalf("ProjectProgress = %d, want 50", got)
	}
}
