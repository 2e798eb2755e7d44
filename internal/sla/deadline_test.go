package sla

import (
	"testing"
	"time"

	"potencialize/internal/models"
)

func due(d time.Time) *time.Time { return &d }

func TestTaskDeadline(t *testing.T) {
	cases := []struct {
		name string
		task models.Task
		want DeadlineState
	}{
		{"no due date", models.Task{Status: models.TaskPending}, DeadlineNormal},
		{"completed late", models.Task{Status: models.TaskCompleted, DueDate: due(now.AddDate(0, 0, -5))}, DeadlineCompleted},
		{"due yesterday", models.Task{Status: models.TaskPending, DueDate: due(now.AddDate(0, 0, -1))}, DeadlineOverdue},
		{"due today is not overdue", models.Task{Status: models.TaskPending, DueDate: due(now)}, DeadlineApproaching},
		{"due tomorrow", models.Task{Status: models.TaskInProgress, DueDate: due(now.AddDate(0, 0, 1))}, DeadlineApproaching},
		{"due next week", models.Task{Status: models.TaskPending, DueDate: due(now.AddDate(0, 0, 7))}, DeadlineNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TaskDeadline(tc.task, now); got != tc.want {
				t.Fatalf("TaskDeadline = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEffectiveTaskStatus(t *testing.T) {
	late := models.Task{Status: models.TaskPending, DueDate: due(now.AddDate(0, 0, -2))}
	if got := EffectiveTaskStatus(late, now); got != models.TaskOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	moved := models.Task{Status: models.TaskOverdue, DueDate: due(now.AddDate(0, 0, 3))}
	if got := EffectiveTaskStatus(moved, now); got != models.TaskPending {
		t.Fatalf("expected pending once the deadline moved, got %s", got)
	}
	done := models.Task{Status: models.TaskCompleted, DueDate: due(now.AddDate(0, 0, -2))}
	if got := EffectiveTaskStatus(done, now); got != models.TaskCompleted {
		t.Fatalf("completed stays completed, got %s", got)
	}
}

func TestProjectSLA(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	onTrack := []models.Task{{Status: models.TaskPending, DueDate: due(now.AddDate(0, 1, 0))}}

	if got := c.ProjectSLA(onTrack, nil, now); got != models.SLAOk {
		t.Fatalf("expected ok, got %s", got)
	}
	soon := append(onTrack, models.Task{Status: models.TaskPending, DueDate: due(now.AddDate(0, 0, 1))})
	if got := c.ProjectSLA(soon, nil, now); got != models.SLAWarning {
		t.Fatalf("expected warning, got %s", got)
	}
	breached := []models.Ticket{ticketWith(models.TicketOpen, from(models.RoleClient, 30*time.Minute))}
	if got := c.ProjectSLA(soon, breached, now); got != models.SLADelay {
		t.Fatalf("expected delay, got %s", got)
	}
}
