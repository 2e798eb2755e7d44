// internal/models/task.go
package models

import "time"

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskOverdue    TaskStatus = "overdue"
)

type AssigneeType string

const (
	AssigneeConsultant AssigneeType = "consultant"
	AssigneeClient     AssigneeType = "client"
)

type SubTask struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Position  int    `json:"position"`
}

// Task represents the structure of a task in the system.
type Task struct {
	ID           int64        `json:"id"`
	ProjectID    *int64       `json:"project_id,omitempty"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TaskStatus   `json:"status"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	AssignedTo   string       `json:"assigned_to"`
	AssigneeType AssigneeType `json:"assignee_type"`
	SubTasks     []SubTask    `json:"sub_tasks"`
	Version      int          `json:"version"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// DeadlineAt is the last instant of the due day in the due date's location.
func (t Task) DeadlineAt() (time.Time, bool) {
	if t.DueDate == nil {
		return time.Time{}, false
	}
	d := *t.DueDate
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, d.Location()), true
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	ProjectID  *int64
	AssignedTo *string
	Status     *TaskStatus
}
