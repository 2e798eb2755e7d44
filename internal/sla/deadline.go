package sla

import (
	"time"

	"potencialize/internal/models"
)

type DeadlineState string

const (
	DeadlineNormal      DeadlineState = "normal"
	DeadlineApproaching DeadlineState = "approaching"
	DeadlineOverdue     DeadlineState = "overdue"
	DeadlineCompleted   DeadlineState = "completed"
)

// ApproachingWindow is how close to the deadline a task starts warning.
const ApproachingWindow = 48 * time.Hour

// TaskDeadline compares now with the end of the task's due day.
func TaskDeadline(t models.Task, now time.Time) DeadlineState {
	if t.Status == models.TaskCompleted {
		return DeadlineCompleted
	}
	deadline, ok := t.DeadlineAt()
	if !ok {
		return DeadlineNormal
	}
	switch {
	case now.After(deadline):
		return DeadlineOverdue
	case deadline.Sub(now) <= ApproachingWindow:
		return DeadlineApproaching
	default:
		return DeadlineNormal
	}
}

// EffectiveTaskStatus reports overdue for any open task past its deadline,
// whatever was stored.
func EffectiveTaskStatus(t models.Task, now time.Time) models.TaskStatus {
	if t.Status == models.TaskCompleted {
		return t.Status
	}
	if TaskDeadline(t, now) == DeadlineOverdue {
		return models.TaskOverdue
	}
	if t.Status == models.TaskOverdue {
		// deadline moved forward since it was flagged
		return models.TaskPending
	}
	return t.Status
}

// ProjectSLA rolls task deadlines and ticket clocks up to the project flag:
// any overdue task or breached ticket is a delay, any approaching task or
// warning ticket is a warning.
func (c Classifier) ProjectSLA(tasks []models.Task, tickets []models.Ticket, now time.Time) models.SLAStatus {
	out := models.SLAOk
	for _, t := range tasks {
		switch TaskDeadline(t, now) {
		case DeadlineOverdue:
			return models.SLADelay
		case DeadlineApproaching:
			out = models.SLAWarning
		}
	}
	for _, t := range tickets {
		switch c.Classify(t, now).Status {
		case StatusBreach:
			return models.SLADelay
		case StatusWarning:
			out = models.SLAWarning
		}
	}
	return out
}
