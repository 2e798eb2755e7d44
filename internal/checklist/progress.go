// Package checklist computes completion percentages and toggles items.
package checklist

import (
	"math"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

// Progress is round(100 * done / total). An empty list is 0%.
func Progress[T any](items []T, done func(T) bool) int {
	if len(items) == 0 {
		return 0
	}
	n := 0
	for _, it := range items {
		if done(it) {
			n++
		}
	}
	return int(math.Round(float64(n) * 100 / float64(len(items))))
}

func TaskProgress(t models.Task) int {
	return Progress(t.SubTasks, func(s models.SubTask) bool { return s.Completed })
}

func OnboardingProgress(o models.OnboardingItem) int {
	return Progress(o.Checklist, func(c models.ChecklistItem) bool { return c.Completed })
}

// ProjectProgress averages completed tasks over all project tasks.
func ProjectProgress(tasks []models.Task) int {
	return Progress(tasks, func(t models.Task) bool { return t.Status == models.TaskCompleted })
}

// ToggleSubTask flips one sub-task and returns the new task progress.
func ToggleSubTask(t models.Task, subTaskID int64) (models.Task, int, error) {
	subs := append([]models.SubTask(nil), t.SubTasks...)
	for i := range subs {
		if subs[i].ID == subTaskID {
			subs[i].Completed = !subs[i].Completed
			t.SubTasks = subs
			return t, TaskProgress(t), nil
		}
	}
	return t, TaskProgress(t), apperr.NotFound("subtask", subTaskID)
}

// ToggleChecklistItem flips one checklist entry of an onboarding item.
func ToggleChecklistItem(o models.OnboardingItem, itemID int64) (models.OnboardingItem, int, error) {
	items := append([]models.ChecklistItem(nil), o.Checklist...)
	for i := range items {
		if items[i].ID == itemID {
			items[i].Completed = !items[i].Completed
			o.Checklist = items
			return o, OnboardingProgress(o), nil
		}
	}
	return o, OnboardingProgress(o), apperr.NotFound("checklist item", itemID)
}
