// Package sla derives time-bound service-level labels for tickets, tasks and
// projects. Results are computed at read time and never stored.
package sla

import (
	"fmt"
	"math"
	"time"

	"potencialize/internal/models"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusBreach  Status = "breach"
	StatusPaused  Status = "paused"
)

type Thresholds struct {
	Warning time.Duration `yaml:"warning"`
	Breach  time.Duration `yaml:"breach"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 5 * time.Minute, Breach: 10 * time.Minute}
}

type Result struct {
	Status         Status `json:"status"`
	Label          string `json:"label"`
	ElapsedMinutes int    `json:"elapsed_minutes"`
}

// Classifier is safe to share; it holds only the configured thresholds.
type Classifier struct {
	t Thresholds
}

// NewClassifier falls back to the defaults for any zero threshold.
func NewClassifier(t Thresholds) Classifier {
	def := DefaultThresholds()
	if t.Warning <= 0 {
		t.Warning = def.Warning
	}
	if t.Breach <= 0 {
		t.Breach = def.Breach
	}
	return Classifier{t: t}
}

func (c Classifier) Thresholds() Thresholds { return c.t }

// Classify labels a ticket at the given instant. The clock only runs while
// the last word belongs to the client.
func (c Classifier) Classify(t models.Ticket, now time.Time) Result {
	if t.Status == models.TicketResolved {
		return Result{Status: StatusOK, Label: "Resolved"}
	}
	last, ok := t.LastInteraction()
	if !ok {
		return Result{Status: StatusOK, Label: "new"}
	}
	if last.Role == models.RoleSupport {
		return Result{Status: StatusPaused, Label: "Awaiting client"}
	}
	elapsed := now.Sub(last.CreatedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	mins := int(math.Floor(elapsed.Minutes()))
	switch {
	case elapsed > c.t.Breach:
		return Result{Status: StatusBreach, Label: fmt.Sprintf("+%dm", mins), ElapsedMinutes: mins}
	case elapsed > c.t.Warning:
		return Result{Status: StatusWarning, Label: fmt.Sprintf("%dm elapsed", mins), ElapsedMinutes: mins}
	default:
		return Result{Status: StatusOK, Label: "On time", ElapsedMinutes: mins}
	}
}
