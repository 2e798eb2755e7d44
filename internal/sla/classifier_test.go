package sla

import (
	"testing"
	"time"

	"potencialize/internal/models"
)

var now = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func ticketWith(status models.TicketStatus, ins ...models.Interaction) models.Ticket {
	return models.Ticket{ID: 1, Status: status, Interactions: ins}
}

func from(role models.InteractionRole, ago time.Duration) models.Interaction {
	return models.Interaction{Role: role, Text: "msg", CreatedAt: now.Add(-ago)}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	cases := []struct {
		name   string
		ticket models.Ticket
		want   Result
	}{
		{"no interactions", ticketWith(models.TicketOpen), Result{Status: StatusOK, Label: "new"}},
		{"resolved wins", ticketWith(models.TicketResolved, from(models.RoleClient, time.Hour)), Result{Status: StatusOK, Label: "Resolved"}},
		{"support spoke last", ticketWith(models.TicketAnsweredBySupport,
			from(models.RoleClient, 3*time.Hour), from(models.RoleSupport, 2*time.Hour)),
			Result{Status: StatusPaused, Label: "Awaiting client"}},
		{"client 2m ago", ticketWith(models.TicketOpen, from(models.RoleClient, 2*time.Minute)),
			Result{Status: StatusOK, Label: "On time", ElapsedMinutes: 2}},
		{"client 7m ago", ticketWith(models.TicketAnsweredByClient, from(models.RoleClient, 7*time.Minute)),
			Result{Status: StatusWarning, Label: "7m elapsed", ElapsedMinutes: 7}},
		{"client 12m ago", ticketWith(models.TicketAnsweredByClient, from(models.RoleClient, 12*time.Minute)),
			Result{Status: StatusBreach, Label: "+12m", ElapsedMinutes: 12}},
		{"exactly at warning", ticketWith(models.TicketOpen, from(models.RoleClient, 5*time.Minute)),
			Result{Status: StatusOK, Label: "On time", ElapsedMinutes: 5}},
		{"system note keeps client clock", ticketWith(models.TicketAnsweredByClient,
			from(models.RoleClient, 12*time.Minute), from(models.RoleSystem, time.Minute)),
			Result{Status: StatusBreach, Label: "+12m", ElapsedMinutes: 12}},
		{"system note after support stays paused", ticketWith(models.TicketAnsweredBySupport,
			from(models.RoleSupport, time.Hour), from(models.RoleSystem, time.Minute)),
			Result{Status: StatusPaused, Label: "Awaiting client"}},
		{"only system notes", ticketWith(models.TicketOpen, from(models.RoleSystem, time.Hour)),
			Result{Status: StatusOK, Label: "new"}},
		{"exactly at breach", ticketWith(models.TicketOpen, from(models.RoleClient, 10*time.Minute)),
			Result{Status: StatusWarning, Label: "10m elapsed", ElapsedMinutes: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.ticket, now); got != tc.want {
				t.Fatalf("Classify = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestClassifyPausedIgnoresElapsed(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	tk := ticketWith(models.TicketAnsweredBySupport, from(models.RoleSupport, 72*time.Hour))
	if got := c.Classify(tk, now); got.Status != StatusPaused {
		t.Fatalf("expected paused, got %s", got.Status)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	tk := ticketWith(models.TicketOpen, from(models.RoleClient, 8*time.Minute))
	if a, b := c.Classify(tk, now), c.Classify(tk, now); a != b {
		t.Fatalf("same inputs gave %+v and %+v", a, b)
	}
}

func TestCustomThresholds(t *testing.T) {
	c := NewClassifier(Thresholds{Warning: time.Hour, Breach: 4 * time.Hour})
	tk := ticketWith(models.TicketOpen, from(models.RoleClient, 12*time.Minute))
	if got := c.Classify(tk, now); got.Status != StatusOK {
		t.Fatalf("expected ok under relaxed thresholds, got %s", got.Status)
	}
}
