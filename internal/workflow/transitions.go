// Package workflow holds the lifecycle state machines and the pure cascade
// planners. Nothing here touches storage.
package workflow

import (
	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

// Table lists allowed target states per source state. A state with an empty
// set is terminal; a state missing from the table is unknown.
type Table[S ~string] map[S]map[S]bool

func (t Table[S]) Known(s S) bool {
	_, ok := t[s]
	return ok
}

// Check validates from -> to. Staying in the same state is always allowed for
// known states so repeated clicks are harmless.
func (t Table[S]) Check(from, to S) error {
	if !t.Known(to) {
		return apperr.Validation("unknown state %q", to)
	}
	if !t.Known(from) {
		return apperr.Validation("unknown current state %q", from)
	}
	if from == to || t[from][to] {
		return nil
	}
	return apperr.Validation("invalid status transition %q -> %q", from, to)
}

func anyToAny[S ~string](states ...S) Table[S] {
	t := make(Table[S], len(states))
	for _, from := range states {
		t[from] = make(map[S]bool, len(states))
		for _, to := range states {
			if from != to {
				t[from][to] = true
			}
		}
	}
	return t
}

// DealPipeline is the ordered pipeline; Lost sits outside the order.
var DealPipeline = []models.DealStage{
	models.DealStageLead,
	models.DealStageContact,
	models.DealStageProposal,
	models.DealStageNegotiation,
	models.DealStageWon,
}

// DealTransitions allows any stage from any stage, skipping and regressing
// included.
var DealTransitions = anyToAny(append(append([]models.DealStage{}, DealPipeline...), models.DealStageLost)...)

// StageIndex is the pipeline position of s, or -1 for Lost/unknown.
func StageIndex(s models.DealStage) int {
	for i, st := range DealPipeline {
		if st == s {
			return i
		}
	}
	return -1
}

// TransitionDeal moves the deal and reports whether Won was newly entered.
func TransitionDeal(d models.Deal, to models.DealStage) (models.Deal, bool, error) {
	if err := DealTransitions.Check(d.Stage, to); err != nil {
		return d, false, err
	}
	enteredWon := to == models.DealStageWon && d.Stage != models.DealStageWon
	d.Stage = to
	return d, enteredWon, nil
}

// TicketTransitions: manual status changes are unrestricted between known
// statuses. Replies and resolve go through ApplyReply / ResolveTicket.
var TicketTransitions = anyToAny(
	models.TicketOpen,
	models.TicketInAnalysis,
	models.TicketAnsweredBySupport,
	models.TicketAnsweredByClient,
	models.TicketResolved,
)

func SetTicketStatus(t models.Ticket, to models.TicketStatus) (models.Ticket, error) {
	if err := TicketTransitions.Check(t.Status, to); err != nil {
		return t, err
	}
	t.Status = to
	return t, nil
}

// ApplyReply appends the interaction and lets the author drive the status.
// System notes are recorded without touching the status.
func ApplyReply(t models.Ticket, in models.Interaction) (models.Ticket, error) {
	switch in.Role {
	case models.RoleClient:
		t.Status = models.TicketAnsweredByClient
	case models.RoleSupport:
		t.Status = models.TicketAnsweredBySupport
	case models.RoleSystem:
	default:
		return t, apperr.Validation("unknown interaction role %q", in.Role)
	}
	in.TicketID = t.ID
	t.Interactions = append(append([]models.Interaction(nil), t.Interactions...), in)
	t.UpdatedAt = in.CreatedAt
	return t, nil
}

func ResolveTicket(t models.Ticket) models.Ticket {
	t.Status = models.TicketResolved
	return t
}

// TaskTransitions: completed is terminal; the open statuses move freely.
var TaskTransitions = Table[models.TaskStatus]{
	models.TaskPending:    {models.TaskInProgress: true, models.TaskCompleted: true, models.TaskOverdue: true},
	models.TaskInProgress: {models.TaskPending: true, models.TaskCompleted: true, models.TaskOverdue: true},
	models.TaskOverdue:    {models.TaskPending: true, models.TaskInProgress: true, models.TaskCompleted: true},
	models.TaskCompleted:  {},
}

func TransitionTask(t models.Task, to models.TaskStatus) (models.Task, error) {
	if err := TaskTransitions.Check(t.Status, to); err != nil {
		return t, err
	}
	t.Status = to
	return t, nil
}

// OnboardingTransitions only move forward; Concluído is terminal.
var OnboardingTransitions = Table[models.OnboardingStage]{
	models.OnboardingPendingKickoff: {models.OnboardingInProgress: true, models.OnboardingDone: true},
	models.OnboardingInProgress:     {models.OnboardingDone: true},
	models.OnboardingDone:           {},
}

func TransitionOnboarding(o models.OnboardingItem, to models.OnboardingStage) (models.OnboardingItem, error) {
	if err := OnboardingTransitions.Check(o.Stage, to); err != nil {
		return o, err
	}
	o.Stage = to
	return o, nil
}
