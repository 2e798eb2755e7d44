package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
	"potencialize/internal/repositories"
	"potencialize/internal/sla"
	"potencialize/internal/workflow"
)

const kindTicket = "ticket"

var ticketPriorities = map[models.TicketPriority]bool{
	models.PriorityLow:    true,
	models.PriorityMedium: true,
	models.PriorityHigh:   true,
	models.PriorityUrgent: true,
}

// TicketView embeds the SLA block derived at read time; it is never stored.
type TicketView struct {
	models.Ticket
	SLA sla.Result `json:"sla"`
}

func ticketView(c sla.Classifier, t models.Ticket, now time.Time) TicketView {
	return TicketView{Ticket: t, SLA: c.Classify(t, now)}
}

type TicketService struct {
	deps       Deps
	classifier sla.Classifier
}

func NewTicketService(deps Deps, classifier sla.Classifier) *TicketService {
	return &TicketService{deps: deps.withDefaults(), classifier: classifier}
}

func (s *TicketService) Classifier() sla.Classifier { return s.classifier }

func (s *TicketService) Create(ctx context.Context, actor *models.User, t *models.Ticket) (*TicketView, error) {
	if err := s.deps.authorize(actor, authz.ViewTickets); err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Title) == "" {
		return nil, apperr.Validation("ticket title is required")
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if !ticketPriorities[t.Priority] {
		return nil, apperr.Validation("unknown ticket priority %q", t.Priority)
	}
	if err := s.deps.requireProject(ctx, actor, t.ProjectID); err != nil {
		return nil, err
	}
	now := s.deps.Now()
	t.Status = models.TicketOpen
	t.OpenedBy = actorName(actor)
	t.Interactions = []models.Interaction{}
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.deps.Store.Repos().Tickets.Create(ctx, t); err != nil {
		return nil, err
	}
	v := ticketView(s.classifier, *t, now)
	return &v, nil
}

func (s *TicketService) List(ctx context.Context, actor *models.User, f models.TicketFilter) ([]TicketView, error) {
	if err := s.deps.authorize(actor, authz.ViewTickets); err != nil {
		return nil, err
	}
	tickets, err := s.deps.Store.Repos().Tickets.List(ctx, f)
	if err != nil {
		return nil, err
	}
	client := s.deps.Registry.IsClient(actor)
	visible := map[int64]bool{}
	now := s.deps.Now()
	out := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		if client {
			ok, seen := visible[t.ProjectID]
			if !seen {
				ok = s.deps.requireProject(ctx, actor, t.ProjectID) == nil
				visible[t.ProjectID] = ok
			}
			if !ok {
				continue
			}
		}
		out = append(out, ticketView(s.classifier, t, now))
	}
	return out, nil
}

func (s *TicketService) Get(ctx context.Context, actor *models.User, id int64) (*TicketView, error) {
	if err := s.deps.authorize(actor, authz.ViewTickets); err != nil {
		return nil, err
	}
	t, err := s.deps.Store.Repos().Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deps.requireProject(ctx, actor, t.ProjectID); err != nil {
		return nil, apperr.NotFound("ticket", id)
	}
	v := ticketView(s.classifier, *t, s.deps.Now())
	return &v, nil
}

type TicketPatch struct {
	Version    int                    `json:"version"`
	Title      *string                `json:"title"`
	Priority   *models.TicketPriority `json:"priority"`
	Area       *string                `json:"area"`
	AssignedTo *string                `json:"assigned_to"`
	Status     *models.TicketStatus   `json:"status"`
}

// Update is staff-only. A manual status change is unrestricted between known
// statuses.
func (s *TicketService) Update(ctx context.Context, actor *models.User, id int64, p TicketPatch) (*TicketView, error) {
	return s.staffMutate(ctx, actor, id, func(t *models.Ticket) error {
		if err := checkVersion("ticket", id, p.Version, t.Version); err != nil {
			return err
		}
		if p.Title != nil {
			if strings.TrimSpace(*p.Title) == "" {
				return apperr.Validation("ticket title is required")
			}
			t.Title = *p.Title
		}
		if p.Priority != nil {
			if !ticketPriorities[*p.Priority] {
				return apperr.Validation("unknown ticket priority %q", *p.Priority)
			}
			t.Priority = *p.Priority
		}
		if p.Area != nil {
			t.Area = *p.Area
		}
		if p.AssignedTo != nil {
			t.AssignedTo = *p.AssignedTo
		}
		if p.Status != nil {
			next, err := workflow.SetTicketStatus(*t, *p.Status)
			if err != nil {
				return err
			}
			*t = next
		}
		return nil
	})
}

func (s *TicketService) Resolve(ctx context.Context, actor *models.User, id int64) (*TicketView, error) {
	return s.staffMutate(ctx, actor, id, func(t *models.Ticket) error {
		*t = workflow.ResolveTicket(*t)
		return nil
	})
}

func (s *TicketService) staffMutate(ctx context.Context, actor *models.User, id int64, fn func(*models.Ticket) error) (*TicketView, error) {
	if err := s.deps.authorize(actor, authz.ViewTickets); err != nil {
		return nil, err
	}
	if s.deps.Registry.IsClient(actor) {
		return nil, apperr.Forbidden("staff role")
	}
	var out TicketView
	err := s.deps.locked(ctx, kindTicket, id, func() error {
		repo := s.deps.Store.Repos().Tickets
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
		out = ticketView(s.classifier, *t, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Reply appends an interaction. Client accounts reply as client, everybody
// else as support, and the status follows the author. Replying to a resolved
// ticket moves it back the same way.
func (s *TicketService) Reply(ctx context.Context, actor *models.User, id int64, text string) (*TicketView, error) {
	if err := s.deps.authorize(actor, authz.ViewTickets); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("reply text is required")
	}
	role := models.RoleSupport
	if s.deps.Registry.IsClient(actor) {
		role = models.RoleClient
	}

	var (
		out TicketView
		evt models.Event
	)
	err := s.deps.locked(ctx, kindTicket, id, func() error {
		return s.deps.Store.WithinTx(ctx, func(r repositories.Repos) error {
			t, err := r.Tickets.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if err := s.deps.requireProject(ctx, actor, t.ProjectID); err != nil {
				return apperr.NotFound("ticket", id)
			}
			now := s.deps.Now()
			in := models.Interaction{Sender: actorName(actor), Role: role, Text: text, CreatedAt: now}
			next, err := workflow.ApplyReply(*t, in)
			if err != nil {
				return err
			}
			in = next.Interactions[len(next.Interactions)-1]
			if err := r.Tickets.AppendInteraction(ctx, &in); err != nil {
				return err
			}
			next.Interactions[len(next.Interactions)-1] = in
			if err := r.Tickets.Update(ctx, &next); err != nil {
				return err
			}
			evt = models.Event{
				ID:         uuid.NewString(),
				Type:       models.EventTicketReplied,
				EntityKind: kindTicket,
				EntityID:   id,
				ActorID:    actorID(actor),
				Payload:    map[string]any{"role": string(role), "status": string(next.Status)},
				CreatedAt:  now,
			}
			if err := r.Events.Append(ctx, &evt); err != nil {
				return err
			}
			out = ticketView(s.classifier, next, now)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.deps.Publisher.Publish(ctx, evt)
	return &out, nil
}

// Overview returns every unresolved ticket with its SLA, worst first.
func (s *TicketService) Overview(ctx context.Context) ([]TicketView, error) {
	tickets, err := s.deps.Store.Repos().Tickets.List(ctx, models.TicketFilter{})
	if err != nil {
		return nil, err
	}
	now := s.deps.Now()
	rank := map[sla.Status]int{sla.StatusBreach: 0, sla.StatusWarning: 1, sla.StatusOK: 2, sla.StatusPaused: 3}
	out := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		if t.Status == models.TicketResolved {
			continue
		}
		out = append(out, ticketView(s.classifier, t, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].SLA, out[j].SLA
		if rank[a.Status] != rank[b.Status] {
			return rank[a.Status] < rank[b.Status]
		}
		return a.ElapsedMinutes > b.ElapsedMinutes
	})
	return out, nil
}
