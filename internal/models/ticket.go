package models

import "time"

type TicketStatus string

const (
	TicketOpen              TicketStatus = "Aberto"
	TicketInAnalysis        TicketStatus = "Em Análise"
	TicketAnsweredBySupport TicketStatus = "Respondido Pelo Consultor"
	TicketAnsweredByClient  TicketStatus = "Respondido pelo Cliente"
	TicketResolved          TicketStatus = "Resolvido"
)

type TicketPriority string

const (
	PriorityLow    TicketPriority = "Baixa"
	PriorityMedium TicketPriority = "Média"
	PriorityHigh   TicketPriority = "Alta"
	PriorityUrgent TicketPriority = "Urgente"
)

type InteractionRole string

const (
	RoleClient  InteractionRole = "client"
	RoleSupport InteractionRole = "support"
	RoleSystem  InteractionRole = "system"
)

type Interaction struct {
	ID        int64           `json:"id"`
	TicketID  int64           `json:"ticket_id"`
	Sender    string          `json:"sender"`
	Role      InteractionRole `json:"role"`
	Text      string          `json:"text"`
	CreatedAt time.Time       `json:"created_at"`
}

type Ticket struct {
	ID           int64          `json:"id"`
	ProjectID    int64          `json:"project_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Area         string         `json:"area,omitempty"`
	Priority     TicketPriority `json:"priority"`
	Status       TicketStatus   `json:"status"`
	OpenedBy     string         `json:"opened_by"`
	AssignedTo   string         `json:"assigned_to,omitempty"`
	Interactions []Interaction  `json:"interactions"`
	Version      int            `json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// LastInteraction returns the most recent client or support entry of the
// append-only history. System notes are skipped.
func (t Ticket) LastInteraction() (Interaction, bool) {
	for i := len(t.Interactions) - 1; i >= 0; i-- {
		if t.Interactions[i].Role != RoleSystem {
			return t.Interactions[i], true
		}
	}
	return Interaction{}, false
}

type TicketFilter struct {
	ProjectID *int64
	Status    *TicketStatus
}
