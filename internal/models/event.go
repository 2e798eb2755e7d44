package models

import "time"

const (
	EventMembershipActivated   = "membership.activated"
	EventMembershipUserMissing = "membership.user_missing"
	EventOnboardingCompleted   = "onboarding.completed"
	EventLeadConverted         = "lead.converted"
	EventTicketReplied         = "ticket.replied"
	EventCascadeFailed         = "cascade.failed"
)

// Event is an emitted domain fact. Delivery is up to the notification sinks.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   int64          `json:"entity_id"`
	ActorID    int64          `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}

type CascadeStatus string

const (
	CascadeRunning   CascadeStatus = "running"
	CascadeCompleted CascadeStatus = "completed"
	CascadeFailed    CascadeStatus = "failed"
	// CascadeAbandoned closes a failed or stale run whose entity has since
	// left the target state. Abandoned runs are never resumed automatically.
	CascadeAbandoned CascadeStatus = "abandoned"
)

// CascadeRun journals one cascade execution keyed by
// (EntityKind, EntityID, Transition). TaskIDs is indexed by checklist position.
type CascadeRun struct {
	ID         string        `json:"id"`
	EntityKind string        `json:"entity_kind"`
	EntityID   int64         `json:"entity_id"`
	Transition string        `json:"transition"`
	Status     CascadeStatus `json:"status"`
	ActorID    int64         `json:"actor_id"`
	ProjectID  *int64        `json:"project_id,omitempty"`
	TaskIDs    []int64       `json:"task_ids"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
