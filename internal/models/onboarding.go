package models

import "time"

type OnboardingStage string

const (
	OnboardingPendingKickoff OnboardingStage = "Pendente de Kickoff"
	OnboardingInProgress     OnboardingStage = "Em andamento"
	OnboardingDone           OnboardingStage = "Concluído"
)

type ChecklistItem struct {
	ID           int64      `json:"id"`
	OnboardingID int64      `json:"onboarding_id"`
	Title        string     `json:"title"`
	Completed    bool       `json:"completed"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	Position     int        `json:"position"`
}

type OnboardingNote struct {
	ID           int64     `json:"id"`
	OnboardingID int64     `json:"onboarding_id"`
	Text         string    `json:"text"`
	User         string    `json:"user"`
	CreatedAt    time.Time `json:"created_at"`
}

type OnboardingItem struct {
	ID         int64            `json:"id"`
	ClientName string           `json:"client_name"`
	Product    string           `json:"product"`
	Consultant string           `json:"consultant"`
	Stage      OnboardingStage  `json:"stage"`
	StartDate  time.Time        `json:"start_date"`
	Checklist  []ChecklistItem  `json:"checklist"`
	Notes      []OnboardingNote `json:"notes"`
	ProjectID  *int64           `json:"project_id,omitempty"`
	Version    int              `json:"version"`
}
