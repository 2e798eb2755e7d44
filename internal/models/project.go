package models

import "time"

type ProjectType string

const (
	ProjectDiagnostico   ProjectType = "Diagnóstico"
	ProjectAssessoria    ProjectType = "Assessoria"
	ProjectRecorrencia   ProjectType = "Recorrência"
	ProjectImplementacao ProjectType = "Implementação"
	ProjectClub          ProjectType = "Club"
)

const ProjectStatusActive = "Em Andamento"

type SLAStatus string

const (
	SLAOk      SLAStatus = "ok"
	SLAWarning SLAStatus = "warning"
	SLADelay   SLAStatus = "delay"
)

type Project struct {
	ID            int64       `json:"id"`
	Code          string      `json:"code"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Type          ProjectType `json:"type"`
	ClientName    string      `json:"client_name"`
	Manager       string      `json:"manager,omitempty"`
	Status        string      `json:"status"`
	SLAStatus     SLAStatus   `json:"sla_status"`
	Progress      int         `json:"progress"`
	StartDate     *time.Time  `json:"start_date,omitempty"`
	EndDate       *time.Time  `json:"end_date,omitempty"`
	ContractStart *time.Time  `json:"contract_start,omitempty"`
	ContractEnd   *time.Time  `json:"contract_end,omitempty"`
	SourceKind    string      `json:"source_kind,omitempty"`
	SourceID      *int64      `json:"source_id,omitempty"`
	Version       int         `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type Meeting struct {
	ID              int64     `json:"id"`
	ProjectID       int64     `json:"project_id"`
	Title           string    `json:"title"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Link            string    `json:"link,omitempty"`
	Attendees       []string  `json:"attendees"`
}

// Document.URL is an opaque blob reference; file storage lives elsewhere.
type Document struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	Title      string    `json:"title"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
	Version    string    `json:"version"`
}

type ProjectNote struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Text      string    `json:"text"`
	Type      string    `json:"type"` // internal|external|risk|highlight
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}
