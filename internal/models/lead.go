package models

import "time"

type LeadStatus string

const (
	LeadNew       LeadStatus = "New"
	LeadContacted LeadStatus = "Contacted"
	LeadQualified LeadStatus = "Qualified"
)

type Lead struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Company   string     `json:"company"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Status    LeadStatus `json:"status"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
}
