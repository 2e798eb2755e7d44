package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	CompanyName  string    `json:"company_name"`
	PasswordHash string    `json:"-"`
	RoleID       string    `json:"role_id"`
	Active       bool      `json:"active"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role maps to a set of capability keys. Client roles are the ones used by
// customer accounts in the portal; their ticket replies count against the SLA.
type Role struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Permissions []string `json:"permissions" yaml:"permissions"`
	IsSystem    bool     `json:"is_system" yaml:"system"`
	Client      bool     `json:"client" yaml:"client"`
}
