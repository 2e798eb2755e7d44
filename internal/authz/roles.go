package authz

import (
	"sync"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

// Capability is a grantable permission key.
type Capability string

const (
	ViewDashboard             Capability = "view_dashboard"
	ViewCRM                   Capability = "view_crm"
	EditCRM                   Capability = "edit_crm"
	ViewProjects              Capability = "view_projects"
	EditProjects              Capability = "edit_projects"
	ManageProjectClientAccess Capability = "manage_project_client_access"
	ViewFinancials            Capability = "view_financials"
	ViewOnboarding            Capability = "view_onboarding"
	EditOnboarding            Capability = "edit_onboarding"
	ViewClientBase            Capability = "view_client_base"
	ViewTickets               Capability = "view_tickets"
	EditTasks                 Capability = "edit_tasks"
	ManageUsers               Capability = "manage_users"
	ManageRoles               Capability = "manage_roles"
)

// All lists every capability the system knows about.
var All = []Capability{
	ViewDashboard, ManageUsers, ViewClientBase, ViewCRM, EditCRM, ViewOnboarding, EditOnboarding,
	ViewProjects, EditProjects, ManageProjectClientAccess, ViewFinancials, ViewTickets, EditTasks,
	ManageRoles,
}

const (
	RoleAdmin       = "admin"
	RoleCommercial  = "comercial"
	RoleConsultant  = "consultor"
	RoleAssessor    = "assessor"
	RoleCS          = "cs"
	RoleOpsManager  = "gerente_ops"
	RoleClientBasic = "client_basic"
	RoleClubMember  = "club_member"
)

// DefaultRoles is the built-in catalogue used when the config has no roles section.
func DefaultRoles() []models.Role {
	all := make([]string, 0, len(All))
	for _, c := range All {
		all = append(all, string(c))
	}
	return []models.Role{
		{ID: RoleAdmin, Name: "Administrador (Super Admin)", Description: "Acesso total ao sistema", Permissions: all, IsSystem: true},
		{ID: RoleCommercial, Name: "Comercial", Description: "Foco em Vendas e CRM",
			Permissions: []string{"view_dashboard", "view_client_base", "view_crm", "edit_crm", "view_financials", "view_tickets"}},
		{ID: RoleConsultant, Name: "Consultor", Description: "Execução de Projetos e Atendimento",
			Permissions: []string{"view_dashboard", "view_projects", "edit_projects", "manage_project_client_access", "view_onboarding", "edit_onboarding", "edit_tasks", "view_tickets"}},
		{ID: RoleAssessor, Name: "Assessor", Description: "Suporte a execução",
			Permissions: []string{"view_dashboard", "view_projects", "view_tickets"}},
		{ID: RoleCS, Name: "Sucesso do Cliente", Description: "Onboarding e Acompanhamento",
			Permissions: []string{"view_dashboard", "view_onboarding", "edit_onboarding", "view_client_base", "view_projects", "view_tickets"}},
		{ID: RoleOpsManager, Name: "Gerente Operacional", Description: "Visão macro da operação",
			Permissions: []string{"view_dashboard", "view_projects", "edit_projects", "view_onboarding", "edit_onboarding", "edit_tasks", "view_financials", "manage_roles", "view_tickets"}},
		{ID: RoleClientBasic, Name: "Cliente (Básico)", Description: "Acesso ao Portal do Cliente",
			Permissions: []string{"view_projects", "view_tickets"}, IsSystem: true, Client: true},
		{ID: RoleClubMember, Name: "Membro Club", Description: "Assinante do Club",
			Permissions: []string{"view_dashboard", "view_tickets"}, IsSystem: true, Client: true},
	}
}

// Registry resolves role ids to capability sets. It is safe for concurrent
// use; Replace swaps the whole catalogue when roles are edited at runtime.
type Registry struct {
	mu    sync.RWMutex
	roles map[string]roleEntry
}

type roleEntry struct {
	role  models.Role
	perms map[Capability]struct{}
}

func NewRegistry(roles []models.Role) *Registry {
	r := &Registry{}
	r.Replace(roles)
	return r
}

func (r *Registry) Replace(roles []models.Role) {
	next := make(map[string]roleEntry, len(roles))
	for _, role := range roles {
		perms := make(map[Capability]struct{}, len(role.Permissions))
		for _, p := range role.Permissions {
			perms[Capability(p)] = struct{}{}
		}
		next[role.ID] = roleEntry{role: role, perms: perms}
	}
	r.mu.Lock()
	r.roles = next
	r.mu.Unlock()
}

// Put adds or overwrites a single role.
func (r *Registry) Put(role models.Role) {
	perms := make(map[Capability]struct{}, len(role.Permissions))
	for _, p := range role.Permissions {
		perms[Capability(p)] = struct{}{}
	}
	r.mu.Lock()
	r.roles[role.ID] = roleEntry{role: role, perms: perms}
	r.mu.Unlock()
}

func (r *Registry) Remove(roleID string) {
	r.mu.Lock()
	delete(r.roles, roleID)
	r.mu.Unlock()
}

// HasPermission is fail-closed: nil user, unknown role or unknown key deny.
func (r *Registry) HasPermission(user *models.User, key Capability) bool {
	if r == nil || user == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.roles[user.RoleID]
	if !ok {
		return false
	}
	_, ok = entry.perms[key]
	return ok
}

// Authorize is HasPermission as an error value.
func (r *Registry) Authorize(user *models.User, key Capability) error {
	if !r.HasPermission(user, key) {
		return apperr.Forbidden(string(key))
	}
	return nil
}

// IsClient reports whether the user's role is a customer-portal role.
func (r *Registry) IsClient(user *models.User) bool {
	if r == nil || user == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.roles[user.RoleID]
	return ok && entry.role.Client
}

func (r *Registry) Role(id string) (models.Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.roles[id]
	return entry.role, ok
}

// Permissions returns the capability keys granted to the user's role.
func (r *Registry) Permissions(user *models.User) []string {
	if user == nil {
		return nil
	}
	role, ok := r.Role(user.RoleID)
	if !ok {
		return nil
	}
	return append([]string(nil), role.Permissions...)
}
