package services

import (
	"context"
	"errors"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
)

var roleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,31}$`)

// RoleService edits the role catalogue and keeps the in-memory registry in
// step with the stored roles.
type RoleService struct {
	deps Deps
	base []models.Role
}

func NewRoleService(deps Deps, configured []models.Role) *RoleService {
	return &RoleService{deps: deps.withDefaults(), base: configured}
}

// Load merges stored roles over the configured ones and installs the result
// in the registry.
func (s *RoleService) Load(ctx context.Context) error {
	stored, err := s.deps.Store.Repos().Roles.List(ctx)
	if err != nil {
		return err
	}
	merged := make(map[string]models.Role, len(s.base)+len(stored))
	for _, r := range s.base {
		merged[r.ID] = r
	}
	for _, r := range stored {
		if base, ok := merged[r.ID]; ok && base.IsSystem {
			r.IsSystem, r.Client = true, base.Client
		}
		merged[r.ID] = r
	}
	roles := make([]models.Role, 0, len(merged))
	for _, r := range merged {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	s.deps.Registry.Replace(roles)
	s.deps.Logger.Info("role registry loaded", zap.Int("roles", len(roles)), zap.Int("stored", len(stored)))
	return nil
}

func (s *RoleService) List(ctx context.Context, actor *models.User) ([]models.Role, error) {
	if actor == nil {
		return nil, apperr.Forbidden("authenticated user")
	}
	stored, err := s.deps.Store.Repos().Roles.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := make([]models.Role, 0, len(s.base)+len(stored))
	for _, r := range stored {
		if cur, ok := s.deps.Registry.Role(r.ID); ok {
			r.IsSystem = cur.IsSystem
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	for _, r := range s.base {
		if !seen[r.ID] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func validPermissions(perms []string) error {
	known := make(map[string]bool, len(authz.All))
	for _, c := range authz.All {
		known[string(c)] = true
	}
	for _, p := range perms {
		if !known[p] {
			return apperr.Validation("unknown permission %q", p)
		}
	}
	return nil
}

// Save creates or replaces a role. System roles keep their flags.
func (s *RoleService) Save(ctx context.Context, actor *models.User, r models.Role) (*models.Role, error) {
	if err := s.deps.authorize(actor, authz.ManageRoles); err != nil {
		return nil, err
	}
	if !roleIDPattern.MatchString(r.ID) {
		return nil, apperr.Validation("role id must be lowercase letters, digits or underscore")
	}
	if r.Name == "" {
		return nil, apperr.Validation("role name is required")
	}
	if err := validPermissions(r.Permissions); err != nil {
		return nil, err
	}
	if cur, ok := s.deps.Registry.Role(r.ID); ok {
		r.IsSystem = cur.IsSystem
		if cur.IsSystem {
			r.Client = cur.Client
		}
	} else {
		r.IsSystem = false
	}
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
	if err := s.deps.Store.Repos().Roles.Upsert(ctx, &r); err != nil {
		return nil, err
	}
	s.deps.Registry.Put(r)
	return &r, nil
}

// Delete refuses system roles and roles still assigned to a user.
func (s *RoleService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := s.deps.authorize(actor, authz.ManageRoles); err != nil {
		return err
	}
	role, ok := s.deps.Registry.Role(id)
	if !ok {
		return apperr.NotFound("role", id)
	}
	if role.IsSystem {
		return apperr.Conflict("role %s is a system role", id)
	}
	n, err := s.deps.Store.Repos().Users.CountByRole(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("role %s is assigned to %d user(s)", id, n)
	}
	if err := s.deps.Store.Repos().Roles.Delete(ctx, id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	for _, r := range s.base {
		if r.ID == id {
			// configured roles come back from the config on restart
			s.deps.Logger.Warn("deleted role is still present in config", zap.String("role", id))
		}
	}
	s.deps.Registry.Remove(id)
	return nil
}
