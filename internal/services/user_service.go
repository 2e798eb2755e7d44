package services

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
)

const kindUser = "user"

type UserService struct {
	deps Deps
}

func NewUserService(deps Deps) *UserService {
	return &UserService{deps: deps.withDefaults()}
}

type NewUser struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
	RoleID      string `json:"role_id"`
}

func (s *UserService) Create(ctx context.Context, actor *models.User, in NewUser) (*models.User, error) {
	if err := s.deps.authorize(actor, authz.ManageUsers); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

// Bootstrap creates the first admin without an actor; it refuses once any
// user exists.
func (s *UserService) Bootstrap(ctx context.Context, in NewUser) (*models.User, error) {
	users, err := s.deps.Store.Repos().Users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) > 0 {
		return nil, apperr.Conflict("users already exist")
	}
	if in.RoleID == "" {
		in.RoleID = authz.RoleAdmin
	}
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in NewUser) (*models.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperr.Validation("invalid email %q", in.Email)
	}
	if len(in.Password) < 8 {
		return nil, apperr.Validation("password must have at least 8 characters")
	}
	if _, ok := s.deps.Registry.Role(in.RoleID); !ok {
		return nil, apperr.Validation("unknown role %q", in.RoleID)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		CompanyName:  strings.TrimSpace(in.CompanyName),
		PasswordHash: hash,
		RoleID:       in.RoleID,
		Active:       true,
	}
	if err := s.deps.Store.Repos().Users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.deps.Logger.Info("user created", zap.Int64("user_id", u.ID), zap.String("role", u.RoleID))
	return u, nil
}

func (s *UserService) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := s.deps.authorize(actor, authz.ManageUsers); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Users.List(ctx)
}

// Get allows reading one's own profile without manage_users.
func (s *UserService) Get(ctx context.Context, actor *models.User, id int64) (*models.User, error) {
	if actorID(actor) != id {
		if err := s.deps.authorize(actor, authz.ManageUsers); err != nil {
			return nil, err
		}
	}
	return s.deps.Store.Repos().Users.GetByID(ctx, id)
}

type UserPatch struct {
	Version     int     `json:"version"`
	Name        *string `json:"name"`
	CompanyName *string `json:"company_name"`
	RoleID      *string `json:"role_id"`
	Active      *bool   `json:"active"`
	Password    *string `json:"password"`
}

func (s *UserService) Update(ctx context.Context, actor *models.User, id int64, p UserPatch) (*models.User, error) {
	if err := s.deps.authorize(actor, authz.ManageUsers); err != nil {
		return nil, err
	}
	var out *models.User
	err := s.deps.locked(ctx, kindUser, id, func() error {
		repo := s.deps.Store.Repos().Users
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion("user", id, p.Version, u.Version); err != nil {
			return err
		}
		if p.Name != nil {
			if strings.TrimSpace(*p.Name) == "" {
				return apperr.Validation("name is required")
			}
			u.Name = *p.Name
		}
		if p.CompanyName != nil {
			u.CompanyName = *p.CompanyName
		}
		if p.RoleID != nil {
			if _, ok := s.deps.Registry.Role(*p.RoleID); !ok {
				return apperr.Validation("unknown role %q", *p.RoleID)
			}
			u.RoleID = *p.RoleID
		}
		if p.Active != nil {
			if !*p.Active && id == actorID(actor) {
				return apperr.Validation("cannot deactivate yourself")
			}
			u.Active = *p.Active
		}
		if p.Password != nil {
			if len(*p.Password) < 8 {
				return apperr.Validation("password must have at least 8 characters")
			}
			if u.PasswordHash, err = HashPassword(*p.Password); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

// Deactivate soft-removes a user; users are never hard-deleted.
func (s *UserService) Deactivate(ctx context.Context, actor *models.User, id int64) (*models.User, error) {
	inactive := false
	return s.Update(ctx, actor, id, UserPatch{Active: &inactive})
}
