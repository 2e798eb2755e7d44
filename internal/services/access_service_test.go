package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
)

func TestLoginAndParse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(f.deps)
	auth := NewAuthService(f.deps, "test-secret", time.Hour, "potencialize")

	u, err := users.Create(ctx, f.admin, NewUser{Name: "Bia", Email: "Bia@Potencialize.com.br", Password: "segredo123", RoleID: authz.RoleCS})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := auth.Login(ctx, " bia@potencialize.com.br ", "segredo123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != u.ID || !res.ExpiresAt.Equal(testNow.Add(time.Hour)) || len(res.Permissions) == 0 {
		t.Fatalf("unexpected login result %+v", res)
	}
	claims, err := auth.Parse(res.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	actor, err := auth.Actor(ctx, claims)
	if err != nil || actor.ID != u.ID || actor.RoleID != authz.RoleCS {
		t.Fatalf("Actor = %+v, %v", actor, err)
	}

	if _, err := auth.Login(ctx, "bia@potencialize.com.br", "errada123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := auth.Login(ctx, "ninguem@potencialize.com.br", "segredo123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}

	other := NewAuthService(f.deps, "another-secret", time.Hour, "potencialize")
	if _, err := other.Parse(res.Token); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}
	f.now = testNow.Add(2 * time.Hour)
	if _, err := auth.Parse(res.Token); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestDeactivatedUserLosesAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(f.deps)
	auth := NewAuthService(f.deps, "test-secret", time.Hour, "")

	u, err := users.Create(ctx, f.admin, NewUser{Name: "Bia", Email: "bia@potencialize.com.br", Password: "segredo123", RoleID: authz.RoleCS})
	if err != nil {
		t.Fatal(err)
	}
	token, _, err := auth.Issue(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := users.Deactivate(ctx, f.admin, u.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	claims, err := auth.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Actor(ctx, claims); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("inactive actor: want forbidden, got %v", err)
	}
	if _, err := auth.Login(ctx, "bia@potencialize.com.br", "segredo123"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("inactive login: want forbidden, got %v", err)
	}
	if _, err := users.Deactivate(ctx, f.admin, f.admin.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("self deactivation: want validation, got %v", err)
	}
}

func TestUserCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(f.deps)

	cases := map[string]NewUser{
		"bad email":      {Name: "X", Email: "not-an-email", Password: "segredo123", RoleID: authz.RoleCS},
		"short password": {Name: "X", Email: "x@p.com", Password: "curta", RoleID: authz.RoleCS},
		"unknown role":   {Name: "X", Email: "x@p.com", Password: "segredo123", RoleID: "ghost"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := users.Create(ctx, f.admin, in); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("want validation, got %v", err)
			}
		})
	}
	if _, err := users.Create(ctx, f.consultant, NewUser{Name: "X", Email: "x@p.com", Password: "segredo123", RoleID: authz.RoleCS}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("consultant: want forbidden, got %v", err)
	}
	if _, err := users.Bootstrap(ctx, NewUser{Name: "Root", Email: "root@p.com", Password: "segredo123"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("bootstrap with users: want conflict, got %v", err)
	}
}

func TestRoleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roles := NewRoleService(f.deps, authz.DefaultRoles())

	if _, err := roles.Save(ctx, f.admin, models.Role{ID: "auditor", Name: "Auditor", Permissions: []string{"nope"}}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown permission: want validation, got %v", err)
	}
	r, err := roles.Save(ctx, f.admin, models.Role{ID: "auditor", Name: "Auditor", Permissions: []string{"view_dashboard", "view_financials"}})
	if err != nil || r.IsSystem {
		t.Fatalf("Save = %+v, %v", r, err)
	}
	auditor := f.user(t, "Otto", "otto@potencialize.com.br", "Potencialize", "auditor")
	if !f.deps.Registry.HasPermission(auditor, authz.ViewFinancials) {
		t.Fatalf("registry not updated after save")
	}

	if err := roles.Delete(ctx, f.admin, "auditor"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("role in use: want conflict, got %v", err)
	}
	if err := roles.Delete(ctx, f.admin, authz.RoleAdmin); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("system role: want conflict, got %v", err)
	}
	if err := roles.Delete(ctx, f.consultant, "auditor"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("consultant: want forbidden, got %v", err)
	}

	role := authz.RoleCS
	if _, err := NewUserService(f.deps).Update(ctx, f.admin, auditor.ID, UserPatch{RoleID: &role}); err != nil {
		t.Fatal(err)
	}
	if err := roles.Delete(ctx, f.admin, "auditor"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := f.deps.Registry.Role("auditor"); ok {
		t.Fatalf("role still registered")
	}
}

func TestRoleLoadKeepsSystemFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stored := models.Role{ID: authz.RoleClientBasic, Name: "Cliente", Permissions: []string{"view_tickets"}}
	if err := f.store.Repos().Roles.Upsert(ctx, &stored); err != nil {
		t.Fatal(err)
	}
	roles := NewRoleService(f.deps, authz.DefaultRoles())
	if err := roles.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := f.deps.Registry.Role(authz.RoleClientBasic)
	if !ok || !got.IsSystem || !got.Client || got.Name != "Cliente" {
		t.Fatalf("loaded role = %+v", got)
	}
	if f.deps.Registry.HasPermission(f.client, authz.ViewProjects) {
		t.Fatalf("stored permissions must override configured ones")
	}
}
