package authz

import (
	"errors"
	"testing"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

func TestHasPermission(t *testing.T) {
	reg := NewRegistry(DefaultRoles())

	cases := []struct {
		name string
		user *models.User
		key  Capability
		want bool
	}{
		{"admin has everything", &models.User{RoleID: RoleAdmin}, ManageRoles, true},
		{"commercial edits crm", &models.User{RoleID: RoleCommercial}, EditCRM, true},
		{"commercial cannot edit projects", &models.User{RoleID: RoleCommercial}, EditProjects, false},
		{"unknown role denies", &models.User{RoleID: "ghost"}, ViewDashboard, false},
		{"unknown key denies", &models.User{RoleID: RoleAdmin}, Capability("launch_rockets"), false},
		{"nil user denies", nil, ViewDashboard, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := reg.HasPermission(tc.user, tc.key); got != tc.want {
				t.Fatalf("HasPermission = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	reg := NewRegistry(DefaultRoles())
	err := reg.Authorize(&models.User{RoleID: RoleAssessor}, EditCRM)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := reg.Authorize(&models.User{RoleID: RoleCommercial}, EditCRM); err != nil {
		t.Fatalf("expected grant, got %v", err)
	}
}

func TestRegistryPutAndRemove(t *testing.T) {
	reg := NewRegistry(nil)
	u := &models.User{RoleID: "auditor"}
	if reg.HasPermission(u, ViewCRM) {
		t.Fatalf("empty registry must deny")
	}
	reg.Put(models.Role{ID: "auditor", Permissions: []string{"view_crm"}})
	if !reg.HasPermission(u, ViewCRM) {
		t.Fatalf("expected grant after Put")
	}
	reg.Remove("auditor")
	if reg.HasPermission(u, ViewCRM) {
		t.Fatalf("expected deny after Remove")
	}
}

func TestIsClient(t *testing.T) {
	reg := NewRegistry(DefaultRoles())
	if !reg.IsClient(&models.User{RoleID: RoleClientBasic}) {
		t.Fatalf("client_basic is a client role")
	}
	if reg.IsClient(&models.User{RoleID: RoleConsultant}) {
		t.Fatalf("consultor is staff")
	}
}
