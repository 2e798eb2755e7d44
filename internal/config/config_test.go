package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.SLA.Warning != 5*time.Minute || cfg.SLA.Breach != 10*time.Minute {
		t.Fatalf("unexpected sla defaults: %+v", cfg.SLA)
	}
	if cfg.Automation.MembershipProduct != "Potencialize Club" || cfg.Automation.CodeAttempts != 3 {
		t.Fatalf("unexpected automation defaults: %+v", cfg.Automation)
	}
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("POT_JWT_SECRET", "s3cret")
	cfg, err := Parse([]byte("jwt:\n  secret: ${POT_JWT_SECRET}\nsla:\n  warning: 2m\n  breach: 4m\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.JWT.Secret != "s3cret" {
		t.Fatalf("secret = %q", cfg.JWT.Secret)
	}
	if cfg.SLA.Warning != 2*time.Minute || cfg.SLA.Breach != 4*time.Minute {
		t.Fatalf("unexpected sla: %+v", cfg.SLA)
	}
}

func TestParseRejectsInvertedThresholds(t *testing.T) {
	_, err := Parse([]byte("sla:\n  warning: 20m\n  breach: 10m\n"))
	if err == nil || !strings.Contains(err.Error(), "sla.warning") {
		t.Fatalf("expected threshold validation error, got %v", err)
	}
}

func TestParseRoles(t *testing.T) {
	raw := `
roles:
  - id: auditor
    name: Auditor
    permissions: [view_crm, view_projects]
  - id: portal
    name: Portal
    client: true
    system: true
`
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Roles) != 2 || !cfg.Roles[1].Client || !cfg.Roles[1].IsSystem || len(cfg.Roles[0].Permissions) != 2 {
		t.Fatalf("unexpected roles: %+v", cfg.Roles)
	}
}
