package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"potencialize/internal/apperr"
	"potencialize/internal/checklist"
	"potencialize/internal/models"
)

const (
	KindDeal       = "deal"
	KindOnboarding = "onboarding"
	KindLead       = "lead"
)

// Env carries the non-deterministic inputs of the planners.
type Env struct {
	Now     time.Time
	Intn    func(n int) int
	ActorID int64
}

func (e Env) event(typ, kind string, id int64, payload map[string]any) models.Event {
	return models.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		EntityKind: kind,
		EntityID:   id,
		ActorID:    e.ActorID,
		Payload:    payload,
		CreatedAt:  e.Now,
	}
}

// ---- Deal -> Won

// MembershipRule designates the product whose sale upgrades the buyer's account.
type MembershipRule struct {
	ProductTitle string
	RoleID       string
}

type DealWonPlan struct {
	Deal        models.Deal
	UserUpgrade *models.User
	Events      []models.Event
}

func normalizeCompany(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// PlanDealWon expects a deal already moved to Won. candidates are the users
// that may belong to the deal's company; the first active match is upgraded.
func PlanDealWon(deal models.Deal, candidates []models.User, rule MembershipRule, env Env) DealWonPlan {
	plan := DealWonPlan{Deal: deal}
	if rule.ProductTitle == "" || !strings.EqualFold(strings.TrimSpace(deal.ProductInterest), strings.TrimSpace(rule.ProductTitle)) {
		return plan
	}
	company := normalizeCompany(deal.Company)
	for _, u := range candidates {
		if !u.Active || company == "" || normalizeCompany(u.CompanyName) != company {
			continue
		}
		upgraded := u
		upgraded.RoleID = rule.RoleID
		plan.UserUpgrade = &upgraded
		plan.Events = append(plan.Events, env.event(models.EventMembershipActivated, KindDeal, deal.ID, map[string]any{
			"user_id":       u.ID,
			"user_name":     u.Name,
			"email":         u.Email,
			"company":       deal.Company,
			"product":       deal.ProductInterest,
			"previous_role": u.RoleID,
			"role":          rule.RoleID,
		}))
		return plan
	}
	plan.Events = append(plan.Events, env.event(models.EventMembershipUserMissing, KindDeal, deal.ID, map[string]any{
		"company": deal.Company,
		"product": deal.ProductInterest,
	}))
	return plan
}

// ---- Onboarding -> Concluído

type ProjectDefaults struct {
	DurationMonths  int
	DefaultAssignee string
}

type OnboardingPlan struct {
	Item    models.OnboardingItem
	Project models.Project
	// Tasks[i] comes from Item.Checklist[i].
	Tasks  []models.Task
	Events []models.Event
}

// InferProjectType matches product-name keywords, defaulting to Implementação.
func InferProjectType(product string) models.ProjectType {
	p := strings.ToLower(product)
	switch {
	case strings.Contains(p, "diagnóstico") || strings.Contains(p, "diagnostico"):
		return models.ProjectDiagnostico
	case strings.Contains(p, "assessoria"):
		return models.ProjectAssessoria
	case strings.Contains(p, "club"):
		return models.ProjectClub
	default:
		return models.ProjectImplementacao
	}
}

func ProjectCode(now time.Time, intn func(int) int) string {
	n := 0
	if intn != nil {
		n = intn(1000)
	}
	return fmt.Sprintf("PRJ-%d-%d", now.Year(), n)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// PlanOnboardingCompletion builds the project and one task per checklist item.
func PlanOnboardingCompletion(item models.OnboardingItem, defaults ProjectDefaults, env Env) (OnboardingPlan, error) {
	if item.Stage == models.OnboardingDone {
		return OnboardingPlan{}, apperr.Conflict("onboarding %d already completed", item.ID)
	}
	done, err := TransitionOnboarding(item, models.OnboardingDone)
	if err != nil {
		return OnboardingPlan{}, err
	}
	if defaults.DurationMonths <= 0 {
		defaults.DurationMonths = 6
	}
	if defaults.DefaultAssignee == "" {
		defaults.DefaultAssignee = "Sistema"
	}

	today := startOfDay(env.Now)
	start := env.Now
	end := env.Now.AddDate(0, defaults.DurationMonths, 0)
	sourceID := item.ID
	project := models.Project{
		Code:       ProjectCode(env.Now, env.Intn),
		Title:      fmt.Sprintf("%s - %s", item.Product, item.ClientName),
		Type:       InferProjectType(item.Product),
		ClientName: item.ClientName,
		Manager:    item.Consultant,
		Status:     models.ProjectStatusActive,
		SLAStatus:  models.SLAOk,
		Progress:   checklist.OnboardingProgress(item),
		StartDate:  &start,
		EndDate:    &end,
		SourceKind: KindOnboarding,
		SourceID:   &sourceID,
		CreatedAt:  env.Now,
		UpdatedAt:  env.Now,
	}

	tasks := make([]models.Task, 0, len(item.Checklist))
	for _, c := range item.Checklist {
		due := today
		if c.DueDate != nil {
			due = *c.DueDate
		}
		assignee := c.AssignedTo
		if assignee == "" {
			assignee = item.Consultant
		}
		if assignee == "" {
			assignee = defaults.DefaultAssignee
		}
		status := models.TaskPending
		if c.Completed {
			status = models.TaskCompleted
		}
		tasks = append(tasks, models.Task{
			Title:        c.Title,
			Description:  fmt.Sprintf("Generated from onboarding: %s", item.Product),
			Status:       status,
			DueDate:      &due,
			AssignedTo:   assignee,
			AssigneeType: models.AssigneeConsultant,
			SubTasks:     []models.SubTask{},
			CreatedAt:    env.Now,
			UpdatedAt:    env.Now,
		})
	}

	return OnboardingPlan{
		Item:    done,
		Project: project,
		Tasks:   tasks,
		Events: []models.Event{env.event(models.EventOnboardingCompleted, KindOnboarding, item.ID, map[string]any{
			"client":  item.ClientName,
			"product": item.Product,
			"tasks":   len(tasks),
		})},
	}, nil
}

// ---- Lead -> Deal

type LeadConversionDefaults struct {
	ProductTitle string
	Owner        string
}

// PlanLeadConversion returns the new deal at the head of the pipeline.
func PlanLeadConversion(lead models.Lead, defaults LeadConversionDefaults, env Env) (models.Deal, models.Event) {
	leadID := lead.ID
	owner := defaults.Owner
	if owner == "" {
		owner = "A definir"
	}
	deal := models.Deal{
		LeadID:             &leadID,
		Title:              fmt.Sprintf("Oportunidade - %s", lead.Company),
		Company:            lead.Company,
		Owner:              owner,
		Stage:              models.DealStageLead,
		Value:              0,
		ProductInterest:    defaults.ProductTitle,
		AdditionalProducts: []string{},
		CreatedAt:          env.Now,
		UpdatedAt:          env.Now,
	}
	evt := env.event(models.EventLeadConverted, KindLead, lead.ID, map[string]any{"company": lead.Company})
	return deal, evt
}
