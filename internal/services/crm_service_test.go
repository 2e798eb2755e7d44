package services

import (
	"context"
	"errors"
	"testing"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
	"potencialize/internal/workflow"
)

func TestLeadConvertOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	leads := NewLeadService(f.deps, workflow.LeadConversionDefaults{ProductTitle: "Diagnóstico", Owner: "Caio"})

	lead := &models.Lead{Name: "Marta", Company: "Oficina Zeta", Email: "marta@zeta.com.br"}
	if err := leads.Create(ctx, f.commercial, lead); err != nil {
		t.Fatalf("Create: %v", err)
	}
	deal, err := leads.Convert(ctx, f.commercial, lead.ID)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if deal.Stage != models.DealStageLead || deal.Company != "Oficina Zeta" || deal.LeadID == nil || *deal.LeadID != lead.ID {
		t.Fatalf("unexpected deal %+v", deal)
	}
	stored, _ := leads.Get(ctx, f.commercial, lead.ID)
	if stored.Status != models.LeadNew {
		t.Fatalf("conversion must not touch the lead status, got %s", stored.Status)
	}
	if got := len(f.pub.ofType(models.EventLeadConverted)); got != 1 {
		t.Fatalf("lead.converted events = %d", got)
	}

	if _, err := leads.Convert(ctx, f.commercial, lead.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second conversion: want conflict, got %v", err)
	}
	deals, _ := f.store.Repos().Deals.List(ctx)
	if len(deals) != 1 {
		t.Fatalf("deals = %d, want 1", len(deals))
	}
}

func TestLeadConvertForbiddenWithoutEditCRM(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := &models.Lead{Name: "Marta", Company: "Oficina Zeta", Status: models.LeadNew}
	if err := f.store.Repos().Leads.Create(ctx, lead); err != nil {
		t.Fatal(err)
	}
	_, err := NewLeadService(f.deps, workflow.LeadConversionDefaults{}).Convert(ctx, f.assessor, lead.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
	deals, _ := f.store.Repos().Deals.List(ctx)
	if len(deals) != 0 {
		t.Fatalf("deal created despite missing permission")
	}
}

func seedCatalogue(t *testing.T, f *fixture) {
	t.Helper()
	products := NewProductService(f.deps)
	for _, p := range []models.Product{
		{Title: "Diagnóstico", Price: 1500000, Category: "consultoria"},
		{Title: "Assessoria Financeira", Price: 3000000, Category: "consultoria"},
		{Title: "Potencialize Club", Price: 480000, Category: "club"},
	} {
		p := p
		if err := products.Create(context.Background(), f.admin, &p); err != nil {
			t.Fatalf("create product: %v", err)
		}
	}
}

func TestDealSetProductsKeepsValueInStep(t *testing.T) {
	f := newFixture(t)
	seedCatalogue(t, f)
	ctx := context.Background()
	deals := NewDealService(f.deps, f.cascade(nil))

	deal := &models.Deal{Title: "Zeta", Company: "Oficina Zeta"}
	if err := deals.Create(ctx, f.commercial, deal); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := deals.SetProducts(ctx, f.commercial, deal.ID, []string{"Diagnóstico", "Assessoria Financeira"}, 0)
	if err != nil {
		t.Fatalf("SetProducts: %v", err)
	}
	if got.Value != 4500000 || got.ProductInterest != "Diagnóstico" {
		t.Fatalf("unexpected deal %+v", got)
	}

	got, err = deals.SetProducts(ctx, f.commercial, deal.ID, []string{"Assessoria Financeira"}, got.Version)
	if err != nil {
		t.Fatalf("SetProducts: %v", err)
	}
	if got.Value != 3000000 || got.ProductInterest != "Assessoria Financeira" || len(got.AdditionalProducts) != 0 {
		t.Fatalf("unexpected deal after removal %+v", got)
	}

	if _, err := deals.SetProducts(ctx, f.commercial, deal.ID, nil, 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty list: want validation, got %v", err)
	}
	if _, err := deals.SetProducts(ctx, f.commercial, deal.ID, []string{"Inexistente"}, 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown product: want validation, got %v", err)
	}
	if _, err := deals.SetProducts(ctx, f.commercial, deal.ID, []string{"Diagnóstico"}, 1); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale version: want conflict, got %v", err)
	}
}

func TestDealStageChangeIsUnrestricted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deals := NewDealService(f.deps, f.cascade(nil))
	deal := &models.Deal{Title: "Zeta", Company: "Oficina Zeta"}
	if err := deals.Create(ctx, f.commercial, deal); err != nil {
		t.Fatal(err)
	}
	for _, to := range []models.DealStage{models.DealStageNegotiation, models.DealStageContact, models.DealStageLost, models.DealStageProposal} {
		res, err := deals.ChangeStage(ctx, f.commercial, deal.ID, to, 0)
		if err != nil {
			t.Fatalf("-> %s: %v", to, err)
		}
		if res.Deal.Stage != to {
			t.Fatalf("stage = %s, want %s", res.Deal.Stage, to)
		}
	}
	if _, err := deals.ChangeStage(ctx, f.commercial, deal.ID, "Fechado", 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown stage: want validation, got %v", err)
	}
}
