package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"potencialize/internal/ai"
	"potencialize/internal/apperr"
	"potencialize/internal/models"
	"potencialize/internal/pdf"
)

type fakeGenerator struct {
	got pdf.ProposalData
}

func (g *fakeGenerator) GenerateProposal(d pdf.ProposalData) (string, error) {
	g.got = d
	return "/proposta-teste.pdf", nil
}

func TestProposalGenerateAdvancesStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := &fakeGenerator{}
	svc := NewProposalService(f.deps, ai.NewAssistant(nil), gen)

	deal := &models.Deal{Title: "Zeta", Company: "Oficina Zeta", Stage: models.DealStageContact,
		ProductInterest: "Diagnóstico", Value: 1500000}
	if err := f.store.Repos().Deals.Create(ctx, deal); err != nil {
		t.Fatal(err)
	}

	p, err := svc.Generate(ctx, f.commercial, deal.ID, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if p.Document != "/proposta-teste.pdf" || p.Deal.Stage != models.DealStageProposal {
		t.Fatalf("unexpected proposal %+v", p)
	}
	if !strings.Contains(p.Text, "Oficina Zeta") || gen.got.Body != p.Text || gen.got.Value != 1500000 {
		t.Fatalf("generator got %+v", gen.got)
	}

	// later stages are left where they are
	later := &models.Deal{Title: "Y", Company: "Y", Stage: models.DealStageNegotiation, ProductInterest: "Diagnóstico"}
	if err := f.store.Repos().Deals.Create(ctx, later); err != nil {
		t.Fatal(err)
	}
	p, err = svc.Generate(ctx, f.commercial, later.ID, "escopo")
	if err != nil || p.Deal.Stage != models.DealStageNegotiation {
		t.Fatalf("Generate later = %+v, %v", p, err)
	}
}

func TestProposalNeedsProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProposalService(f.deps, ai.NewAssistant(nil), &fakeGenerator{})
	deal := &models.Deal{Title: "Vazio", Company: "Oficina Zeta"}
	if err := f.store.Repos().Deals.Create(ctx, deal); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Generate(ctx, f.commercial, deal.ID, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want validation, got %v", err)
	}
	if _, err := svc.Generate(ctx, f.assessor, deal.ID, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
}
