package services

import (
	"context"
	"strings"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/models"
)

type ProductService struct {
	deps Deps
}

func NewProductService(deps Deps) *ProductService {
	return &ProductService{deps: deps.withDefaults()}
}

func (s *ProductService) List(ctx context.Context, actor *models.User) ([]models.Product, error) {
	if err := s.deps.authorize(actor, authz.ViewCRM); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Products.List(ctx)
}

func (s *ProductService) Create(ctx context.Context, actor *models.User, p *models.Product) error {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return err
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return apperr.Validation("product title is required")
	}
	if p.Price < 0 {
		return apperr.Validation("product price cannot be negative")
	}
	return s.deps.Store.Repos().Products.Create(ctx, p)
}

func (s *ProductService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := s.deps.authorize(actor, authz.EditCRM); err != nil {
		return err
	}
	return s.deps.Store.Repos().Products.Delete(ctx, id)
}
