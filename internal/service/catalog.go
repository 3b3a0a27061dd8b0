package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type ProductIndexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
}

type ProductSearcher interface {
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type ProductInput struct {
	Name        string
	Description string
	CategoryID  *uuid.UUID
	Price       decimal.Decimal
	Stock       int
}

// CatalogService owns products. The search index is a copy kept up to date
// on a best effort basis; the database stays the source of truth.
type CatalogService struct {
	Repo   *repo.GormRepo
	Index  ProductIndexer
	Search ProductSearcher
	Events EventPublisher
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "product not found")
	}
	return p, err
}

func (s *CatalogService) List(ctx context.Context, page, size int) (*Page[models.Product], error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.GetProducts(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &Page[models.Product]{Items: items, Total: total, Page: page, Size: size}, nil
}

func validateProduct(p *models.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return newError(ErrValidation, "product name is required")
	case p.Price.IsNegative():
		return newError(ErrValidation, "price must not be negative")
	case p.Stock < 0:
		return newError(ErrValidation, "stock must not be negative")
	}
	return nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Price:       in.Price,
		Stock:       in.Stock,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, "product_created", p)
	return p, nil
}

func (s *CatalogService) Patch(ctx context.Context, id uuid.UUID, patch repo.ProductPatch) (*models.Product, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, newError(ErrValidation, "product name is required")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, newError(ErrValidation, "price must not be negative")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, newError(ErrValidation, "stock must not be negative")
	}

	p, err := s.Repo.PatchProduct(ctx, id, patch)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "product not found")
	}
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, "product_updated", p)
	return p, nil
}

func (s *CatalogService) afterWrite(ctx context.Context, kind string, p *models.Product) {
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("product_index_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, topicProductEvents, p.ID.String(), map[string]any{
		"type":      kind,
		"productID": p.ID,
		"price":     p.Price,
		"stock":     p.Stock,
	})
}

// SearchProducts runs a full text query against the index.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, page, size int) (*Page[models.Product], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newError(ErrValidation, "search query is required")
	}
	if s.Search == nil {
		return nil, newError(ErrNotFound, "search is not configured")
	}
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Search.Search(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	return &Page[models.Product]{Items: items, Total: total, Page: page, Size: size}, nil
}
