package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/catalog"
	"github.com/Skotchmaster/phenofarm/internal/events"
	"github.com/Skotchmaster/phenofarm/internal/models"
	"github.com/Skotchmaster/phenofarm/internal/repo"
	"github.com/Skotchmaster/phenofarm/internal/search"
	"github.com/Skotchmaster/phenofarm/internal/transport"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Engine *catalog.Engine
	Events events.Publisher
	Index  search.Indexer
}

type ListingQuery struct {
	Criteria catalog.Criteria
	Sort     catalog.SortOption
}

// Listing returns available products grouped by grower, narrowed and
// ordered for display.
func (s *CatalogService) Listing(ctx context.Context, q ListingQuery) ([]catalog.Group, error) {
	if err := s.Engine.Validate(q.Criteria); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	products, err := s.Repo.ListProducts(ctx, repo.ProductFilter{OnlyAvailable: true})
	if err != nil {
		return nil, err
	}

	filtered := s.Engine.Filter(models.CatalogViews(products), q.Criteria)
	return catalog.Arrange(catalog.GroupByGrower(filtered), q.Sort), nil
}

// Search asks the index first and falls back to the in-memory text match
// when no index is configured or it fails.
func (s *CatalogService) Search(ctx context.Context, q string, offset, limit int) (int64, []catalog.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, []catalog.Product{}, nil
	}

	res, err := s.Index.Search(ctx, q, offset, limit)
	if err == nil {
		products, err := s.Hydrate(ctx, res.IDs)
		if err != nil {
			return 0, nil, err
		}
		return res.Total, products, nil
	}
	if !errors.Is(err, search.ErrUnavailable) {
		logging.FromContext(ctx).Warn("search_index_error", "reason", "falling back to catalog filter", "error", err)
	}

	products, err := s.Repo.ListProducts(ctx, repo.ProductFilter{OnlyAvailable: true})
	if err != nil {
		return 0, nil, err
	}
	matched := s.Engine.Filter(models.CatalogViews(products), catalog.Criteria{SearchQuery: q})

	total := int64(len(matched))
	if offset >= len(matched) {
		return total, []catalog.Product{}, nil
	}
	end := min(offset+limit, len(matched))
	return total, matched[offset:end], nil
}

// Hydrate resolves ids in the order given, skipping unknown ones.
func (s *CatalogService) Hydrate(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p.CatalogView())
		}
	}
	return out, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, req transport.ProductRequest) (*models.Product, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price == nil {
		return nil, fmt.Errorf("%w: price required", ErrValidation)
	}
	if req.ProductType == nil || strings.TrimSpace(*req.ProductType) == "" {
		return nil, fmt.Errorf("%w: productType required", ErrValidation)
	}

	p := &models.Product{
		GrowerID:    actor.ID,
		GrowerName:  actor.Name,
		IsAvailable: true,
	}
	if err := s.apply(ctx, actor, p, req); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	created, err := s.Repo.GetProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, events.ProductCreated, created)
	return created, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, actor Actor, id uuid.UUID, req transport.ProductRequest) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	if !actor.Owns(p.GrowerID) {
		return nil, fmt.Errorf("%w: product %s belongs to another grower", ErrForbidden, id)
	}

	if err := s.apply(ctx, actor, p, req); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		return nil, err
	}

	updated, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, events.ProductUpdated, updated)
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return notFound(err, "product", id)
	}
	if !actor.Owns(p.GrowerID) {
		return fmt.Errorf("%w: product %s belongs to another grower", ErrForbidden, id)
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product", id)
	}

	l := logging.FromContext(ctx)
	if err := s.Index.DeleteProduct(ctx, id); err != nil {
		l.Warn("search_unindex_error", "product_id", id, "error", err)
	}
	if err := s.Events.PublishEvent(ctx, events.TopicProducts, id.String(), events.ProductEvent{
		Type:      events.ProductDeleted,
		ProductID: id,
		GrowerID:  p.GrowerID,
	}); err != nil {
		l.Warn("product_event_error", "type", events.ProductDeleted, "error", err)
	}
	return nil
}

// apply copies the set fields of req onto p. Relations are checked to
// belong to the same grower.
func (s *CatalogService) apply(ctx context.Context, actor Actor, p *models.Product, req transport.ProductRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return fmt.Errorf("%w: price cannot be negative", ErrValidation)
		}
		p.Price = *req.Price
	}
	if req.InventoryQty != nil {
		if *req.InventoryQty < 0 {
			return fmt.Errorf("%w: inventoryQty cannot be negative", ErrValidation)
		}
		p.InventoryQty = *req.InventoryQty
	}
	if req.ProductType != nil {
		p.ProductType = strings.ToLower(strings.TrimSpace(*req.ProductType))
	}
	if req.SubType != nil {
		p.SubType = *req.SubType
	}
	if req.Strain != nil {
		p.StrainLegacy = strings.TrimSpace(*req.Strain)
	}
	if err := inPercentRange("thc", req.THC); err != nil {
		return err
	}
	if err := inPercentRange("cbd", req.CBD); err != nil {
		return err
	}
	if req.THC != nil {
		p.THCLegacy = req.THC
	}
	if req.CBD != nil {
		p.CBDLegacy = req.CBD
	}
	if req.Unit != nil {
		p.Unit = *req.Unit
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}
	if req.Images != nil {
		p.Images = req.Images
	}

	if req.StrainID != nil {
		if *req.StrainID == uuid.Nil {
			p.StrainID, p.Strain = nil, nil
		} else {
			st, err := s.Repo.GetStrain(ctx, *req.StrainID)
			if err != nil {
				return fmt.Errorf("%w: strain %s", ErrValidation, *req.StrainID)
			}
			if !actor.Owns(st.GrowerID) {
				return fmt.Errorf("%w: strain %s belongs to another grower", ErrValidation, st.ID)
			}
			p.StrainID, p.Strain = &st.ID, nil
		}
	}
	if req.BatchID != nil {
		if *req.BatchID == uuid.Nil {
			p.BatchID, p.Batch = nil, nil
		} else {
			b, err := s.Repo.GetBatch(ctx, *req.BatchID)
			if err != nil {
				return fmt.Errorf("%w: batch %s", ErrValidation, *req.BatchID)
			}
			if !actor.Owns(b.GrowerID) {
				return fmt.Errorf("%w: batch %s belongs to another grower", ErrValidation, b.ID)
			}
			p.BatchID, p.Batch = &b.ID, nil
		}
	}
	return nil
}

func (s *CatalogService) announce(ctx context.Context, kind string, p *models.Product) {
	l := logging.FromContext(ctx)
	if err := s.Index.IndexProduct(ctx, p.CatalogView()); err != nil {
		l.Warn("search_index_error", "product_id", p.ID, "error", err)
	}
	if err := s.Events.PublishEvent(ctx, events.TopicProducts, p.ID.String(), events.ProductEvent{
		Type:         kind,
		ProductID:    p.ID,
		GrowerID:     p.GrowerID,
		Name:         p.Name,
		Price:        p.Price,
		InventoryQty: p.InventoryQty,
	}); err != nil {
		l.Warn("product_event_error", "type", kind, "error", err)
	}
}
