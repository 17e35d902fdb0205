package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/cart"
	"github.com/Skotchmaster/phenofarm/internal/repo"
)

// CartService feeds the per-owner cart store with authoritative product
// snapshots from the catalog.
type CartService struct {
	Store *cart.Store
	Repo  *repo.GormRepo
}

func (s *CartService) Get(ctx context.Context, actor Actor) (*cart.Cart, error) {
	return s.Store.Load(ctx, actor.Owner())
}

func (s *CartService) AddItem(ctx context.Context, actor Actor, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	p, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product", productID)
	}
	if !p.IsAvailable {
		return nil, fmt.Errorf("%w: product %s is not available", ErrValidation, productID)
	}

	return s.Store.AddItem(ctx, actor.Owner(), cart.Product{
		ID:           p.ID,
		Name:         p.Name,
		UnitPrice:    p.Price,
		InventoryQty: p.InventoryQty,
		Strain:       p.DisplayStrain(),
		Unit:         p.Unit,
		THCPercent:   p.DisplayTHC(),
	}, quantity, cart.Grower{ID: p.GrowerID, Name: p.GrowerName})
}

func (s *CartService) SetQuantity(ctx context.Context, actor Actor, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	return s.Store.SetQuantity(ctx, actor.Owner(), productID, quantity)
}

func (s *CartService) RemoveItem(ctx context.Context, actor Actor, productID uuid.UUID) (*cart.Cart, error) {
	return s.Store.RemoveItem(ctx, actor.Owner(), productID)
}

func (s *CartService) Clear(ctx context.Context, actor Actor) (*cart.Cart, error) {
	return s.Store.Clear(ctx, actor.Owner())
}
