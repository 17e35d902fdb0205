// Package cart implements the buyer's cart: an explicitly owned store
// persisted per owner in a key-value slot, with totals recomputed on every
// mutation.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/phenofarm/internal/inventory"
	"github.com/Skotchmaster/phenofarm/internal/kv"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

const KeyPrefix = "phenofarm-cart"

var (
	ErrValidation   = errors.New("validation")
	ErrItemNotFound = errors.New("cart item not found")
)

func Key(owner string) string {
	return KeyPrefix + ":" + owner
}

type Store struct {
	kv       kv.Store
	notifier Notifier
	taxRate  decimal.Decimal

	mu    sync.Mutex
	locks map[string]*ownerLock
}

// ownerLock is dropped from the map once no caller holds or waits on it.
type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore(store kv.Store, taxRate decimal.Decimal, notifier Notifier) *Store {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Store{
		kv:       store,
		notifier: notifier,
		taxRate:  taxRate,
		locks:    make(map[string]*ownerLock),
	}
}

func (s *Store) TaxRate() decimal.Decimal { return s.taxRate }

func (s *Store) lock(owner string) func() {
	s.mu.Lock()
	l, ok := s.locks[owner]
	if !ok {
		l = &ownerLock{}
		s.locks[owner] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, owner)
		}
		s.mu.Unlock()
	}
}

// Load returns the owner's cart. A missing or unreadable slot is an empty
// cart; only storage failures are reported.
func (s *Store) Load(ctx context.Context, owner string) (*Cart, error) {
	raw, err := s.kv.Get(ctx, Key(owner))
	if errors.Is(err, kv.ErrNotFound) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	c := Empty()
	if err := json.Unmarshal(raw, c); err != nil {
		logging.FromContext(ctx).Warn("cart_corrupt_reset", "owner", owner, "error", err)
		return Empty(), nil
	}
	c.sanitize()
	c.Recalculate(s.taxRate)
	return c, nil
}

func (s *Store) AddItem(ctx context.Context, owner string, p Product, quantity int, g Grower) (*Cart, error) {
	if p.ID == uuid.Nil {
		return nil, fmt.Errorf("product id required: %w", ErrValidation)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}

	return s.mutate(ctx, owner, func(c *Cart) error {
		i := c.index(p.ID)
		current := 0
		if i >= 0 {
			current = c.Items[i].Quantity
		}
		if err := inventory.Check(current, quantity, p.InventoryQty); err != nil {
			return err
		}

		if i >= 0 {
			c.Items[i].Quantity += quantity
			c.Items[i].MaxQty = p.InventoryQty
			return nil
		}
		c.Items = append(c.Items, Item{
			ProductID:  p.ID,
			Name:       p.Name,
			GrowerID:   g.ID,
			GrowerName: g.Name,
			UnitPrice:  p.UnitPrice,
			Quantity:   quantity,
			MaxQty:     p.InventoryQty,
			Strain:     p.Strain,
			Unit:       p.Unit,
			THCPercent: p.THCPercent,
		})
		return nil
	})
}

func (s *Store) RemoveItem(ctx context.Context, owner string, productID uuid.UUID) (*Cart, error) {
	return s.mutate(ctx, owner, func(c *Cart) error {
		i := c.index(productID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
}

// SetQuantity is the stepper path: the value is clamped into [1, maxQty]
// instead of being rejected.
func (s *Store) SetQuantity(ctx context.Context, owner string, productID uuid.UUID, quantity int) (*Cart, error) {
	return s.mutate(ctx, owner, func(c *Cart) error {
		i := c.index(productID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items[i].Quantity = inventory.Clamp(quantity, c.Items[i].MaxQty)
		return nil
	})
}

func (s *Store) Clear(ctx context.Context, owner string) (*Cart, error) {
	return s.mutate(ctx, owner, func(c *Cart) error {
		c.Items = []Item{}
		return nil
	})
}

// Drain hands the owner's cart to fn and empties it once fn succeeds, all
// under the owner's lock. When fn fails the cart is left as it was.
func (s *Store) Drain(ctx context.Context, owner string, fn func(*Cart) error) error {
	_, err := s.mutate(ctx, owner, func(c *Cart) error {
		if err := fn(c); err != nil {
			return err
		}
		c.Items = []Item{}
		return nil
	})
	return err
}

// mutate loads, applies fn, recomputes and persists under the owner's lock.
// When fn fails nothing is written.
func (s *Store) mutate(ctx context.Context, owner string, fn func(*Cart) error) (*Cart, error) {
	unlock := s.lock(owner)
	defer unlock()

	c, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return c, err
	}
	c.Recalculate(s.taxRate)

	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, Key(owner), raw); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.notifier.CartChanged(ctx, owner, c)
	return c, nil
}
