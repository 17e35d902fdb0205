package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/phenofarm/internal/cart"
	"github.com/Skotchmaster/phenofarm/internal/events"
	"github.com/Skotchmaster/phenofarm/internal/inventory"
	"github.com/Skotchmaster/phenofarm/internal/models"
	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/internal/order"
	"github.com/Skotchmaster/phenofarm/internal/pricing"
	"github.com/Skotchmaster/phenofarm/internal/repo"
	"github.com/Skotchmaster/phenofarm/internal/transport"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

const maxLineQuantity = 9999

type OrderService struct {
	Repo        *repo.GormRepo
	Carts       *cart.Store
	Rates       pricing.Rates
	ShippingFee money.Cents
	Policy      order.Policy
	Events      events.Publisher
	Now         func() time.Time
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func orderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("PF-%s-%s", at.Format("20060102"), strings.ToUpper(id.String()[:8]))
}

func newOrder(grower, dispensary Actor, rate decimal.Decimal, at time.Time) *models.Order {
	id := uuid.New()
	return &models.Order{
		ID:             id,
		OrderNumber:    orderNumber(id, at),
		GrowerID:       grower.ID,
		GrowerName:     grower.Name,
		DispensaryID:   dispensary.ID,
		DispensaryName: dispensary.Name,
		Status:         order.StatusPending,
		TaxRate:        rate,
	}
}

// recalculate derives line totals and order totals from the items, the
// shipping fee and the rate stored on the order.
func recalculate(o *models.Order) {
	lines := make([]pricing.Line, len(o.Items))
	for i := range o.Items {
		o.Items[i].TotalPrice = pricing.LineTotal(o.Items[i].Quantity, o.Items[i].UnitPrice)
		lines[i] = pricing.Line{Quantity: o.Items[i].Quantity, UnitPrice: o.Items[i].UnitPrice}
	}
	t := pricing.ComputeTotals(lines, o.ShippingFee, o.TaxRate)
	o.Subtotal = t.Subtotal
	o.Tax = t.Tax
	o.TotalAmount = t.Total
}

func checkQuantity(q int) error {
	if q < 1 || q > maxLineQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, maxLineQuantity)
	}
	return nil
}

// Checkout turns the dispensary's cart into one pending order per grower
// at the catalog checkout rate and empties the cart. Stock is re-checked
// against current inventory; it is committed when an order is confirmed.
// The cart stays locked from read to clear so concurrent adds are not lost.
func (s *OrderService) Checkout(ctx context.Context, actor Actor, req transport.CheckoutRequest) ([]models.Order, error) {
	l := logging.FromContext(ctx)

	var (
		orders    []*models.Order
		committed bool
	)
	err := s.Carts.Drain(ctx, actor.Owner(), func(c *cart.Cart) error {
		built, err := s.checkoutOrders(ctx, actor, c, req)
		if err != nil {
			return err
		}
		if err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
			for _, o := range built {
				if err := tx.CreateOrder(ctx, o); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
		orders, committed = built, true
		return nil
	})
	if err != nil {
		if !committed {
			return nil, err
		}
		l.Warn("checkout_cart_clear_error", "error", err)
	}

	out := make([]models.Order, len(orders))
	for i, o := range orders {
		s.publish(ctx, events.OrderCreated, o, "")
		out[i] = *o
	}
	l.Info("checkout_completed", "orders", len(out))
	return out, nil
}

func (s *OrderService) checkoutOrders(ctx context.Context, actor Actor, c *cart.Cart, req transport.CheckoutRequest) ([]*models.Order, error) {
	if len(c.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	rate, err := s.Rates.For(pricing.EntryCatalogCheckout)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	at := s.now()
	var orders []*models.Order
	for _, g := range c.ByGrower() {
		o := newOrder(Actor{ID: g.GrowerID, Name: g.GrowerName}, actor, rate, at)
		o.ShippingFee = s.ShippingFee
		o.Notes = req.Notes

		for _, it := range g.Items {
			p, ok := byID[it.ProductID]
			if !ok || !p.IsAvailable {
				return nil, fmt.Errorf("%w: product %s is no longer available", ErrConflict, it.ProductID)
			}
			if err := inventory.Check(0, it.Quantity, p.InventoryQty); err != nil {
				return nil, fmt.Errorf("%s: %w", p.Name, err)
			}
			o.Items = append(o.Items, models.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    it.Quantity,
				UnitPrice:   p.Price,
			})
		}
		recalculate(o)
		orders = append(orders, o)
	}
	return orders, nil
}

// CreateManual records an order a grower enters on a dispensary's behalf
// at the grower manual entry rate.
func (s *OrderService) CreateManual(ctx context.Context, actor Actor, req transport.ManualOrderRequest) (*models.Order, error) {
	if req.DispensaryID == uuid.Nil {
		return nil, fmt.Errorf("%w: dispensaryId required", ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	if req.ShippingFee < 0 {
		return nil, fmt.Errorf("%w: shippingFee cannot be negative", ErrValidation)
	}

	rate, err := s.Rates.For(pricing.EntryGrowerManualEntry)
	if err != nil {
		return nil, err
	}

	o := newOrder(actor, Actor{ID: req.DispensaryID, Name: req.DispensaryName}, rate, s.now())
	o.ShippingFee = req.ShippingFee
	o.Notes = req.Notes

	items, err := buildItems(ctx, s.Repo, actor, req.Items)
	if err != nil {
		return nil, err
	}
	o.Items = items
	recalculate(o)

	if err := s.Repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderCreated, o, "")
	return o, nil
}

func buildItems(ctx context.Context, r *repo.GormRepo, actor Actor, in []transport.OrderItemInput) ([]models.OrderItem, error) {
	ids := make([]uuid.UUID, len(in))
	for i, it := range in {
		if it.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: productId required", ErrValidation)
		}
		if err := checkQuantity(it.Quantity); err != nil {
			return nil, err
		}
		if it.UnitPrice != nil && *it.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: unitPrice cannot be negative", ErrValidation)
		}
		ids[i] = it.ProductID
	}

	products, err := r.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(in))
	for _, it := range in {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", ErrValidation, it.ProductID)
		}
		if !actor.Owns(p.GrowerID) {
			return nil, fmt.Errorf("%w: product %s belongs to another grower", ErrValidation, p.ID)
		}
		price := p.Price
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		items = append(items, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
	}
	return items, nil
}

// visible reports whether the actor is a party to the order.
func visible(actor Actor, o *models.Order) bool {
	return actor.IsAdmin() || o.GrowerID == actor.ID || o.DispensaryID == actor.ID
}

func (s *OrderService) List(ctx context.Context, actor Actor, status string, limit, offset int) (int64, []models.Order, error) {
	var f repo.OrderFilter
	switch {
	case actor.IsAdmin():
	case actor.IsGrower():
		f.GrowerID = &actor.ID
	default:
		f.DispensaryID = &actor.ID
	}
	if status != "" {
		st, err := order.ParseStatus(status)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		f.Status = st
	}
	return s.Repo.ListOrders(ctx, f, limit, offset)
}

func (s *OrderService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	if !visible(actor, o) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return o, nil
}

// Update is the grower edit form: items, fee, notes and status in one
// transaction, totals recomputed.
func (s *OrderService) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateOrderRequest) (*models.Order, error) {
	var (
		updated *models.Order
		prev    order.Status
	)

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.GetOrder(ctx, id)
		if err != nil {
			return notFound(err, "order", id)
		}
		if !actor.Owns(o.GrowerID) {
			return fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		prev = o.Status

		if req.Items != nil {
			if o.Status.Terminal() {
				return fmt.Errorf("%w: order %s is %s", ErrConflict, o.OrderNumber, o.Status)
			}
			if len(*req.Items) == 0 {
				return fmt.Errorf("%w: items required", ErrValidation)
			}
			items, err := buildItems(ctx, tx, Actor{ID: o.GrowerID, Role: actor.Role}, *req.Items)
			if err != nil {
				return err
			}
			if o.StockCommitted {
				if err := tx.ReleaseStock(ctx, o.Items); err != nil {
					return err
				}
				if err := tx.CommitStock(ctx, items); err != nil {
					return err
				}
			}
			if err := tx.ReplaceOrderItems(ctx, o.ID, items); err != nil {
				return err
			}
			o.Items = items
		}
		if req.ShippingFee != nil {
			if *req.ShippingFee < 0 {
				return fmt.Errorf("%w: shippingFee cannot be negative", ErrValidation)
			}
			o.ShippingFee = *req.ShippingFee
		}
		if req.Notes != nil {
			o.Notes = req.Notes
		}
		recalculate(o)

		if req.Status != nil {
			to, err := order.ParseStatus(*req.Status)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if err := s.Policy.Check(o.Status, to); err != nil {
				return err
			}
			if err := s.enter(ctx, tx, o, to); err != nil {
				return err
			}
		}

		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderUpdated, updated, "")
	if updated.Status != prev {
		s.publish(ctx, events.OrderStatusChanged, updated, prev)
	}
	return updated, nil
}

// BatchStatus applies one target status to every listed order. Either all
// orders are written or none are.
func (s *OrderService) BatchStatus(ctx context.Context, actor Actor, req transport.BatchStatusRequest) (int, error) {
	l := logging.FromContext(ctx)

	target, err := order.ResolveTarget(req.Status, req.Action)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	ids := dedupe(req.OrderIDs)
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: orderIds required", ErrValidation)
	}

	type change struct {
		o    models.Order
		prev order.Status
	}
	var changes []change

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		orders, err := tx.GetOrders(ctx, ids)
		if err != nil {
			return err
		}
		if len(orders) != len(ids) {
			return fmt.Errorf("%w: %d of %d orders found", ErrNotFound, len(orders), len(ids))
		}

		for i := range orders {
			o := &orders[i]
			if !actor.Owns(o.GrowerID) {
				return fmt.Errorf("%w: order %s", ErrNotFound, o.ID)
			}
			prev := o.Status
			if err := s.Policy.Check(prev, target); err != nil {
				return fmt.Errorf("order %s: %w", o.OrderNumber, err)
			}
			if prev != target && !order.CanTransition(prev, target) {
				l.Warn("order_transition_violation", "order_id", o.ID, "from", prev, "to", target, "policy", s.Policy.String())
			}
			if err := s.enter(ctx, tx, o, target); err != nil {
				return fmt.Errorf("order %s: %w", o.OrderNumber, err)
			}
			if err := tx.SaveOrder(ctx, o); err != nil {
				return err
			}
			changes = append(changes, change{o: *o, prev: prev})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, c := range changes {
		if c.o.Status != c.prev {
			s.publish(ctx, events.OrderStatusChanged, &c.o, c.prev)
		}
	}
	l.Info("batch_status_applied", "status", target, "updated_count", len(changes))
	return len(changes), nil
}

// enter moves the order into status to and applies the side effects of
// arriving there. Stock is held while the order is past PENDING and not
// CANCELLED. Re-entering the current status changes nothing, so stamps
// keep the time the order first arrived.
func (s *OrderService) enter(ctx context.Context, tx *repo.GormRepo, o *models.Order, to order.Status) error {
	if o.Status == to {
		return nil
	}
	now := s.now()

	holds := to != order.StatusPending && to != order.StatusCancelled
	switch {
	case holds && !o.StockCommitted:
		if err := tx.CommitStock(ctx, o.Items); err != nil {
			if errors.Is(err, inventory.ErrInsufficientStock) {
				return fmt.Errorf("%w: %w", ErrConflict, err)
			}
			return err
		}
		o.StockCommitted = true
	case !holds && o.StockCommitted:
		if err := tx.ReleaseStock(ctx, o.Items); err != nil {
			return err
		}
		o.StockCommitted = false
	}

	switch to {
	case order.StatusShipped:
		o.ShippedAt = &now
	case order.StatusDelivered:
		o.DeliveredAt = &now
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	}
	o.Status = to
	return nil
}

func (s *OrderService) publish(ctx context.Context, kind string, o *models.Order, prev order.Status) {
	if err := s.Events.PublishEvent(ctx, events.TopicOrders, o.ID.String(), events.OrderEvent{
		Type:         kind,
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		GrowerID:     o.GrowerID,
		DispensaryID: o.DispensaryID,
		Status:       string(o.Status),
		PrevStatus:   string(prev),
		TotalAmount:  o.TotalAmount,
		At:           s.now(),
	}); err != nil {
		logging.FromContext(ctx).Warn("order_event_error", "type", kind, "order_id", o.ID, "error", err)
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
