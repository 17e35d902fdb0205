package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/phenofarm/internal/events"
	"github.com/Skotchmaster/phenofarm/internal/inventory"
	"github.com/Skotchmaster/phenofarm/internal/models"
	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/internal/order"
	"github.com/Skotchmaster/phenofarm/internal/transport"
)

func TestCheckout_OneOrderPerGrowerAndClearsCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a := f.product(t, f.grower, "Blue Dream", 1000, 10, nil)
	b := f.product(t, f.grower, "Pre-roll", 500, 10, nil)
	c := f.product(t, f.grower2, "Gummies", 2000, 10, nil)

	for _, add := range []struct {
		id  uuid.UUID
		qty int
	}{{a.ID, 2}, {c.ID, 1}, {b.ID, 1}} {
		_, err := f.carts.AddItem(ctx, f.dispensary, add.id, add.qty)
		require.NoError(t, err)
	}

	orders, err := f.orders.Checkout(ctx, f.dispensary, transport.CheckoutRequest{})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, f.grower.ID, first.GrowerID)
	assert.Equal(t, order.StatusPending, first.Status)
	assert.Equal(t, money.Cents(2500), first.Subtotal)
	assert.Equal(t, money.Cents(250), first.Tax)
	assert.Equal(t, money.Cents(250), first.ShippingFee)
	assert.Equal(t, money.Cents(3000), first.TotalAmount)
	assert.True(t, first.TaxRate.Equal(decimal.RequireFromString("0.10")))
	assert.Len(t, first.Items, 2)

	assert.Equal(t, f.grower2.ID, orders[1].GrowerID)

	cartAfter, err := f.carts.Get(ctx, f.dispensary)
	require.NoError(t, err)
	assert.Empty(t, cartAfter.Items)

	assert.Equal(t, 10, f.stock(t, a.ID), "stock is held on confirmation, not checkout")
	assert.Len(t, f.events.Topic(events.TopicOrders), 2)
}

func TestCheckout_EmptyCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.orders.Checkout(context.Background(), f.dispensary, transport.CheckoutRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckout_RevalidatesStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, f.grower, "Blue Dream", 1000, 5, nil)
	_, err := f.carts.AddItem(ctx, f.dispensary, p.ID, 4)
	require.NoError(t, err)

	p.InventoryQty = 2
	require.NoError(t, f.repo.SaveProduct(ctx, p))

	_, err = f.orders.Checkout(ctx, f.dispensary, transport.CheckoutRequest{})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	c, err := f.carts.Get(ctx, f.dispensary)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1, "failed checkout keeps the cart")
}

func TestCreateManual_UsesGrowerRate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a := f.product(t, f.grower, "Flower", 1000, 10, nil)
	b := f.product(t, f.grower, "Vape", 500, 10, nil)

	o, err := f.orders.CreateManual(ctx, f.grower, transport.ManualOrderRequest{
		DispensaryID: f.dispensary.ID,
		Items: []transport.OrderItemInput{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 1},
		},
		ShippingFee: 250,
	})
	require.NoError(t, err)

	assert.Equal(t, money.Cents(2500), o.Subtotal)
	assert.Equal(t, money.Cents(150), o.Tax)
	assert.Equal(t, money.Cents(2900), o.TotalAmount)
	assert.Contains(t, o.OrderNumber, "PF-20260504-")
}

func TestCreateManual_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	mine := f.product(t, f.grower, "Flower", 1000, 10, nil)
	theirs := f.product(t, f.grower2, "Other", 1000, 10, nil)

	tests := map[string]transport.ManualOrderRequest{
		"no dispensary":     {Items: []transport.OrderItemInput{{ProductID: mine.ID, Quantity: 1}}},
		"no items":          {DispensaryID: f.dispensary.ID},
		"zero quantity":     {DispensaryID: f.dispensary.ID, Items: []transport.OrderItemInput{{ProductID: mine.ID}}},
		"too many":          {DispensaryID: f.dispensary.ID, Items: []transport.OrderItemInput{{ProductID: mine.ID, Quantity: 10000}}},
		"foreign product":   {DispensaryID: f.dispensary.ID, Items: []transport.OrderItemInput{{ProductID: theirs.ID, Quantity: 1}}},
		"unknown product":   {DispensaryID: f.dispensary.ID, Items: []transport.OrderItemInput{{ProductID: uuid.New(), Quantity: 1}}},
		"negative shipping": {DispensaryID: f.dispensary.ID, ShippingFee: -1, Items: []transport.OrderItemInput{{ProductID: mine.ID, Quantity: 1}}},
	}
	for name, req := range tests {
		_, err := f.orders.CreateManual(ctx, f.grower, req)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func manualOrder(t *testing.T, f *fixture, items ...transport.OrderItemInput) *models.Order {
	t.Helper()
	o, err := f.orders.CreateManual(context.Background(), f.grower, transport.ManualOrderRequest{
		DispensaryID: f.dispensary.ID,
		Items:        items,
	})
	require.NoError(t, err)
	return o
}

func TestUpdate_StatusSideEffects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 5, nil)
	o := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 3})

	set := func(s string) *models.Order {
		t.Helper()
		got, err := f.orders.Update(ctx, f.grower, o.ID, transport.UpdateOrderRequest{Status: &s})
		require.NoError(t, err)
		return got
	}

	got := set("CONFIRMED")
	assert.Equal(t, 2, f.stock(t, p.ID))
	assert.True(t, got.StockCommitted)

	got = set("SHIPPED")
	require.NotNil(t, got.ShippedAt)
	assert.Equal(t, fixedNow, *got.ShippedAt)
	assert.Equal(t, 2, f.stock(t, p.ID), "stock is committed once")

	got = set("CANCELLED")
	assert.Equal(t, 5, f.stock(t, p.ID))
	assert.False(t, got.StockCommitted)

	got = set("DELIVERED")
	require.NotNil(t, got.DeliveredAt)
	assert.Equal(t, 2, f.stock(t, p.ID), "relaxed policy re-opens and commits again")

	changes := 0
	for _, m := range f.events.Topic(events.TopicOrders) {
		if m.Event.(events.OrderEvent).Type == events.OrderStatusChanged {
			changes++
		}
	}
	assert.Equal(t, 4, changes)
}

func TestSameStatusKeepsTimestamps(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 10, nil)
	shipped := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})
	delivered := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})

	for _, step := range []struct {
		id uuid.UUID
		to string
	}{{shipped.ID, "SHIPPED"}, {delivered.ID, "SHIPPED"}, {delivered.ID, "DELIVERED"}} {
		to := step.to
		_, err := f.orders.Update(ctx, f.grower, step.id, transport.UpdateOrderRequest{Status: &to})
		require.NoError(t, err)
	}

	later := fixedNow.Add(72 * time.Hour)
	f.orders.Now = func() time.Time { return later }

	status, notes := "SHIPPED", "tracking added"
	got, err := f.orders.Update(ctx, f.grower, shipped.ID, transport.UpdateOrderRequest{Status: &status, Notes: &notes})
	require.NoError(t, err)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, fixedNow.Equal(*got.ShippedAt), "shippedAt moved to %s", got.ShippedAt)

	n, err := f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{
		OrderIDs: []uuid.UUID{shipped.ID},
		Action:   "ship",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{
		OrderIDs: []uuid.UUID{delivered.ID},
		Action:   "deliver",
	})
	require.NoError(t, err)

	s, err := f.orders.Get(ctx, f.grower, shipped.ID)
	require.NoError(t, err)
	require.NotNil(t, s.ShippedAt)
	assert.True(t, fixedNow.Equal(*s.ShippedAt))
	assert.Equal(t, "tracking added", *s.Notes)

	d, err := f.orders.Get(ctx, f.grower, delivered.ID)
	require.NoError(t, err)
	require.NotNil(t, d.DeliveredAt)
	assert.True(t, fixedNow.Equal(*d.DeliveredAt))
	assert.Equal(t, 8, f.stock(t, p.ID), "stock is not committed twice")
}

func TestUpdate_ConfirmWithoutStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 1, nil)
	o := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 2})

	status := "CONFIRMED"
	_, err := f.orders.Update(ctx, f.grower, o.ID, transport.UpdateOrderRequest{Status: &status})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := f.orders.Get(ctx, f.grower, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Equal(t, 1, f.stock(t, p.ID))
}

func TestUpdate_ItemsAndFeeRecomputeTotals(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a := f.product(t, f.grower, "Flower", 1000, 10, nil)
	o := manualOrder(t, f, transport.OrderItemInput{ProductID: a.ID, Quantity: 1})

	price := money.Cents(900)
	fee := money.Cents(500)
	items := []transport.OrderItemInput{{ProductID: a.ID, Quantity: 4, UnitPrice: &price}}
	got, err := f.orders.Update(ctx, f.grower, o.ID, transport.UpdateOrderRequest{Items: &items, ShippingFee: &fee})
	require.NoError(t, err)

	assert.Equal(t, money.Cents(3600), got.Subtotal)
	assert.Equal(t, money.Cents(216), got.Tax)
	assert.Equal(t, money.Cents(4316), got.TotalAmount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, money.Cents(3600), got.Items[0].TotalPrice)

	stored, err := f.orders.Get(ctx, f.grower, o.ID)
	require.NoError(t, err)
	assert.Equal(t, got.TotalAmount, stored.TotalAmount)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 4, stored.Items[0].Quantity)
}

func TestUpdate_OtherGrowerCannotSeeOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	p := f.product(t, f.grower, "Flower", 1000, 10, nil)
	o := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})

	notes := "x"
	_, err := f.orders.Update(context.Background(), f.grower2, o.ID, transport.UpdateOrderRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.orders.Get(context.Background(), f.dispensary, o.ID)
	assert.NoError(t, err)
}

func TestUpdate_StrictPolicyRejectsBackwardMove(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.orders.Policy = order.Strict
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 10, nil)
	o := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})

	shipped := "SHIPPED"
	_, err := f.orders.Update(ctx, f.grower, o.ID, transport.UpdateOrderRequest{Status: &shipped})
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestBatchStatus_DeliverMixedStates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 100, nil)
	var ids []uuid.UUID
	for _, st := range []string{"", "CONFIRMED", "PROCESSING", "SHIPPED"} {
		o := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})
		if st != "" {
			st := st
			_, err := f.orders.Update(ctx, f.grower, o.ID, transport.UpdateOrderRequest{Status: &st})
			require.NoError(t, err)
		}
		ids = append(ids, o.ID)
	}

	n, err := f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{OrderIDs: ids, Action: "deliver"})
	require.NoError(t, err)
	assert.Equal(t, len(ids), n)

	for _, id := range ids {
		o, err := f.orders.Get(ctx, f.grower, id)
		require.NoError(t, err)
		assert.Equal(t, order.StatusDelivered, o.Status)
		assert.NotNil(t, o.DeliveredAt)
	}
	assert.Equal(t, 96, f.stock(t, p.ID))
}

func TestBatchStatus_IsAtomic(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	plenty := f.product(t, f.grower, "Flower", 1000, 100, nil)
	scarce := f.product(t, f.grower, "Rare", 1000, 1, nil)
	ok := manualOrder(t, f, transport.OrderItemInput{ProductID: plenty.ID, Quantity: 5})
	short := manualOrder(t, f, transport.OrderItemInput{ProductID: scarce.ID, Quantity: 2})

	_, err := f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{
		OrderIDs: []uuid.UUID{ok.ID, short.ID},
		Status:   "CONFIRMED",
	})
	require.ErrorIs(t, err, ErrConflict)

	got, err := f.orders.Get(ctx, f.grower, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Equal(t, 100, f.stock(t, plenty.ID))
}

func TestBatchStatus_RelaxedDeliverStillNeedsStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 3, nil)
	shipped := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 2})
	status := "SHIPPED"
	_, err := f.orders.Update(ctx, f.grower, shipped.ID, transport.UpdateOrderRequest{Status: &status})
	require.NoError(t, err)
	pending := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 2})

	_, err = f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{
		OrderIDs: []uuid.UUID{shipped.ID, pending.ID},
		Action:   "deliver",
	})
	require.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	got, err := f.orders.Get(ctx, f.grower, shipped.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)
	assert.Equal(t, 1, f.stock(t, p.ID))
}

func TestBatchStatus_StrictRejectsWholeBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.orders.Policy = order.Strict
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 100, nil)
	pending := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})
	done := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})
	for _, st := range []string{"CONFIRMED", "PROCESSING", "SHIPPED", "DELIVERED"} {
		st := st
		_, err := f.orders.Update(ctx, f.grower, done.ID, transport.UpdateOrderRequest{Status: &st})
		require.NoError(t, err)
	}

	_, err := f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{
		OrderIDs: []uuid.UUID{pending.ID, done.ID},
		Action:   "cancel",
	})
	require.ErrorIs(t, err, order.ErrInvalidTransition)

	got, err := f.orders.Get(ctx, f.grower, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
}

func TestBatchStatus_Rejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 100, nil)
	o := manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})

	_, err := f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{OrderIDs: []uuid.UUID{o.ID}, Action: "teleport"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{Action: "confirm"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.orders.BatchStatus(ctx, f.grower, transport.BatchStatusRequest{OrderIDs: []uuid.UUID{o.ID, uuid.New()}, Action: "confirm"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.orders.BatchStatus(ctx, f.grower2, transport.BatchStatusRequest{OrderIDs: []uuid.UUID{o.ID}, Action: "confirm"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_ScopedByRole(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, f.grower, "Flower", 1000, 100, nil)
	manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 1})
	manualOrder(t, f, transport.OrderItemInput{ProductID: p.ID, Quantity: 2})

	total, _, err := f.orders.List(ctx, f.grower, "", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	total, _, err = f.orders.List(ctx, f.dispensary, "pending", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	total, _, err = f.orders.List(ctx, f.grower2, "", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	_, _, err = f.orders.List(ctx, f.grower, "bogus", 10, 0)
	assert.ErrorIs(t, err, ErrValidation)
}
