package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/phenofarm/internal/inventory"
	"github.com/Skotchmaster/phenofarm/internal/kv"
	"github.com/Skotchmaster/phenofarm/internal/money"
)

const owner = "dispensary-1"

var catalogRate = decimal.RequireFromString("0.10")

type recorder struct {
	mu     sync.Mutex
	events []ChangedEvent
}

func (r *recorder) CartChanged(_ context.Context, owner string, c *Cart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, NewChangedEvent(owner, c))
}

func newStore(t *testing.T) (*Store, *kv.Memory, *recorder) {
	t.Helper()
	mem := kv.NewMemory()
	rec := &recorder{}
	return NewStore(mem, catalogRate, rec), mem, rec
}

func product(price float64, stock int) Product {
	return Product{ID: uuid.New(), Name: "Blue Dream 3.5g", UnitPrice: money.FromFloat(price), InventoryQty: stock, Unit: "eighth"}
}

var grower = Grower{ID: uuid.New(), Name: "Green Acres"}

func TestAddItem_ThenExceed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, rec := newStore(t)
	p := product(10, 5)

	c, err := s.AddItem(ctx, owner, p, 3, grower)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Quantity(p.ID))

	_, err = s.AddItem(ctx, owner, p, 3, grower)
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, "Cannot add 3 more. Only 2 available.", err.Error())

	c, err = s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Quantity(p.ID))
	assert.Len(t, rec.events, 1, "a rejected add is not broadcast")
}

func TestAddItem_MergesAndRecomputes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newStore(t)
	a := product(10, 10)
	b := product(5, 10)

	_, err := s.AddItem(ctx, owner, a, 1, grower)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, owner, b, 1, grower)
	require.NoError(t, err)
	c, err := s.AddItem(ctx, owner, a, 1, grower)
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	assert.Equal(t, a.ID, c.Items[0].ProductID, "insertion order is kept on merge")
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "25.00", c.Subtotal.String())
	assert.Equal(t, "2.50", c.Tax.String())
	assert.Equal(t, "27.50", c.Total.String())
}

func TestAddItem_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newStore(t)

	_, err := s.AddItem(ctx, owner, product(10, 5), 0, grower)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.AddItem(ctx, owner, Product{InventoryQty: 5}, 1, grower)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.AddItem(ctx, owner, product(10, 0), 1, grower)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestSetQuantity_Clamps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newStore(t)
	p := product(4, 5)

	_, err := s.AddItem(ctx, owner, p, 2, grower)
	require.NoError(t, err)

	c, err := s.SetQuantity(ctx, owner, p.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Quantity(p.ID))

	c, err = s.SetQuantity(ctx, owner, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Quantity(p.ID))
	assert.Equal(t, "4.00", c.Subtotal.String())

	_, err = s.SetQuantity(ctx, owner, uuid.New(), 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, rec := newStore(t)
	a, b := product(1, 5), product(2, 5)

	_, err := s.AddItem(ctx, owner, a, 1, grower)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, owner, b, 2, grower)
	require.NoError(t, err)

	c, err := s.RemoveItem(ctx, owner, a.ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "4.00", c.Subtotal.String())

	_, err = s.RemoveItem(ctx, owner, a.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	c, err = s.Clear(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.Subtotal)
	assert.Zero(t, c.Tax)
	assert.Zero(t, c.Total)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, owner, last.Owner)
	assert.Zero(t, last.ItemCount)
}

func TestLoad_CorruptStorageResetsToEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mem, _ := newStore(t)
	require.NoError(t, mem.Set(ctx, Key(owner), []byte("{not json")))

	c, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.Total)

	p := product(3, 2)
	c, err = s.AddItem(ctx, owner, p, 1, grower)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestPersistedFormat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mem, _ := newStore(t)
	p := product(10, 5)

	_, err := s.AddItem(ctx, owner, p, 2, grower)
	require.NoError(t, err)

	raw, err := mem.Get(ctx, "phenofarm-cart:"+owner)
	require.NoError(t, err)

	var stored map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.ElementsMatch(t, []string{"items", "subtotal", "tax", "total"}, keys(stored))
	assert.JSONEq(t, "22.00", string(stored["total"]))
}

func TestLoad_RestoresInvariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mem, _ := newStore(t)
	id := uuid.New()
	raw := `{"items":[{"productId":"` + id.String() + `","quantity":9,"maxQty":4,"unitPrice":1.00},` +
		`{"productId":"` + uuid.New().String() + `","quantity":0,"maxQty":4,"unitPrice":1.00}],"subtotal":999,"tax":0,"total":0}`
	require.NoError(t, mem.Set(ctx, Key(owner), []byte(raw)))

	c, err := s.Load(ctx, owner)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.Equal(t, "4.00", c.Subtotal.String(), "stored totals are never trusted")
}

type failingKV struct{ kv.Store }

func (failingKV) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestLoad_StorageFailureIsReported(t *testing.T) {
	t.Parallel()

	s := NewStore(failingKV{}, catalogRate, nil)
	_, err := s.Load(context.Background(), owner)
	assert.Error(t, err)
}

func TestInventoryCeilingUnderConcurrentAdds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newStore(t)
	p := product(1, 10)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddItem(ctx, owner, p, 1, grower)
		}()
	}
	wg.Wait()

	c, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Quantity(p.ID))
}

func TestDrain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newStore(t)
	p := product(2, 5)
	_, err := s.AddItem(ctx, owner, p, 3, grower)
	require.NoError(t, err)

	boom := errors.New("order rejected")
	err = s.Drain(ctx, owner, func(c *Cart) error {
		assert.Equal(t, 3, c.Quantity(p.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Quantity(p.ID), "failed drain keeps the cart")

	var seen int
	require.NoError(t, s.Drain(ctx, owner, func(c *Cart) error {
		seen = c.Quantity(p.ID)
		return nil
	}))
	assert.Equal(t, 3, seen)

	c, err = s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.Total)
}

func TestDrain_AddDuringDrainIsKept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newStore(t)
	first, late := product(1, 5), product(3, 5)
	_, err := s.AddItem(ctx, owner, first, 1, grower)
	require.NoError(t, err)

	done := make(chan error, 1)
	require.NoError(t, s.Drain(ctx, owner, func(c *Cart) error {
		go func() {
			_, err := s.AddItem(ctx, owner, late, 2, grower)
			done <- err
		}()
		require.Eventually(t, func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.locks[owner] != nil && s.locks[owner].refs == 2
		}, time.Second, time.Millisecond)
		assert.Equal(t, 0, c.Quantity(late.ID))
		return nil
	}))
	require.NoError(t, <-done)

	c, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Quantity(first.ID))
	assert.Equal(t, 2, c.Quantity(late.ID))
}

func TestOwnerLocksAreReleased(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newStore(t)
	p := product(1, 100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddItem(ctx, fmt.Sprintf("owner-%d", i%4), p, 1, grower)
		}(i)
	}
	wg.Wait()
	_, err := s.Clear(ctx, owner)
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.locks)
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
