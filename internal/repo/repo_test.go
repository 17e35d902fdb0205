package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/phenofarm/internal/inventory"
	"github.com/Skotchmaster/phenofarm/internal/models"
	"github.com/Skotchmaster/phenofarm/internal/order"
	"github.com/Skotchmaster/phenofarm/internal/repo"
	"github.com/Skotchmaster/phenofarm/internal/testenv"
)

func f64(v float64) *float64 { return &v }

func seedProduct(t *testing.T, r *repo.GormRepo, qty int) *models.Product {
	t.Helper()
	p := &models.Product{
		GrowerID:     uuid.New(),
		GrowerName:   "Green Acres",
		Name:         "Blue Dream 3.5g",
		Price:        4500,
		InventoryQty: qty,
		ProductType:  "flower",
		IsAvailable:  true,
		Images:       []string{"a.png"},
	}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func TestProduct_PreloadsBatchAndResolvesTHC(t *testing.T) {
	t.Parallel()
	r := testenv.NewRepo(t)
	ctx := context.Background()

	strain := &models.Strain{GrowerID: uuid.New(), Name: "Gelato", Genetics: "hybrid"}
	require.NoError(t, r.CreateStrain(ctx, strain))

	batch := &models.Batch{
		GrowerID:    strain.GrowerID,
		BatchNumber: "B-001",
		StrainID:    &strain.ID,
		HarvestDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		THC:         f64(22),
		Terpenes:    map[string]float64{"myrcene": 0.8},
	}
	require.NoError(t, r.CreateBatch(ctx, batch))

	p := seedProduct(t, r, 10)
	p.BatchID = &batch.ID
	p.THCLegacy = f64(18.5)
	require.NoError(t, r.SaveProduct(ctx, p))

	got, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Batch)
	assert.InDelta(t, 22.0, *got.DisplayTHC(), 1e-9)
	assert.Equal(t, "Gelato", got.DisplayStrain())
	assert.Equal(t, []string{"a.png"}, got.Images)
	assert.InDelta(t, 0.8, got.Batch.Terpenes["myrcene"], 1e-9)

	require.NoError(t, r.DeleteBatch(ctx, batch.ID))

	got, err = r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BatchID)
	assert.InDelta(t, 18.5, *got.DisplayTHC(), 1e-9)
}

func TestDeleteProduct_Missing(t *testing.T) {
	t.Parallel()
	r := testenv.NewRepo(t)

	err := r.DeleteProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCommitStock_ConditionalDecrement(t *testing.T) {
	t.Parallel()
	r := testenv.NewRepo(t)
	ctx := context.Background()

	a := seedProduct(t, r, 5)
	b := seedProduct(t, r, 1)

	err := r.Transaction(ctx, func(tx *repo.GormRepo) error {
		return tx.CommitStock(ctx, []models.OrderItem{
			{ProductID: a.ID, Quantity: 3},
			{ProductID: b.ID, Quantity: 2},
		})
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, inventory.ErrInsufficientStock))

	got, err := r.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.InventoryQty, "first line rolled back with the failing one")

	require.NoError(t, r.Transaction(ctx, func(tx *repo.GormRepo) error {
		return tx.CommitStock(ctx, []models.OrderItem{{ProductID: a.ID, Quantity: 5}})
	}))
	got, _ = r.GetProduct(ctx, a.ID)
	assert.Equal(t, 0, got.InventoryQty)

	require.NoError(t, r.ReleaseStock(ctx, []models.OrderItem{{ProductID: a.ID, Quantity: 2}}))
	got, _ = r.GetProduct(ctx, a.ID)
	assert.Equal(t, 2, got.InventoryQty)
}

func TestOrders_CreateListReplaceItems(t *testing.T) {
	t.Parallel()
	r := testenv.NewRepo(t)
	ctx := context.Background()

	grower, dispensary := uuid.New(), uuid.New()
	o := &models.Order{
		OrderNumber:  "PF-1",
		GrowerID:     grower,
		DispensaryID: dispensary,
		Status:       order.StatusPending,
		TaxRate:      decimal.RequireFromString("0.10"),
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: 1000, TotalPrice: 2000},
		},
		Subtotal:    2000,
		Tax:         200,
		TotalAmount: 2200,
	}
	require.NoError(t, r.CreateOrder(ctx, o))

	other := &models.Order{OrderNumber: "PF-2", GrowerID: uuid.New(), DispensaryID: dispensary, Status: order.StatusShipped, TaxRate: decimal.Zero}
	require.NoError(t, r.CreateOrder(ctx, other))

	total, list, err := r.ListOrders(ctx, repo.OrderFilter{GrowerID: &grower}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	require.Len(t, list[0].Items, 1)
	assert.True(t, list[0].TaxRate.Equal(decimal.RequireFromString("0.10")))

	total, _, err = r.ListOrders(ctx, repo.OrderFilter{DispensaryID: &dispensary, Status: order.StatusShipped}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	require.NoError(t, r.ReplaceOrderItems(ctx, o.ID, []models.OrderItem{
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: 500, TotalPrice: 500},
		{ProductID: uuid.New(), Quantity: 3, UnitPrice: 100, TotalPrice: 300},
	}))
	got, err := r.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	got.Status = order.StatusConfirmed
	require.NoError(t, r.SaveOrder(ctx, got))
	again, err := r.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, again.Status)
	assert.Len(t, again.Items, 2)
}

func TestBatchNumberTaken(t *testing.T) {
	t.Parallel()
	r := testenv.NewRepo(t)
	ctx := context.Background()

	grower := uuid.New()
	b := &models.Batch{GrowerID: grower, BatchNumber: "LOT-7", HarvestDate: time.Now()}
	require.NoError(t, r.CreateBatch(ctx, b))

	taken, err := r.BatchNumberTaken(ctx, grower, "LOT-7", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = r.BatchNumberTaken(ctx, grower, "LOT-7", b.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = r.BatchNumberTaken(ctx, uuid.New(), "LOT-7", uuid.Nil)
	require.NoError(t, err)
	assert.False(t, taken)
}
