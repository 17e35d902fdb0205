package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/phenofarm/internal/cart"
	"github.com/Skotchmaster/phenofarm/internal/catalog"
	"github.com/Skotchmaster/phenofarm/internal/events"
	"github.com/Skotchmaster/phenofarm/internal/kv"
	"github.com/Skotchmaster/phenofarm/internal/models"
	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/internal/order"
	"github.com/Skotchmaster/phenofarm/internal/pricing"
	"github.com/Skotchmaster/phenofarm/internal/repo"
	"github.com/Skotchmaster/phenofarm/internal/search"
	"github.com/Skotchmaster/phenofarm/internal/testenv"
	"github.com/Skotchmaster/phenofarm/pkg/tokens"
)

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo   *repo.GormRepo
	kv     *kv.Memory
	events *events.Recorder

	catalog *CatalogService
	carts   *CartService
	orders  *OrderService
	lab     *LabService
	prefs   *PreferenceService

	grower     Actor
	grower2    Actor
	dispensary Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	r := testenv.NewRepo(t)
	mem := kv.NewMemory()
	rec := &events.Recorder{}
	rates := pricing.DefaultRates()
	catalogRate, err := rates.For(pricing.EntryCatalogCheckout)
	require.NoError(t, err)

	store := cart.NewStore(mem, catalogRate, events.CartNotifier{Pub: rec})
	now := func() time.Time { return fixedNow }

	return &fixture{
		repo:   r,
		kv:     mem,
		events: rec,

		catalog: &CatalogService{Repo: r, Engine: catalog.NewEngine(nil, nil), Events: rec, Index: search.Nop{}},
		carts:   &CartService{Store: store, Repo: r},
		orders: &OrderService{
			Repo:        r,
			Carts:       store,
			Rates:       rates,
			ShippingFee: 250,
			Policy:      order.Relaxed,
			Events:      rec,
			Now:         now,
		},
		lab:   &LabService{Repo: r, Events: rec},
		prefs: &PreferenceService{KV: mem, Repo: r, Now: now},

		grower:     Actor{ID: uuid.New(), Role: tokens.RoleGrower, Name: "Green Acres"},
		grower2:    Actor{ID: uuid.New(), Role: tokens.RoleGrower, Name: "Hilltop Farms"},
		dispensary: Actor{ID: uuid.New(), Role: tokens.RoleDispensary, Name: "Corner Dispensary"},
	}
}

func (f *fixture) product(t *testing.T, grower Actor, name string, price money.Cents, qty int, thc *float64) *models.Product {
	t.Helper()
	p := &models.Product{
		GrowerID:     grower.ID,
		GrowerName:   grower.Name,
		Name:         name,
		Price:        price,
		InventoryQty: qty,
		ProductType:  "flower",
		IsAvailable:  true,
		THCLegacy:    thc,
	}
	require.NoError(t, f.repo.CreateProduct(context.Background(), p))
	return p
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.InventoryQty
}

func f64(v float64) *float64 { return &v }
