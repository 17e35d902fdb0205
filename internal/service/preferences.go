package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/kv"
	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/internal/repo"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

const (
	FavoritesKey   = "phenofarm_favorites"
	PriceAlertsKey = "phenofarm_price_alerts"
	MaxPriceAlerts = 20

	ViewModeCard = "card"
	ViewModeList = "list"
)

var viewModeKeys = map[string]string{
	"product": "productViewMode",
	"strain":  "strainViewMode",
}

type PriceAlert struct {
	ID           uuid.UUID   `json:"id"`
	ProductID    uuid.UUID   `json:"productId"`
	ProductName  string      `json:"productName"`
	TargetPrice  money.Cents `json:"targetPrice"`
	CurrentPrice money.Cents `json:"currentPrice"`
	IsTriggered  bool        `json:"isTriggered"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func (a *PriceAlert) evaluate() {
	a.IsTriggered = a.CurrentPrice <= a.TargetPrice
}

// PreferenceService owns the per-account client-state slots: favorites,
// price alerts and view modes. Unreadable slots read as empty.
type PreferenceService struct {
	KV   kv.Store
	Repo *repo.GormRepo
	Now  func() time.Time

	mu sync.Mutex
}

func slotKey(prefix, owner string) string {
	return prefix + ":" + owner
}

// readSlot decodes the slot at key. A missing slot and one that does not
// decode as T both read as the zero value; a partial decode is discarded.
func readSlot[T any](ctx context.Context, store kv.Store, key string) (T, error) {
	var zero T
	raw, err := store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return zero, nil
	}
	if err != nil {
		return zero, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logging.FromContext(ctx).Warn("preference_corrupt_reset", "key", key, "error", err)
		return zero, nil
	}
	return v, nil
}

func (s *PreferenceService) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.KV.Set(ctx, key, raw)
}

func (s *PreferenceService) Favorites(ctx context.Context, actor Actor) ([]uuid.UUID, error) {
	raw, err := readSlot[[]string](ctx, s.KV, slotKey(FavoritesKey, actor.Owner()))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		if id, err := uuid.Parse(r); err == nil && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *PreferenceService) saveFavorites(ctx context.Context, actor Actor, ids []uuid.UUID) error {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	return s.write(ctx, slotKey(FavoritesKey, actor.Owner()), raw)
}

func (s *PreferenceService) AddFavorite(ctx context.Context, actor Actor, productID uuid.UUID) ([]uuid.UUID, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: productId required", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.Favorites(ctx, actor)
	if err != nil {
		return nil, err
	}
	if slices.Contains(ids, productID) {
		return ids, nil
	}
	ids = append(ids, productID)
	return ids, s.saveFavorites(ctx, actor, ids)
}

// ToggleFavorite flips membership and reports the new state.
func (s *PreferenceService) ToggleFavorite(ctx context.Context, actor Actor, productID uuid.UUID) (bool, []uuid.UUID, error) {
	if productID == uuid.Nil {
		return false, nil, fmt.Errorf("%w: productId required", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.Favorites(ctx, actor)
	if err != nil {
		return false, nil, err
	}

	favorited := true
	if i := slices.Index(ids, productID); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
		favorited = false
	} else {
		ids = append(ids, productID)
	}
	return favorited, ids, s.saveFavorites(ctx, actor, ids)
}

func (s *PreferenceService) PriceAlerts(ctx context.Context, actor Actor) ([]PriceAlert, error) {
	alerts, err := readSlot[[]PriceAlert](ctx, s.KV, slotKey(PriceAlertsKey, actor.Owner()))
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []PriceAlert{}
	}
	return alerts, nil
}

// AddPriceAlert keeps one alert per product; the newest replaces the old
// one. Past MaxPriceAlerts the oldest alerts are dropped.
func (s *PreferenceService) AddPriceAlert(ctx context.Context, actor Actor, productID uuid.UUID, target money.Cents) (*PriceAlert, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: targetPrice must be positive", ErrValidation)
	}
	p, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product", productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	alerts, err := s.PriceAlerts(ctx, actor)
	if err != nil {
		return nil, err
	}
	alerts = slices.DeleteFunc(alerts, func(a PriceAlert) bool { return a.ProductID == productID })

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	alert := PriceAlert{
		ID:           uuid.New(),
		ProductID:    p.ID,
		ProductName:  p.Name,
		TargetPrice:  target,
		CurrentPrice: p.Price,
		CreatedAt:    now,
	}
	alert.evaluate()

	alerts = append(alerts, alert)
	if over := len(alerts) - MaxPriceAlerts; over > 0 {
		alerts = alerts[over:]
	}
	if err := s.write(ctx, slotKey(PriceAlertsKey, actor.Owner()), alerts); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (s *PreferenceService) RemovePriceAlert(ctx context.Context, actor Actor, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts, err := s.PriceAlerts(ctx, actor)
	if err != nil {
		return err
	}
	n := len(alerts)
	alerts = slices.DeleteFunc(alerts, func(a PriceAlert) bool { return a.ID == id })
	if len(alerts) == n {
		return fmt.Errorf("%w: price alert %s", ErrNotFound, id)
	}
	return s.write(ctx, slotKey(PriceAlertsKey, actor.Owner()), alerts)
}

// RefreshPriceAlerts re-reads current prices. Alerts whose product is gone
// keep their last known price.
func (s *PreferenceService) RefreshPriceAlerts(ctx context.Context, actor Actor) ([]PriceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts, err := s.PriceAlerts(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return alerts, nil
	}

	ids := make([]uuid.UUID, len(alerts))
	for i, a := range alerts {
		ids[i] = a.ProductID
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[uuid.UUID]money.Cents, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}

	for i := range alerts {
		if price, ok := prices[alerts[i].ProductID]; ok {
			alerts[i].CurrentPrice = price
		}
		alerts[i].evaluate()
	}
	if err := s.write(ctx, slotKey(PriceAlertsKey, actor.Owner()), alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func viewModeKey(scope string) (string, error) {
	prefix, ok := viewModeKeys[scope]
	if !ok {
		return "", fmt.Errorf("%w: unknown view scope %q", ErrValidation, scope)
	}
	return prefix, nil
}

func (s *PreferenceService) ViewMode(ctx context.Context, actor Actor, scope string) (string, error) {
	prefix, err := viewModeKey(scope)
	if err != nil {
		return "", err
	}
	raw, err := s.KV.Get(ctx, slotKey(prefix, actor.Owner()))
	if errors.Is(err, kv.ErrNotFound) {
		return ViewModeCard, nil
	}
	if err != nil {
		return "", err
	}
	if mode := string(raw); mode == ViewModeList {
		return mode, nil
	}
	return ViewModeCard, nil
}

func (s *PreferenceService) SetViewMode(ctx context.Context, actor Actor, scope, mode string) error {
	prefix, err := viewModeKey(scope)
	if err != nil {
		return err
	}
	if mode != ViewModeCard && mode != ViewModeList {
		return fmt.Errorf("%w: view mode must be card or list", ErrValidation)
	}
	return s.KV.Set(ctx, slotKey(prefix, actor.Owner()), []byte(mode))
}
