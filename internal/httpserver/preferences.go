package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/phenofarm/internal/service"
	"github.com/Skotchmaster/phenofarm/internal/transport"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

type PreferenceHTTP struct {
	Svc     *service.PreferenceService
	Catalog *service.CatalogService
}

// GetFavorites returns the ids, and the hydrated products with ?hydrate=true.
func (h *PreferenceHTTP) GetFavorites(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.get_favorites")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "get_favorites_error", err)
	}

	ids, err := h.Svc.Favorites(ctx, actor)
	if err != nil {
		return fail(l, "get_favorites_error", err)
	}
	if c.QueryParam("hydrate") != "true" {
		return c.JSON(http.StatusOK, transport.FavoritesResponse{ProductIDs: ids})
	}

	products, err := h.Catalog.Hydrate(ctx, ids)
	if err != nil {
		return fail(l, "get_favorites_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"productIds": ids, "products": products})
}

func (h *PreferenceHTTP) AddFavorite(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.add_favorite")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "add_favorite_error", err)
	}
	var req transport.FavoriteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_favorite_error", "invalid body", err)
	}

	ids, err := h.Svc.AddFavorite(ctx, actor, req.ProductID)
	if err != nil {
		return fail(l, "add_favorite_error", err)
	}
	return c.JSON(http.StatusOK, transport.FavoritesResponse{ProductIDs: ids})
}

func (h *PreferenceHTTP) ToggleFavorite(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.toggle_favorite")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "toggle_favorite_error", err)
	}
	id, err := paramID(c, "productId")
	if err != nil {
		return badRequest(l, "toggle_favorite_error", "productId is not a uuid", err)
	}

	on, ids, err := h.Svc.ToggleFavorite(ctx, actor, id)
	if err != nil {
		return fail(l, "toggle_favorite_error", err)
	}
	return c.JSON(http.StatusOK, transport.ToggleFavoriteResponse{ProductID: id, Favorited: on, ProductIDs: ids})
}

func (h *PreferenceHTTP) GetPriceAlerts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.get_price_alerts")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "get_price_alerts_error", err)
	}

	alerts, err := h.Svc.PriceAlerts(ctx, actor)
	if err != nil {
		return fail(l, "get_price_alerts_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": alerts})
}

func (h *PreferenceHTTP) AddPriceAlert(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.add_price_alert")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "add_price_alert_error", err)
	}
	var req transport.PriceAlertRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_price_alert_error", "invalid body", err)
	}

	alert, err := h.Svc.AddPriceAlert(ctx, actor, req.ProductID, req.TargetPrice)
	if err != nil {
		return fail(l, "add_price_alert_error", err)
	}
	return c.JSON(http.StatusCreated, alert)
}

func (h *PreferenceHTTP) RemovePriceAlert(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.remove_price_alert")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "remove_price_alert_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "remove_price_alert_error", "id is not a uuid", err)
	}

	if err := h.Svc.RemovePriceAlert(ctx, actor, id); err != nil {
		return fail(l, "remove_price_alert_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PreferenceHTTP) RefreshPriceAlerts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.refresh_price_alerts")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "refresh_price_alerts_error", err)
	}

	alerts, err := h.Svc.RefreshPriceAlerts(ctx, actor)
	if err != nil {
		return fail(l, "refresh_price_alerts_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": alerts})
}

func (h *PreferenceHTTP) GetViewMode(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.get_view_mode")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "get_view_mode_error", err)
	}
	scope := c.Param("scope")

	mode, err := h.Svc.ViewMode(ctx, actor, scope)
	if err != nil {
		return fail(l, "get_view_mode_error", err)
	}
	return c.JSON(http.StatusOK, transport.ViewModeResponse{Scope: scope, Mode: mode})
}

func (h *PreferenceHTTP) SetViewMode(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prefs.set_view_mode")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "set_view_mode_error", err)
	}
	var req transport.ViewModeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_view_mode_error", "invalid body", err)
	}
	scope := c.Param("scope")

	if err := h.Svc.SetViewMode(ctx, actor, scope, req.Mode); err != nil {
		return fail(l, "set_view_mode_error", err)
	}
	return c.JSON(http.StatusOK, transport.ViewModeResponse{Scope: scope, Mode: req.Mode})
}
