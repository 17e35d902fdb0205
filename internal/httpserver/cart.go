package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/phenofarm/internal/service"
	"github.com/Skotchmaster/phenofarm/internal/transport"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

type CartHTTP struct {
	Svc    *service.CartService
	Orders *service.OrderService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}

	cart, err := h.Svc.Get(ctx, actor)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	var req transport.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_item_error", "invalid body", err)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.Svc.AddItem(ctx, actor, req.ProductID, req.Quantity)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	l.Info("add_item_success", "product_id", req.ProductID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_quantity")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "set_quantity_error", err)
	}
	id, err := paramID(c, "productId")
	if err != nil {
		return badRequest(l, "set_quantity_error", "productId is not a uuid", err)
	}

	var req transport.SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_quantity_error", "invalid body", err)
	}

	cart, err := h.Svc.SetQuantity(ctx, actor, id, req.Quantity)
	if err != nil {
		return fail(l, "set_quantity_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "remove_item_error", err)
	}
	id, err := paramID(c, "productId")
	if err != nil {
		return badRequest(l, "remove_item_error", "productId is not a uuid", err)
	}

	cart, err := h.Svc.RemoveItem(ctx, actor, id)
	if err != nil {
		return fail(l, "remove_item_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "clear_cart_error", err)
	}

	cart, err := h.Svc.Clear(ctx, actor)
	if err != nil {
		return fail(l, "clear_cart_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "checkout_error", err)
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout_error", "invalid body", err)
	}

	orders, err := h.Orders.Checkout(ctx, actor, req)
	if err != nil {
		return fail(l, "checkout_error", err)
	}

	l.Info("checkout_success", "orders", len(orders))
	return c.JSON(http.StatusCreated, map[string]any{"orders": orders})
}
