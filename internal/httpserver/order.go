package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/phenofarm/internal/service"
	"github.com/Skotchmaster/phenofarm/internal/transport"
	"github.com/Skotchmaster/phenofarm/internal/util"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_orders")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "get_orders_error", err)
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.List(ctx, actor, c.QueryParam("status"), limit, offset)
	if err != nil {
		return fail(l, "get_orders_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": util.NewMeta(page, offset, limit, total),
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_order_error", "id is not a uuid", err)
	}

	o, err := h.Svc.Get(ctx, actor, id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	var req transport.ManualOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_order_error", "invalid body", err)
	}

	o, err := h.Svc.CreateManual(ctx, actor, req)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", o.ID)
	return c.JSON(http.StatusCreated, o)
}

func (h *OrderHTTP) UpdateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_order")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "update_order_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "update_order_error", "id is not a uuid", err)
	}

	var req transport.UpdateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_order_error", "invalid body", err)
	}

	o, err := h.Svc.Update(ctx, actor, id, req)
	if err != nil {
		return fail(l, "update_order_error", err)
	}

	l.Info("update_order_success", "order_id", id, "order_status", o.Status)
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) BatchStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.batch_status")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "batch_status_error", err)
	}

	var req transport.BatchStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "batch_status_error", "invalid body", err)
	}

	n, err := h.Svc.BatchStatus(ctx, actor, req)
	if err != nil {
		return fail(l, "batch_status_error", err)
	}
	return c.JSON(http.StatusOK, transport.BatchStatusResponse{UpdatedCount: n})
}
