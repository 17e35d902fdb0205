package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/phenofarm/internal/cart"
	"github.com/Skotchmaster/phenofarm/internal/inventory"
	"github.com/Skotchmaster/phenofarm/internal/order"
	"github.com/Skotchmaster/phenofarm/internal/service"
	middleware "github.com/Skotchmaster/phenofarm/pkg/middleware/auth"
)

var errUnauthorized = errors.New("unauthorized")

func actorFrom(c echo.Context) (service.Actor, error) {
	s, ok := c.Get(middleware.CtxUserID).(string)
	if !ok || s == "" {
		return service.Actor{}, errUnauthorized
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return service.Actor{}, errUnauthorized
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	name, _ := c.Get(middleware.CtxUserName).(string)
	return service.Actor{ID: id, Role: role, Name: name}, nil
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// fail logs the failure under event and maps err onto an HTTP status.
// Stock errors keep their message since it is shown to the buyer as is.
func fail(l *slog.Logger, event string, err error) error {
	var stock *inventory.StockError

	switch {
	case errors.Is(err, errUnauthorized):
		l.Warn(event, "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	case errors.As(err, &stock):
		l.Warn(event, "status", 409, "reason", "insufficient stock", "error", err)
		return echo.NewHTTPError(http.StatusConflict, stock.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		l.Warn(event, "status", 409, "reason", "insufficient stock", "error", err)
		return echo.NewHTTPError(http.StatusConflict, "insufficient stock")
	case errors.Is(err, service.ErrValidation), errors.Is(err, cart.ErrValidation):
		l.Warn(event, "status", 400, "reason", "invalid request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		l.Warn(event, "status", 403, "reason", "forbidden", "error", err)
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, cart.ErrItemNotFound):
		l.Warn(event, "status", 404, "reason", "not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrUnknownStatus):
		l.Warn(event, "status", 422, "reason", "invalid status transition", "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", 409, "reason", "conflict", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event, "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", 400, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}
