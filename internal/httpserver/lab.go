package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/phenofarm/internal/service"
	"github.com/Skotchmaster/phenofarm/internal/transport"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

type LabHTTP struct {
	Svc *service.LabService
}

// GetStrains lists every strain, or one grower's with ?growerId=.
func (h *LabHTTP) GetStrains(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "lab.get_strains")

	var grower *uuid.UUID
	if raw := c.QueryParam("growerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(l, "get_strains_error", "growerId is not a uuid", err)
		}
		grower = &id
	}

	strains, err := h.Svc.ListStrains(ctx, grower)
	if err != nil {
		return fail(l, "get_strains_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": strains})
}

func (h *LabHTTP) CreateStrain(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "lab.create_strain")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "create_strain_error", err)
	}
	var req transport.StrainRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_strain_error", "invalid body", err)
	}

	st, err := h.Svc.CreateStrain(ctx, actor, req)
	if err != nil {
		return fail(l, "create_strain_error", err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *LabHTTP) GetBatches(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "lab.get_batches")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "get_batches_error", err)
	}

	batches, err := h.Svc.ListBatches(ctx, actor)
	if err != nil {
		return fail(l, "get_batches_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": batches})
}

func (h *LabHTTP) GetBatch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "lab.get_batch")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "get_batch_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_batch_error", "id is not a uuid", err)
	}

	b, err := h.Svc.GetBatch(ctx, actor, id)
	if err != nil {
		return fail(l, "get_batch_error", err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *LabHTTP) CreateBatch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "lab.create_batch")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "create_batch_error", err)
	}
	var req transport.BatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_batch_error", "invalid body", err)
	}

	b, err := h.Svc.CreateBatch(ctx, actor, req)
	if err != nil {
		return fail(l, "create_batch_error", err)
	}

	l.Info("create_batch_success", "batch_id", b.ID)
	return c.JSON(http.StatusCreated, b)
}

func (h *LabHTTP) UpdateBatch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "lab.update_batch")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "update_batch_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "update_batch_error", "id is not a uuid", err)
	}
	var req transport.BatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_batch_error", "invalid body", err)
	}

	b, err := h.Svc.UpdateBatch(ctx, actor, id, req)
	if err != nil {
		return fail(l, "update_batch_error", err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *LabHTTP) DeleteBatch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "lab.delete_batch")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "delete_batch_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_batch_error", "id is not a uuid", err)
	}

	if err := h.Svc.DeleteBatch(ctx, actor, id); err != nil {
		return fail(l, "delete_batch_error", err)
	}

	l.Info("delete_batch_success", "batch_id", id)
	return c.NoContent(http.StatusNoContent)
}
