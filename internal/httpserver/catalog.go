package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/phenofarm/internal/catalog"
	"github.com/Skotchmaster/phenofarm/internal/service"
	"github.com/Skotchmaster/phenofarm/internal/transport"
	"github.com/Skotchmaster/phenofarm/internal/util"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

// GetProducts lists the catalog: ?type=&thc=&price=&q=&sort=, each list
// param repeatable or comma separated.
func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_products")

	qp := c.QueryParams()
	sort, err := catalog.ParseSortOption(c.QueryParam("sort"))
	if err != nil {
		return badRequest(l, "get_products_error", "unknown sort option", err)
	}

	groups, err := h.Svc.Listing(ctx, service.ListingQuery{
		Criteria: catalog.Criteria{
			ProductTypes:  util.SplitList(qp["type"]),
			THCRangeIDs:   util.SplitList(qp["thc"]),
			PriceRangeIDs: util.SplitList(qp["price"]),
			SearchQuery:   c.QueryParam("q"),
		},
		Sort: sort,
	})
	if err != nil {
		return fail(l, "get_products_error", err)
	}

	total := 0
	for _, g := range groups {
		total += len(g.Products)
	}
	l.Info("get_products_success", "groups", len(groups), "products", total)
	return c.JSON(http.StatusOK, map[string]any{
		"groups": groups,
		"total":  total,
		"sort":   sort,
	})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "search_products_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.NewMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) Hydrate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.hydrate")

	var req transport.HydrateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "hydrate_error", "invalid body", err)
	}

	items, err := h.Svc.Hydrate(ctx, req.ProductIDs)
	if err != nil {
		return fail(l, "hydrate_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_product_error", "id is not a uuid", err)
	}

	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p.CatalogView())
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_product")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "product_create_error", err)
	}

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "product_create_error", "invalid body", err)
	}

	p, err := h.Svc.CreateProduct(ctx, actor, req)
	if err != nil {
		return fail(l, "product_create_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_product")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "product_patch_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "product_patch_error", "id is not a uuid", err)
	}

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "product_patch_error", "invalid body", err)
	}

	p, err := h.Svc.PatchProduct(ctx, actor, id, req)
	if err != nil {
		return fail(l, "product_patch_error", err)
	}

	l.Info("patch_product_success", "product_id", id)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_product")

	actor, err := actorFrom(c)
	if err != nil {
		return fail(l, "product_delete_error", err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "product_delete_error", "id is not a uuid", err)
	}

	if err := h.Svc.DeleteProduct(ctx, actor, id); err != nil {
		return fail(l, "product_delete_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}
