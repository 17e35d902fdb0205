package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/phenofarm/pkg/middleware/auth"
	"github.com/Skotchmaster/phenofarm/pkg/tokens"
)

type Deps struct {
	CatalogHandler    *CatalogHTTP
	CartHandler       *CartHTTP
	OrderHandler      *OrderHTTP
	LabHandler        *LabHTTP
	PreferenceHandler *PreferenceHTTP
	JWTSecret         []byte
	Ready             func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authed := middleware.RequireAuth(d.JWTSecret)
	grower := middleware.RequireRole(tokens.RoleGrower)
	dispensary := middleware.RequireRole(tokens.RoleDispensary)

	products := e.Group("/catalog/products")
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.POST("/hydrate", d.CatalogHandler.Hydrate)
	products.GET("/:id", d.CatalogHandler.GetProduct)

	products.POST("", d.CatalogHandler.CreateProduct, authed, grower)
	products.PATCH("/:id", d.CatalogHandler.PatchProduct, authed, grower)
	products.DELETE("/:id", d.CatalogHandler.DeleteProduct, authed, grower)

	e.GET("/strains", d.LabHandler.GetStrains)
	e.POST("/strains", d.LabHandler.CreateStrain, authed, grower)

	batches := e.Group("/batches", authed, grower)
	batches.GET("", d.LabHandler.GetBatches)
	batches.GET("/:id", d.LabHandler.GetBatch)
	batches.POST("", d.LabHandler.CreateBatch)
	batches.PATCH("/:id", d.LabHandler.UpdateBatch)
	batches.DELETE("/:id", d.LabHandler.DeleteBatch)

	cart := e.Group("/cart", authed, dispensary)
	cart.GET("", d.CartHandler.GetCart)
	cart.DELETE("", d.CartHandler.Clear)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.PATCH("/items/:productId", d.CartHandler.SetQuantity)
	cart.DELETE("/items/:productId", d.CartHandler.RemoveItem)
	cart.POST("/checkout", d.CartHandler.Checkout)

	orders := e.Group("/orders", authed)
	orders.GET("", d.OrderHandler.GetOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("", d.OrderHandler.CreateOrder, grower)
	orders.PATCH("/:id", d.OrderHandler.UpdateOrder, grower)
	orders.POST("/batch-status", d.OrderHandler.BatchStatus, grower)

	me := e.Group("/me", authed)
	me.GET("/favorites", d.PreferenceHandler.GetFavorites)
	me.POST("/favorites", d.PreferenceHandler.AddFavorite)
	me.POST("/favorites/:productId/toggle", d.PreferenceHandler.ToggleFavorite)
	me.GET("/price-alerts", d.PreferenceHandler.GetPriceAlerts)
	me.POST("/price-alerts", d.PreferenceHandler.AddPriceAlert)
	me.DELETE("/price-alerts/:id", d.PreferenceHandler.RemovePriceAlert)
	me.POST("/price-alerts/refresh", d.PreferenceHandler.RefreshPriceAlerts)
	me.GET("/view-mode/:scope", d.PreferenceHandler.GetViewMode)
	me.PUT("/view-mode/:scope", d.PreferenceHandler.SetViewMode)
}
