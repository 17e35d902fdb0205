package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/money"
)

// ProductRequest serves both create and patch; nil fields are left alone
// on patch. A zero batchId or strainId unlinks.
type ProductRequest struct {
	Name         *string      `json:"name"`
	Description  *string      `json:"description"`
	Price        *money.Cents `json:"price"`
	InventoryQty *int         `json:"inventoryQty"`
	ProductType  *string      `json:"productType"`
	SubType      *string      `json:"subType"`
	StrainID     *uuid.UUID   `json:"strainId"`
	Strain       *string      `json:"strain"`
	BatchID      *uuid.UUID   `json:"batchId"`
	THC          *float64     `json:"thc"`
	CBD          *float64     `json:"cbd"`
	Unit         *string      `json:"unit"`
	IsAvailable  *bool        `json:"isAvailable"`
	Images       []string     `json:"images"`
}

type HydrateRequest struct {
	ProductIDs []uuid.UUID `json:"productIds"`
}

type StrainRequest struct {
	Name        string `json:"name"`
	Genetics    string `json:"genetics"`
	Description string `json:"description"`
}

type BatchRequest struct {
	BatchNumber       *string            `json:"batchNumber"`
	StrainID          *uuid.UUID         `json:"strainId"`
	HarvestDate       *time.Time         `json:"harvestDate"`
	THC               *float64           `json:"thc"`
	CBD               *float64           `json:"cbd"`
	TotalCannabinoids *float64           `json:"totalCannabinoids"`
	Terpenes          map[string]float64 `json:"terpenes"`
	COADocumentURL    *string            `json:"coaDocumentUrl"`
	Notes             *string            `json:"notes"`
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	Notes *string `json:"notes"`
}

type OrderItemInput struct {
	ProductID uuid.UUID    `json:"productId"`
	Quantity  int          `json:"quantity"`
	UnitPrice *money.Cents `json:"unitPrice"`
}

type ManualOrderRequest struct {
	DispensaryID   uuid.UUID        `json:"dispensaryId"`
	DispensaryName string           `json:"dispensaryName"`
	Items          []OrderItemInput `json:"items"`
	ShippingFee    money.Cents      `json:"shippingFee"`
	Notes          *string          `json:"notes"`
}

type UpdateOrderRequest struct {
	Items       *[]OrderItemInput `json:"items"`
	ShippingFee *money.Cents      `json:"shippingFee"`
	Notes       *string           `json:"notes"`
	Status      *string           `json:"status"`
}

type BatchStatusRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds"`
	Status   string      `json:"status"`
	Action   string      `json:"action"`
}

type BatchStatusResponse struct {
	UpdatedCount int `json:"updatedCount"`
}

type FavoriteRequest struct {
	ProductID uuid.UUID `json:"productId"`
}

type FavoritesResponse struct {
	ProductIDs []uuid.UUID `json:"productIds"`
}

type ToggleFavoriteResponse struct {
	ProductID  uuid.UUID   `json:"productId"`
	Favorited  bool        `json:"favorited"`
	ProductIDs []uuid.UUID `json:"productIds"`
}

type PriceAlertRequest struct {
	ProductID   uuid.UUID   `json:"productId"`
	TargetPrice money.Cents `json:"targetPrice"`
}

type ViewModeRequest struct {
	Mode string `json:"mode"`
}

type ViewModeResponse struct {
	Scope string `json:"scope"`
	Mode  string `json:"mode"`
}
