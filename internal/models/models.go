package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/internal/order"
)

type Strain struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"                json:"id"`
	GrowerID    uuid.UUID `gorm:"type:uuid;index;not null"            json:"growerId"`
	Name        string    `gorm:"not null"                            json:"name"`
	Genetics    string    `gorm:"not null;default:hybrid"             json:"genetics"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Batch is one harvest lot with its lab results. Products reference a batch
// but never own it.
type Batch struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey"                              json:"id"`
	GrowerID          uuid.UUID          `gorm:"type:uuid;uniqueIndex:idx_grower_batch;not null"   json:"growerId"`
	BatchNumber       string             `gorm:"uniqueIndex:idx_grower_batch;not null"             json:"batchNumber"`
	StrainID          *uuid.UUID         `gorm:"type:uuid"                                         json:"strainId,omitempty"`
	Strain            *Strain            `json:"strain,omitempty"`
	HarvestDate       time.Time          `gorm:"not null"                                          json:"harvestDate"`
	THC               *float64           `json:"thc"`
	CBD               *float64           `json:"cbd"`
	TotalCannabinoids *float64           `json:"totalCannabinoids,omitempty"`
	Terpenes          map[string]float64 `gorm:"serializer:json"                                   json:"terpenes,omitempty"`
	COADocumentURL    *string            `gorm:"column:coa_document_url"                           json:"coaDocumentUrl,omitempty"`
	Notes             *string            `json:"notes,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Product carries both the linked strain/batch and the legacy inline fields.
// Business code reads them only through the Display* accessors.
type Product struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey"            json:"id"`
	GrowerID     uuid.UUID   `gorm:"type:uuid;index;not null"        json:"growerId"`
	GrowerName   string      `gorm:"not null;default:''"             json:"growerName"`
	Name         string      `gorm:"not null"                        json:"name"`
	Description  string      `json:"description,omitempty"`
	Price        money.Cents `gorm:"not null"                        json:"price"`
	InventoryQty int         `gorm:"not null;default:0;check:inventory_qty >= 0" json:"inventoryQty"`
	ProductType  string      `gorm:"index;not null"                  json:"productType"`
	SubType      string      `json:"subType,omitempty"`
	StrainID     *uuid.UUID  `gorm:"type:uuid"                       json:"strainId,omitempty"`
	Strain       *Strain     `json:"strain,omitempty"`
	StrainLegacy string      `gorm:"column:strain_legacy"            json:"strainLegacy,omitempty"`
	BatchID      *uuid.UUID  `gorm:"type:uuid"                       json:"batchId,omitempty"`
	Batch        *Batch      `json:"batch,omitempty"`
	THCLegacy    *float64    `gorm:"column:thc_legacy"               json:"thcLegacy,omitempty"`
	CBDLegacy    *float64    `gorm:"column:cbd_legacy"               json:"cbdLegacy,omitempty"`
	Unit         string      `json:"unit,omitempty"`
	IsAvailable  bool        `gorm:"not null;default:true"           json:"isAvailable"`
	Images       []string    `gorm:"serializer:json"                 json:"images,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"             json:"id"`
	OrderNumber    string          `gorm:"uniqueIndex;not null"             json:"orderId"`
	GrowerID       uuid.UUID       `gorm:"type:uuid;index;not null"         json:"growerId"`
	GrowerName     string          `json:"growerName,omitempty"`
	DispensaryID   uuid.UUID       `gorm:"type:uuid;index;not null"         json:"dispensaryId"`
	DispensaryName string          `json:"dispensaryName,omitempty"`
	Status         order.Status    `gorm:"type:varchar(16);index;not null"  json:"status"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal       money.Cents     `gorm:"not null"                         json:"subtotal"`
	Tax            money.Cents     `gorm:"not null"                         json:"tax"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(6,4);not null"       json:"taxRate"`
	ShippingFee    money.Cents     `gorm:"not null"                         json:"shippingFee"`
	TotalAmount    money.Cents     `gorm:"not null"                         json:"totalAmount"`
	Notes          *string         `json:"notes,omitempty"`
	StockCommitted bool            `gorm:"not null;default:false"           json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	ShippedAt      *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time      `json:"deliveredAt,omitempty"`
}

type OrderItem struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"         json:"id"`
	OrderID     uuid.UUID   `gorm:"type:uuid;index;not null"     json:"orderId"`
	ProductID   uuid.UUID   `gorm:"type:uuid;not null"           json:"productId"`
	ProductName string      `json:"productName,omitempty"`
	Quantity    int         `gorm:"not null;check:quantity >= 1 AND quantity <= 9999" json:"quantity"`
	UnitPrice   money.Cents `gorm:"not null"                     json:"unitPrice"`
	TotalPrice  money.Cents `gorm:"not null"                     json:"totalPrice"`
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (s *Strain) BeforeCreate(*gorm.DB) error    { ensureID(&s.ID); return nil }
func (b *Batch) BeforeCreate(*gorm.DB) error     { ensureID(&b.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error   { ensureID(&p.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error     { ensureID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

// All is the AutoMigrate set.
func All() []any {
	return []any{&Strain{}, &Batch{}, &Product{}, &Order{}, &OrderItem{}}
}
