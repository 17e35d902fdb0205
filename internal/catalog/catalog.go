// Package catalog narrows and orders product listings for display. Every
// function here is pure: inputs are never mutated.
package catalog

import (
	"math"

	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/money"
)

// Product is the resolved listing view. THC, CBD and Strain already carry
// the batch-over-legacy precedence; nothing here sees the raw fields.
type Product struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	GrowerID     uuid.UUID   `json:"growerId"`
	GrowerName   string      `json:"growerName"`
	ProductType  string      `json:"productType"`
	SubType      string      `json:"subType,omitempty"`
	Strain       string      `json:"strain,omitempty"`
	Price        money.Cents `json:"price"`
	THC          *float64    `json:"thc"`
	CBD          *float64    `json:"cbd"`
	InventoryQty int         `json:"inventoryQty"`
	Unit         string      `json:"unit,omitempty"`
	IsAvailable  bool        `json:"isAvailable"`
	Images       []string    `json:"images,omitempty"`
}

type Group struct {
	GrowerID   uuid.UUID `json:"growerId"`
	GrowerName string    `json:"growerName"`
	Products   []Product `json:"products"`
}

const AllProductsGroup = "All Products"

// THCRange is the half-open interval [Min, Max).
type THCRange struct {
	ID    string  `json:"id" yaml:"id"`
	Label string  `json:"label" yaml:"label"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
}

func (r THCRange) Contains(thc float64) bool {
	return thc >= r.Min && thc < r.Max
}

// PriceRange is the half-open interval [Min, Max).
type PriceRange struct {
	ID    string      `json:"id" yaml:"id"`
	Label string      `json:"label" yaml:"label"`
	Min   money.Cents `json:"min" yaml:"-"`
	Max   money.Cents `json:"max" yaml:"-"`
}

func (r PriceRange) Contains(price money.Cents) bool {
	return price >= r.Min && price < r.Max
}

func DefaultTHCRanges() []THCRange {
	return []THCRange{
		{ID: "low", Label: "Under 15%", Min: 0, Max: 15},
		{ID: "medium", Label: "15% - 20%", Min: 15, Max: 20},
		{ID: "high", Label: "20% - 25%", Min: 20, Max: 25},
		{ID: "very-high", Label: "25% - 30%", Min: 25, Max: 30},
		{ID: "extreme", Label: "30%+", Min: 30, Max: math.Inf(1)},
	}
}

func DefaultPriceRanges() []PriceRange {
	return []PriceRange{
		{ID: "under-25", Label: "Under $25", Min: 0, Max: 2500},
		{ID: "25-50", Label: "$25 - $50", Min: 2500, Max: 5000},
		{ID: "50-100", Label: "$50 - $100", Min: 5000, Max: 10000},
		{ID: "100-250", Label: "$100 - $250", Min: 10000, Max: 25000},
		{ID: "250-plus", Label: "$250+", Min: 25000, Max: math.MaxInt64},
	}
}
