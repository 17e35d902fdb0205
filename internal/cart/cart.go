package cart

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/internal/pricing"
)

type Item struct {
	ProductID  uuid.UUID   `json:"productId"`
	Name       string      `json:"name"`
	GrowerID   uuid.UUID   `json:"growerId"`
	GrowerName string      `json:"growerName"`
	UnitPrice  money.Cents `json:"unitPrice"`
	Quantity   int         `json:"quantity"`
	MaxQty     int         `json:"maxQty"`
	Strain     string      `json:"strain,omitempty"`
	Unit       string      `json:"unit,omitempty"`
	THCPercent *float64    `json:"thcPercent,omitempty"`
}

func (i Item) LineTotal() money.Cents {
	return pricing.LineTotal(i.Quantity, i.UnitPrice)
}

// Cart keeps items in insertion order. Totals are derived and recomputed on
// every mutation.
type Cart struct {
	Items    []Item      `json:"items"`
	Subtotal money.Cents `json:"subtotal"`
	Tax      money.Cents `json:"tax"`
	Total    money.Cents `json:"total"`
}

// Product is the catalog snapshot an add is validated against.
type Product struct {
	ID           uuid.UUID
	Name         string
	UnitPrice    money.Cents
	InventoryQty int
	Strain       string
	Unit         string
	THCPercent   *float64
}

type Grower struct {
	ID   uuid.UUID
	Name string
}

func Empty() *Cart {
	return &Cart{Items: []Item{}}
}

func (c *Cart) index(productID uuid.UUID) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ProductID == productID })
}

func (c *Cart) Find(productID uuid.UUID) (Item, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

func (c *Cart) Quantity(productID uuid.UUID) int {
	it, _ := c.Find(productID)
	return it.Quantity
}

func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return lines
}

// Recalculate derives subtotal, tax and total. The cart carries no shipping.
func (c *Cart) Recalculate(taxRate decimal.Decimal) {
	t := pricing.ComputeTotals(c.Lines(), 0, taxRate)
	c.Subtotal = t.Subtotal
	c.Tax = t.Tax
	c.Total = t.Total
}

// GrowerGroup is the slice of a cart fulfilled by one grower.
type GrowerGroup struct {
	GrowerID   uuid.UUID
	GrowerName string
	Items      []Item
}

// ByGrower splits the cart by grower, groups ordered by first appearance.
func (c *Cart) ByGrower() []GrowerGroup {
	var groups []GrowerGroup
	pos := map[uuid.UUID]int{}
	for _, it := range c.Items {
		i, ok := pos[it.GrowerID]
		if !ok {
			i = len(groups)
			pos[it.GrowerID] = i
			groups = append(groups, GrowerGroup{GrowerID: it.GrowerID, GrowerName: it.GrowerName})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// sanitize restores invariants on data read back from storage.
func (c *Cart) sanitize() {
	if c.Items == nil {
		c.Items = []Item{}
		return
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID == uuid.Nil || it.Quantity < 1 {
			continue
		}
		if it.MaxQty >= 1 && it.Quantity > it.MaxQty {
			it.Quantity = it.MaxQty
		}
		kept = append(kept, it)
	}
	c.Items = kept
}
