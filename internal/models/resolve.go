package models

import "github.com/Skotchmaster/phenofarm/internal/catalog"

// DisplayTHC applies batch?.thc ?? thcLegacy ?? nil.
func (p *Product) DisplayTHC() *float64 {
	if p.Batch != nil && p.Batch.THC != nil {
		return p.Batch.THC
	}
	return p.THCLegacy
}

// DisplayCBD applies the same precedence as DisplayTHC.
func (p *Product) DisplayCBD() *float64 {
	if p.Batch != nil && p.Batch.CBD != nil {
		return p.Batch.CBD
	}
	return p.CBDLegacy
}

// DisplayStrain prefers the linked strain, then the batch's strain, then
// the free-text legacy name.
func (p *Product) DisplayStrain() string {
	switch {
	case p.Strain != nil && p.Strain.Name != "":
		return p.Strain.Name
	case p.Batch != nil && p.Batch.Strain != nil && p.Batch.Strain.Name != "":
		return p.Batch.Strain.Name
	}
	return p.StrainLegacy
}

func (p *Product) CatalogView() catalog.Product {
	return catalog.Product{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		GrowerID:     p.GrowerID,
		GrowerName:   p.GrowerName,
		ProductType:  p.ProductType,
		SubType:      p.SubType,
		Strain:       p.DisplayStrain(),
		Price:        p.Price,
		THC:          p.DisplayTHC(),
		CBD:          p.DisplayCBD(),
		InventoryQty: p.InventoryQty,
		Unit:         p.Unit,
		IsAvailable:  p.IsAvailable,
		Images:       p.Images,
	}
}

func CatalogViews(products []Product) []catalog.Product {
	out := make([]catalog.Product, len(products))
	for i := range products {
		out[i] = products[i].CatalogView()
	}
	return out
}
