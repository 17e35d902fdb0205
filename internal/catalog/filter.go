package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownRange = errors.New("unknown range")

type Criteria struct {
	ProductTypes  []string `json:"productTypes"`
	THCRangeIDs   []string `json:"thcRangeIds"`
	PriceRangeIDs []string `json:"priceRangeIds"`
	SearchQuery   string   `json:"searchQuery"`
}

type Engine struct {
	THCRanges   []THCRange
	PriceRanges []PriceRange
}

func NewEngine(thc []THCRange, price []PriceRange) *Engine {
	if len(thc) == 0 {
		thc = DefaultTHCRanges()
	}
	if len(price) == 0 {
		price = DefaultPriceRanges()
	}
	return &Engine{THCRanges: thc, PriceRanges: price}
}

// Validate reports range ids the engine does not know about.
func (e *Engine) Validate(c Criteria) error {
	for _, id := range c.THCRangeIDs {
		if !slices.ContainsFunc(e.THCRanges, func(r THCRange) bool { return r.ID == id }) {
			return fmt.Errorf("%w: thc %q", ErrUnknownRange, id)
		}
	}
	for _, id := range c.PriceRangeIDs {
		if !slices.ContainsFunc(e.PriceRanges, func(r PriceRange) bool { return r.ID == id }) {
			return fmt.Errorf("%w: price %q", ErrUnknownRange, id)
		}
	}
	return nil
}

// Filter keeps products matching every active category. Inside a category
// any selected value matches. A product missing the filtered attribute does
// not match an active category.
func (e *Engine) Filter(products []Product, c Criteria) []Product {
	thc := pick(e.THCRanges, c.THCRangeIDs, func(r THCRange) string { return r.ID })
	price := pick(e.PriceRanges, c.PriceRangeIDs, func(r PriceRange) string { return r.ID })
	query := strings.ToLower(strings.TrimSpace(c.SearchQuery))

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if len(c.ProductTypes) > 0 && !matchesType(p, c.ProductTypes) {
			continue
		}
		if len(c.THCRangeIDs) > 0 && !matchesTHC(p, thc) {
			continue
		}
		if len(c.PriceRangeIDs) > 0 && !matchesPrice(p, price) {
			continue
		}
		if query != "" && !matchesSearch(p, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func pick[T any](all []T, ids []string, id func(T) string) []T {
	var out []T
	for _, r := range all {
		if slices.Contains(ids, id(r)) {
			out = append(out, r)
		}
	}
	return out
}

func matchesType(p Product, types []string) bool {
	if p.ProductType == "" {
		return false
	}
	return slices.ContainsFunc(types, func(t string) bool { return strings.EqualFold(t, p.ProductType) })
}

func matchesTHC(p Product, ranges []THCRange) bool {
	if p.THC == nil {
		return false
	}
	return slices.ContainsFunc(ranges, func(r THCRange) bool { return r.Contains(*p.THC) })
}

func matchesPrice(p Product, ranges []PriceRange) bool {
	return slices.ContainsFunc(ranges, func(r PriceRange) bool { return r.Contains(p.Price) })
}

func matchesSearch(p Product, query string) bool {
	for _, field := range []string{p.Name, p.Strain, p.GrowerName, p.ProductType, p.SubType, p.Description} {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
