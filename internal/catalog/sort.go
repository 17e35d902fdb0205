package catalog

import (
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortOption string

const (
	SortDefault   SortOption = "default"
	SortPriceAsc  SortOption = "price-asc"
	SortPriceDesc SortOption = "price-desc"
	SortTHCAsc    SortOption = "thc-asc"
	SortTHCDesc   SortOption = "thc-desc"
	SortNameAsc   SortOption = "name-asc"
	SortNameDesc  SortOption = "name-desc"
)

func ParseSortOption(s string) (SortOption, error) {
	switch o := SortOption(s); o {
	case "":
		return SortDefault, nil
	case SortDefault, SortPriceAsc, SortPriceDesc, SortTHCAsc, SortTHCDesc, SortNameAsc, SortNameDesc:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

func thcOrZero(p Product) float64 {
	if p.THC == nil {
		return 0
	}
	return *p.THC
}

// Sort returns a stably sorted copy. SortDefault keeps the input order.
func Sort(products []Product, opt SortOption) []Product {
	out := slices.Clone(products)

	var cmp func(a, b Product) int
	switch opt {
	case SortPriceAsc:
		cmp = func(a, b Product) int { return compareOrdered(a.Price, b.Price) }
	case SortPriceDesc:
		cmp = func(a, b Product) int { return compareOrdered(b.Price, a.Price) }
	case SortTHCAsc:
		cmp = func(a, b Product) int { return compareOrdered(thcOrZero(a), thcOrZero(b)) }
	case SortTHCDesc:
		cmp = func(a, b Product) int { return compareOrdered(thcOrZero(b), thcOrZero(a)) }
	case SortNameAsc, SortNameDesc:
		// collate.Collator keeps internal buffers; one per call.
		col := collate.New(language.English)
		if opt == SortNameAsc {
			cmp = func(a, b Product) int { return col.CompareString(a.Name, b.Name) }
		} else {
			cmp = func(a, b Product) int { return col.CompareString(b.Name, a.Name) }
		}
	default:
		return out
	}

	slices.SortStableFunc(out, cmp)
	return out
}

func compareOrdered[T ~int64 | ~float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Arrange applies a sort to grower-grouped listings. The default sort keeps
// the server's grower grouping; any other sort flattens everything into a
// single "All Products" group.
func Arrange(groups []Group, opt SortOption) []Group {
	if opt == SortDefault || opt == "" {
		return groups
	}

	var all []Product
	for _, g := range groups {
		all = append(all, g.Products...)
	}
	return []Group{{GrowerName: AllProductsGroup, Products: Sort(all, opt)}}
}

// GroupByGrower groups products in first-seen grower order.
func GroupByGrower(products []Product) []Group {
	var groups []Group
	for _, p := range products {
		i := slices.IndexFunc(groups, func(g Group) bool { return g.GrowerID == p.GrowerID })
		if i < 0 {
			groups = append(groups, Group{GrowerID: p.GrowerID, GrowerName: p.GrowerName})
			i = len(groups) - 1
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
}
