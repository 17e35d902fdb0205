package config

import (
	"fmt"
	"math"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Skotchmaster/phenofarm/internal/catalog"
	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/internal/pricing"
)

// Pricing holds the tax rate per entry point, the default shipping fee
// applied at checkout and the catalog filter range tables.
type Pricing struct {
	Rates       pricing.Rates
	ShippingFee money.Cents
	THCRanges   []catalog.THCRange
	PriceRanges []catalog.PriceRange
}

func DefaultPricing() Pricing {
	return Pricing{
		Rates:       pricing.DefaultRates(),
		THCRanges:   catalog.DefaultTHCRanges(),
		PriceRanges: catalog.DefaultPriceRanges(),
	}
}

type pricingFile struct {
	TaxRates    map[string]string `yaml:"taxRates"`
	ShippingFee string            `yaml:"shippingFee"`
	THCRanges   []rangeFile       `yaml:"thcRanges"`
	PriceRanges []rangeFile       `yaml:"priceRanges"`
}

// rangeFile bounds are decimal strings; an empty max is unbounded.
type rangeFile struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Min   string `yaml:"min"`
	Max   string `yaml:"max"`
}

// LoadPricing returns the defaults when path is empty. Values present in
// the file replace the matching default; absent sections keep it.
func LoadPricing(path string) (Pricing, error) {
	p := DefaultPricing()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Pricing{}, fmt.Errorf("read pricing config: %w", err)
	}
	return ParsePricing(raw)
}

func ParsePricing(raw []byte) (Pricing, error) {
	p := DefaultPricing()

	var f pricingFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Pricing{}, fmt.Errorf("parse pricing config: %w", err)
	}

	for entry, s := range f.TaxRates {
		rate, err := decimal.NewFromString(s)
		if err != nil {
			return Pricing{}, fmt.Errorf("tax rate %q: %w", entry, err)
		}
		if err := pricing.ValidateRate(rate); err != nil {
			return Pricing{}, fmt.Errorf("tax rate %q: %w", entry, err)
		}
		p.Rates[entry] = rate
	}

	if f.ShippingFee != "" {
		fee, err := money.Parse(f.ShippingFee)
		if err != nil || fee < 0 {
			return Pricing{}, fmt.Errorf("shipping fee %q invalid", f.ShippingFee)
		}
		p.ShippingFee = fee
	}

	if len(f.THCRanges) > 0 {
		p.THCRanges = p.THCRanges[:0:0]
		for _, r := range f.THCRanges {
			min, max, err := bounds(r)
			if err != nil {
				return Pricing{}, err
			}
			lo, _ := min.Float64()
			hi := math.Inf(1)
			if max != nil {
				hi, _ = max.Float64()
			}
			p.THCRanges = append(p.THCRanges, catalog.THCRange{ID: r.ID, Label: r.Label, Min: lo, Max: hi})
		}
	}

	if len(f.PriceRanges) > 0 {
		p.PriceRanges = p.PriceRanges[:0:0]
		for _, r := range f.PriceRanges {
			min, max, err := bounds(r)
			if err != nil {
				return Pricing{}, err
			}
			hi := money.Cents(math.MaxInt64)
			if max != nil {
				hi = money.FromDecimal(*max)
			}
			p.PriceRanges = append(p.PriceRanges, catalog.PriceRange{ID: r.ID, Label: r.Label, Min: money.FromDecimal(min), Max: hi})
		}
	}

	return p, nil
}

func bounds(r rangeFile) (decimal.Decimal, *decimal.Decimal, error) {
	if r.ID == "" {
		return decimal.Zero, nil, fmt.Errorf("range without id")
	}
	min := decimal.Zero
	if r.Min != "" {
		v, err := decimal.NewFromString(r.Min)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("range %q min: %w", r.ID, err)
		}
		min = v
	}
	if r.Max == "" {
		return min, nil, nil
	}
	max, err := decimal.NewFromString(r.Max)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("range %q max: %w", r.ID, err)
	}
	if !max.GreaterThan(min) {
		return decimal.Zero, nil, fmt.Errorf("range %q: max must exceed min", r.ID)
	}
	return min, &max, nil
}
