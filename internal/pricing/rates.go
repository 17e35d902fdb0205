package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rates maps an entry point to its tax rate.
type Rates map[string]decimal.Decimal

func DefaultRates() Rates {
	return Rates{
		EntryCatalogCheckout:   decimal.RequireFromString("0.10"),
		EntryGrowerManualEntry: decimal.RequireFromString("0.06"),
	}
}

func (r Rates) For(entry string) (decimal.Decimal, error) {
	rate, ok := r[entry]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no rate configured for %q", ErrInvalidRate, entry)
	}
	return rate, nil
}
