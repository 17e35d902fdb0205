// Package pricing derives order and cart totals from line items.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/phenofarm/internal/money"
)

// Entry points carry their own tax rate. The catalog checkout and the grower
// manual order entry historically used different rates; they are kept apart
// until product confirms whether that divergence is intended.
const (
	EntryCatalogCheckout   = "catalog_checkout"
	EntryGrowerManualEntry = "grower_manual_entry"
)

var ErrInvalidRate = errors.New("invalid tax rate")

type Line struct {
	Quantity  int
	UnitPrice money.Cents
}

type Totals struct {
	Subtotal money.Cents `json:"subtotal"`
	Tax      money.Cents `json:"tax"`
	Shipping money.Cents `json:"shipping"`
	Total    money.Cents `json:"total"`
}

func LineTotal(quantity int, unitPrice money.Cents) money.Cents {
	return unitPrice.Mul(quantity)
}

func Subtotal(lines []Line) money.Cents {
	var sum money.Cents
	for _, l := range lines {
		sum += LineTotal(l.Quantity, l.UnitPrice)
	}
	return sum
}

// ComputeTotals is the single derivation used by the cart, checkout and the
// grower order edit flow: subtotal, tax = subtotal*rate, total = all three.
func ComputeTotals(lines []Line, shippingFee money.Cents, taxRate decimal.Decimal) Totals {
	subtotal := Subtotal(lines)
	tax := subtotal.MulRate(taxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shippingFee,
		Total:    subtotal + tax + shippingFee,
	}
}

func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s must be in [0, 1)", ErrInvalidRate, rate)
	}
	return nil
}
