// Package inventory checks requested quantities against a product's stock
// ceiling. The checks are advisory feedback for the buyer; the authoritative
// stock decrement happens in the order repository.
package inventory

import (
	"errors"
	"fmt"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// StockError carries the buyer-facing message for a rejected add.
type StockError struct {
	Requested int
	Remaining int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Cannot add %d more. Only %d available.", e.Requested, e.Remaining)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

func CanAdd(currentQtyInCart, requestedQty, inventoryQty int) bool {
	if requestedQty < 1 {
		return false
	}
	return currentQtyInCart+requestedQty <= inventoryQty
}

func Remaining(currentQtyInCart, inventoryQty int) int {
	if r := inventoryQty - currentQtyInCart; r > 0 {
		return r
	}
	return 0
}

// Check is CanAdd with the rejection message attached.
func Check(currentQtyInCart, requestedQty, inventoryQty int) error {
	if CanAdd(currentQtyInCart, requestedQty, inventoryQty) {
		return nil
	}
	return &StockError{Requested: requestedQty, Remaining: Remaining(currentQtyInCart, inventoryQty)}
}

// Clamp bounds a stepper value into [1, max]. A max below 1 still yields 1;
// callers that care about empty stock check CanAdd first.
func Clamp(qty, max int) int {
	if qty > max {
		qty = max
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}
