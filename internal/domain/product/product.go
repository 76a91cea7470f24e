package product

import (
	"fmt"
	"sort"

	"github.com/go-faster/errors"
)

// Product represents a vending slot as last reported by the server. Cost is
// the price of one unit in cents; Available is the number of units left.
type Product struct {
	ID        int64
	Name      string
	Cost      int64
	Available int
}

// Sentinel errors for payload validation. These are rejected locally and
// never reach the server.
var (
	ErrEmptyName        = errors.New("product name required")
	ErrCostNotMultiple  = errors.New("cost must be a multiple of 5 cents")
	ErrCostTooLow       = errors.New("cost must be at least 5 cents")
	ErrNoUnits          = errors.New("at least one unit required")
	ErrNotFound         = errors.New("product not found")
	ErrInvalidBuyAmount = errors.New("amount must be greater than 0")
)

// InsufficientUnitsError indicates a buy request for more units than the
// catalog currently shows as available.
type InsufficientUnitsError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientUnitsError) Error() string {
	return fmt.Sprintf("product %d has %d units available, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// Payload holds the seller-supplied fields for creating or updating a
// product. The server assigns the ID.
type Payload struct {
	Name      string
	Cost      int64
	Available int
}

// Validate applies the vending machine's product constraints: a name, a cost
// of at least 5 cents in 5-cent increments, and at least one unit.
func (p Payload) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if p.Cost < 5 {
		return ErrCostTooLow
	}
	if p.Cost%5 != 0 {
		return ErrCostNotMultiple
	}
	if p.Available < 1 {
		return ErrNoUnits
	}
	return nil
}

// Receipt is the transient result of a purchase. Change lists the coins
// returned, verbatim from the server; it is surfaced once and not stored.
type Receipt struct {
	Spent       int64
	ProductName string
	Change      []int64
}

// Sort orders products ascending by name, ties broken by ID so the order is
// stable across refreshes.
func Sort(products []Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
}
