package domain

import "github.com/shopspring/decimal"

// CartView groups a renter's DRAFT rentals for bulk checkout. Total is the sum of
// the locked prices of exactly the rentals listed.
type CartView struct {
	RenterID string              `json:"renter_id"`
	Rentals  []RentalTransaction `json:"rentals"`
	Total    decimal.Decimal     `json:"total"`
}

func NewCartView(renterID string, rentals []RentalTransaction) *CartView {
	total := decimal.Zero
	for _, rt := range rentals {
		total = total.Add(rt.TotalPrice)
	}
	if rentals == nil {
		rentals = []RentalTransaction{}
	}
	return &CartView{RenterID: renterID, Rentals: rentals, Total: total}
}
