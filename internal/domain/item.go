package domain

import "github.com/shopspring/decimal"

// Item is the slice of a catalog listing the booking engine reads. Listings are
// owned by the catalog; this side never writes them.
type Item struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	Available   bool            `json:"available"`
}
