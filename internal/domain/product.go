package domain

import "time"

// Product is a catalog entry. The storefront never mutates products; they are
// loaded by the seed and importer commands.
type Product struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Price returns the unit price as a decimal amount.
func (p Product) Price() Money {
	return MoneyFromCents(p.PriceCents)
}
