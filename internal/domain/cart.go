package domain

import "time"

// CartItem is one line of a user's live cart. It references the product by
// identity; Product is populated on reads.
type CartItem struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
	Product   Product   `json:"product"`
}

// LineTotal is the unit price times quantity.
func (i CartItem) LineTotal() Money {
	return MoneyFromCents(i.Product.PriceCents * int64(i.Quantity))
}

// Cart is the ordered list of items owned by a user.
type Cart struct {
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
}

// Total sums every line of the cart.
func (c Cart) Total() Money {
	total := Zero()
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}
