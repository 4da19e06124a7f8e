package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusCanceled OrderStatus = "canceled"
	OrderStatusPaid     OrderStatus = "paid"
)

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid
}

// CanTransitionTo lists the allowed lifecycle moves. canceled -> paid exists
// because payment initiation cancels the order before the provider round trip.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusCanceled || next == OrderStatusPaid
	case OrderStatusCanceled:
		return next == OrderStatusPaid
	default:
		return false
	}
}

// SourcesOf returns every status that may move to next.
func SourcesOf(next OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusCanceled, OrderStatusPaid} {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is a frozen copy of a product at order time.
type OrderItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is the snapshot price times quantity.
func (i OrderItem) LineTotal() Money {
	return MoneyFromCents(i.Product.PriceCents * int64(i.Quantity))
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	UserEmail string      `json:"email"`
	Status    OrderStatus `json:"status"`
	PaymentID string      `json:"paymentId,omitempty"`
	Items     []OrderItem `json:"products"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Total sums price*quantity over the snapshot.
func (o Order) Total() Money {
	total := Zero()
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OwnedBy is the invoice authorization check.
func (o Order) OwnedBy(userID string) bool {
	return o.UserID == userID
}
