package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository owns the cart_items rows of each user.
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
