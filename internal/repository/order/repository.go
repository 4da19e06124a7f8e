package order

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists orders and their item snapshots. Methods touching both
// orders and cart_items run in one transaction.
type Repository interface {
	CreateFromCart(ctx context.Context, user domain.User) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	LatestPending(ctx context.Context, userID string) (*domain.Order, error)
	ListByStatus(ctx context.Context, userID string, status domain.OrderStatus) ([]domain.Order, error)
	RestorePending(ctx context.Context, userID string) (int, error)
	RestoreCanceled(ctx context.Context, userID, orderID string) (bool, error)
	Transition(ctx context.Context, id string, to domain.OrderStatus, paymentID string) (*domain.Order, bool, error)
}
