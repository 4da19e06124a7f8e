package product

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	Count(ctx context.Context) (int, error)
	ListPage(ctx context.Context, offset, limit int) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
