package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"storefront/internal/domain"
)

type cartRepo interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// pendingRestorer folds pending orders back into the cart and cancels them.
type pendingRestorer interface {
	RestorePending(ctx context.Context, userID string) (int, error)
}

type Service struct {
	repo        cartRepo
	productRepo productRepo
	orders      pendingRestorer
	logger      *log.Logger
}

func New(repo cartRepo, productRepo productRepo, orders pendingRestorer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, productRepo: productRepo, orders: orders, logger: logger}
}

// Add puts one unit of the product into the user's cart, merging with an
// existing line for the same product.
func (s *Service) Add(ctx context.Context, userID, productID string) error {
	productID = strings.TrimSpace(productID)
	if _, err := uuid.Parse(productID); err != nil {
		return domain.Validation("productId must be a valid id")
	}
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("load product: %w", domain.Persistence(err))
	}
	if err := s.repo.AddItem(ctx, userID, productID, 1); err != nil {
		return fmt.Errorf("add cart item: %w", domain.Persistence(err))
	}
	s.logger.Printf("cart: add user_id=%s product_id=%s", userID, productID)
	return nil
}

// Remove drops the product's line. Removing a product that is not in the cart
// is not an error.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	productID = strings.TrimSpace(productID)
	if _, err := uuid.Parse(productID); err != nil {
		return domain.Validation("productId must be a valid id")
	}
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return fmt.Errorf("remove cart item: %w", domain.Persistence(err))
	}
	return nil
}

// View reconciles any pending order of the user back into the cart before
// returning the populated cart.
func (s *Service) View(ctx context.Context, userID string) (*domain.Cart, error) {
	restored, err := s.orders.RestorePending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("restore pending orders: %w", domain.Persistence(err))
	}
	if restored > 0 {
		s.logger.Printf("cart: restored pending orders user_id=%s count=%d", userID, restored)
	}
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", domain.Persistence(err))
	}
	return &domain.Cart{UserID: userID, Items: items}, nil
}
