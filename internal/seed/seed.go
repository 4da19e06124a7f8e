package seed

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"storefront/internal/domain"
)

// DemoEmail and DemoPassword identify the shopper account created by Apply.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "Demo12345"
)

type productWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type userStore interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

var demoProducts = []domain.Product{
	{
		Key:         "demo-shirt",
		Title:       "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		PriceCents:  1999,
		ImageURL:    "https://picsum.photos/seed/shirt/400/300",
	},
	{
		Key:         "demo-mug",
		Title:       "Demo Mug",
		Description: "Ceramic mug with demo logo",
		PriceCents:  1299,
		ImageURL:    "https://picsum.photos/seed/mug/400/300",
	},
	{
		Key:         "demo-book",
		Title:       "Demo Book",
		Description: "Paperback notebook, 120 pages",
		PriceCents:  899,
		ImageURL:    "https://picsum.photos/seed/book/400/300",
	},
	{
		Key:         "demo-poster",
		Title:       "Demo Poster",
		Description: "A2 poster printed on matte paper",
		PriceCents:  1500,
		ImageURL:    "https://picsum.photos/seed/poster/400/300",
	},
	{
		Key:         "demo-cap",
		Title:       "Demo Cap",
		Description: "Adjustable baseball cap",
		PriceCents:  1150,
		ImageURL:    "https://picsum.photos/seed/cap/400/300",
	},
}

// Apply inserts basic seed data for manual testing. Products are upserted by
// key and the demo user is only created when missing, so it can be rerun.
func Apply(ctx context.Context, products productWriter, users userStore) error {
	for _, p := range demoProducts {
		if _, err := products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
	}

	if err := ensureDemoUser(ctx, users); err != nil {
		return fmt.Errorf("ensure demo user: %w", err)
	}
	return nil
}

func ensureDemoUser(ctx context.Context, users userStore) error {
	_, err := users.GetByEmail(ctx, DemoEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = users.Create(ctx, domain.User{Email: DemoEmail, PasswordHash: string(hashed)})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil
	}
	return err
}
