package cart

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/migrate"
)

func TestPostgres_AddSameProductTwiceMerges(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	userID, productID := seedUserAndProduct(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	for i := 0; i < 2; i++ {
		if err := repo.AddItem(ctx, userID, productID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	items, err := repo.List(ctx, userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", items)
	}
	if items[0].Product.Title != "Book" || items[0].Product.PriceCents != 1250 {
		t.Fatalf("product not populated: %+v", items[0].Product)
	}
}

func TestPostgres_RemoveAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	userID, productID := seedUserAndProduct(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	if err := repo.AddItem(ctx, userID, productID, 3); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := repo.RemoveItem(ctx, userID, "00000000-0000-0000-0000-000000000000"); err != nil {
		t.Fatalf("RemoveItem absent: %v", err)
	}
	items, err := repo.List(ctx, userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("cart changed: %+v", items)
	}

	if err := repo.Clear(ctx, userID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	items, err = repo.List(ctx, userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %+v", items)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if _, err := migrate.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE order_items, orders, cart_items, sessions, products, users CASCADE`); err != nil {
		pool.Close()
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

func seedUserAndProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool) (string, string) {
	t.Helper()
	var userID, productID string
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, password_hash) VALUES ('a@example.com', 'x') RETURNING id::text`).Scan(&userID); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO products (key, title, price_cents) VALUES ('book', 'Book', 1250) RETURNING id::text`).Scan(&productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return userID, productID
}
