package product

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/migrate"
)

func TestPostgres_CountAndListPage(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)
	for i := 1; i <= 5; i++ {
		if _, err := repo.Upsert(ctx, domain.Product{
			Key:        fmt.Sprintf("p%d", i),
			Title:      fmt.Sprintf("Product %d", i),
			PriceCents: int64(i * 100),
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	total, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 products, got %d", total)
	}

	page, err := repo.ListPage(ctx, 4, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page) != 1 || page[0].Key != "p5" {
		t.Fatalf("unexpected last page %+v", page)
	}

	got, err := repo.GetByID(ctx, page[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Product 5" || got.PriceCents != 500 {
		t.Fatalf("unexpected product %+v", got)
	}
}

func TestPostgres_UpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)
	first, err := repo.Upsert(ctx, domain.Product{Key: "mug", Title: "Mug", PriceCents: 900})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	second, err := repo.Upsert(ctx, domain.Product{Key: "mug", Title: "Mug v2", PriceCents: 1100, ImageURL: "https://example.com/mug.png"})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same id, got %s and %s", first.ID, second.ID)
	}
	got, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Mug v2" || got.ImageURL != "https://example.com/mug.png" {
		t.Fatalf("update not applied: %+v", got)
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
