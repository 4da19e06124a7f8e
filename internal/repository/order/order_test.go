package order

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/migrate"
	cartrepo "storefront/internal/repository/cart"
)

func TestPostgres_RestoreCanceledOnce(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	user, productID := seedUserAndProduct(ctx, t, pool)

	carts := cartrepo.NewPostgres(pool, nil)
	repo := NewPostgres(pool, nil)
	if err := carts.AddItem(ctx, user.ID, productID, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	o, err := repo.CreateFromCart(ctx, user)
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	canceled, changed, err := repo.Transition(ctx, o.ID, domain.OrderStatusCanceled, "PAY-1")
	if err != nil || !changed {
		t.Fatalf("Transition: changed=%v err=%v", changed, err)
	}
	if canceled.PaymentID != "PAY-1" {
		t.Fatalf("payment id not recorded: %+v", canceled)
	}

	if restored, err := repo.RestoreCanceled(ctx, "00000000-0000-0000-0000-000000000000", o.ID); err != nil || restored {
		t.Fatalf("foreign user restored=%v err=%v", restored, err)
	}
	for i, want := range []bool{true, false} {
		restored, err := repo.RestoreCanceled(ctx, user.ID, o.ID)
		if err != nil {
			t.Fatalf("RestoreCanceled #%d: %v", i+1, err)
		}
		if restored != want {
			t.Fatalf("RestoreCanceled #%d: expected %v, got %v", i+1, want, restored)
		}
	}

	items, err := carts.List(ctx, user.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected the order quantities back in the cart, got %+v", items)
	}
}

func TestPostgres_RestorePendingMarksRestored(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	user, productID := seedUserAndProduct(ctx, t, pool)

	carts := cartrepo.NewPostgres(pool, nil)
	repo := NewPostgres(pool, nil)
	if err := carts.AddItem(ctx, user.ID, productID, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	o, err := repo.CreateFromCart(ctx, user)
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if n, err := repo.RestorePending(ctx, user.ID); err != nil || n != 1 {
		t.Fatalf("RestorePending: n=%d err=%v", n, err)
	}
	if restored, err := repo.RestoreCanceled(ctx, user.ID, o.ID); err != nil || restored {
		t.Fatalf("order restored twice: restored=%v err=%v", restored, err)
	}

	items, err := carts.List(ctx, user.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("unexpected cart %+v", items)
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

func seedUserAndProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool) (domain.User, string) {
	t.Helper()
	user := domain.User{Email: "a@example.com"}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, password_hash) VALUES ($1, 'x') RETURNING id::text`, user.Email).Scan(&user.ID); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	var productID string
	if err := pool.QueryRow(ctx, `INSERT INTO products (key, title, price_cents) VALUES ('book', 'Book', 1250) RETURNING id::text`).Scan(&productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return user, productID
}
