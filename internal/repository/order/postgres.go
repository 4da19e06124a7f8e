package order

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `id::text, user_id::text, user_email, status, COALESCE(payment_id, ''), created_at, updated_at`

func (r *postgresRepo) CreateFromCart(ctx context.Context, user domain.User) (*domain.Order, error) {
	var out *domain.Order
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var lines int
		if err := tx.QueryRow(ctx, `
SELECT count(*) FROM (
    SELECT 1 FROM cart_items WHERE user_id = $1 FOR UPDATE
) locked
`, user.ID).Scan(&lines); err != nil {
			return err
		}
		if lines == 0 {
			return domain.ErrEmptyCart
		}

		o, err := scanOrder(tx.QueryRow(ctx, `
INSERT INTO orders (user_id, user_email, status)
VALUES ($1, $2, 'pending')
RETURNING `+orderColumns, user.ID, user.Email))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, position, product_id, product_key, title, description, price_cents, image_url, quantity)
SELECT $1, row_number() OVER (ORDER BY ci.added_at, ci.product_id), p.id, p.key, p.title, p.description, p.price_cents, p.image_url, ci.quantity
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.user_id = $2
`, o.ID, user.ID); err != nil {
			return err
		}

		if err := cartrepo.ClearUser(ctx, tx, user.ID); err != nil {
			return err
		}

		items, err := loadItems(ctx, tx, []string{o.ID})
		if err != nil {
			return err
		}
		o.Items = items[o.ID]
		out = o
		return nil
	})
	if err != nil {
		r.logger.Printf("order repo: create user_id=%s error=%v", user.ID, err)
		return nil, domain.Persistence(err)
	}
	r.logger.Printf("order repo: created id=%s user_id=%s lines=%d", out.ID, user.ID, len(out.Items))
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get id=%s error=%v", id, err)
		return nil, domain.Persistence(err)
	}
	if err := r.attachItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) LatestPending(ctx context.Context, userID string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE user_id = $1 AND status = 'pending'
ORDER BY created_at DESC
LIMIT 1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: latest pending user_id=%s error=%v", userID, err)
		return nil, domain.Persistence(err)
	}
	if err := r.attachItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByStatus(ctx context.Context, userID string, status domain.OrderStatus) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE user_id = $1 AND status = $2
ORDER BY created_at DESC
`, userID, string(status))
	if err != nil {
		r.logger.Printf("order repo: list user_id=%s status=%s error=%v", userID, status, err)
		return nil, domain.Persistence(err)
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Persistence(err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence(err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// RestorePending merges every pending order of the user back into the cart,
// one summed increment per product, and cancels those orders. Products that
// left the catalog are skipped.
func (r *postgresRepo) RestorePending(ctx context.Context, userID string) (int, error) {
	var restored int
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
SELECT id::text FROM orders
WHERE user_id = $1 AND status = 'pending'
FOR UPDATE
`, userID)
		if err != nil {
			return err
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := mergeIntoCart(ctx, tx, userID, ids); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
UPDATE orders
SET status = 'canceled', restored_at = clock_timestamp(), updated_at = clock_timestamp()
WHERE id = ANY($1::uuid[])
`, ids); err != nil {
			return err
		}
		restored = len(ids)
		return nil
	})
	if err != nil {
		r.logger.Printf("order repo: restore pending user_id=%s error=%v", userID, err)
		return 0, domain.Persistence(err)
	}
	if restored > 0 {
		r.logger.Printf("order repo: restored user_id=%s orders=%d", userID, restored)
	}
	return restored, nil
}

// Transition moves the order to status to when the current status allows it.
// The boolean reports whether a row changed; an order already in status to is
// returned unchanged without error.
// RestoreCanceled merges one canceled order of the user back into the cart
// and marks it restored. Orders that are not canceled, belong to someone
// else or were restored before are left alone and reported as false.
func (r *postgresRepo) RestoreCanceled(ctx context.Context, userID, orderID string) (bool, error) {
	var restored bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `
SELECT id::text FROM orders
WHERE id = $1 AND user_id = $2 AND status = 'canceled' AND restored_at IS NULL
FOR UPDATE
`, orderID, userID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := mergeIntoCart(ctx, tx, userID, []string{id}); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
UPDATE orders
SET restored_at = clock_timestamp(), updated_at = clock_timestamp()
WHERE id = $1
`, id); err != nil {
			return err
		}
		restored = true
		return nil
	})
	if err != nil {
		r.logger.Printf("order repo: restore canceled id=%s error=%v", orderID, err)
		return false, domain.Persistence(err)
	}
	if restored {
		r.logger.Printf("order repo: restored canceled id=%s user_id=%s", orderID, userID)
	}
	return restored, nil
}

// mergeIntoCart adds the summed quantities of the orders to the cart, one
// increment per product. Products that left the catalog are skipped.
func mergeIntoCart(ctx context.Context, tx pgx.Tx, userID string, orderIDs []string) error {
	_, err := tx.Exec(ctx, `
INSERT INTO cart_items (user_id, product_id, quantity)
SELECT $1, oi.product_id, SUM(oi.quantity)
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = ANY($2::uuid[])
GROUP BY oi.product_id
ON CONFLICT (user_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
`, userID, orderIDs)
	return err
}

func (r *postgresRepo) Transition(ctx context.Context, id string, to domain.OrderStatus, paymentID string) (*domain.Order, bool, error) {
	var from []string
	for _, s := range domain.SourcesOf(to) {
		from = append(from, string(s))
	}

	o, err := scanOrder(r.pool.QueryRow(ctx, `
UPDATE orders
SET status = $2,
    payment_id = COALESCE(NULLIF($3, ''), payment_id),
    updated_at = clock_timestamp()
WHERE id = $1 AND status = ANY($4::text[])
RETURNING `+orderColumns, id, string(to), paymentID, from))
	if err == nil {
		if err := r.attachItems(ctx, o); err != nil {
			return nil, false, err
		}
		r.logger.Printf("order repo: transition id=%s status=%s", id, to)
		return o, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Printf("order repo: transition id=%s to=%s error=%v", id, to, err)
		return nil, false, domain.Persistence(err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current.Status == to {
		return current, false, nil
	}
	return current, false, domain.ErrIllegalTransition
}

func (r *postgresRepo) attachItems(ctx context.Context, o *domain.Order) error {
	items, err := loadItems(ctx, r.pool, []string{o.ID})
	if err != nil {
		r.logger.Printf("order repo: items id=%s error=%v", o.ID, err)
		return domain.Persistence(err)
	}
	o.Items = items[o.ID]
	return nil
}

func loadItems(ctx context.Context, q db.Querier, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `
SELECT order_id::text, product_id::text, product_key, title, COALESCE(description, ''), price_cents, COALESCE(image_url, ''), quantity
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(
			&orderID,
			&item.Product.ID,
			&item.Product.Key,
			&item.Product.Title,
			&item.Product.Description,
			&item.Product.PriceCents,
			&item.Product.ImageURL,
			&item.Quantity,
		); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], item)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &status, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
