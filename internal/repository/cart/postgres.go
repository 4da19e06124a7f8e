package cart

import (
	"context"
	"io"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
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

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	const q = `
SELECT ci.product_id::text, ci.quantity, ci.added_at,
       p.key, p.title, COALESCE(p.description, ''), p.price_cents, COALESCE(p.image_url, ''), p.created_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.user_id = $1
ORDER BY ci.added_at ASC, ci.product_id ASC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Printf("cart repo: list user_id=%s error=%v", userID, err)
		return nil, domain.Persistence(err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ProductID,
			&item.Quantity,
			&item.AddedAt,
			&item.Product.Key,
			&item.Product.Title,
			&item.Product.Description,
			&item.Product.PriceCents,
			&item.Product.ImageURL,
			&item.Product.CreatedAt,
		); err != nil {
			return nil, domain.Persistence(err)
		}
		item.Product.ID = item.ProductID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence(err)
	}
	return items, nil
}

func (r *postgresRepo) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	if err := MergeQuantity(ctx, r.pool, userID, productID, quantity); err != nil {
		r.logger.Printf("cart repo: add user_id=%s product_id=%s error=%v", userID, productID, err)
		return domain.Persistence(err)
	}
	return nil
}

func (r *postgresRepo) RemoveItem(ctx context.Context, userID, productID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		r.logger.Printf("cart repo: remove user_id=%s product_id=%s error=%v", userID, productID, err)
		return domain.Persistence(err)
	}
	if cmd.RowsAffected() == 0 {
		r.logger.Printf("cart repo: remove user_id=%s product_id=%s absent", userID, productID)
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	if err := ClearUser(ctx, r.pool, userID); err != nil {
		return domain.Persistence(err)
	}
	return nil
}

// MergeQuantity adds quantity to the user's line for productID, creating the
// line when missing. It runs as a single statement so concurrent adds never
// lose an increment.
func MergeQuantity(ctx context.Context, q db.Querier, userID, productID string, quantity int) error {
	_, err := q.Exec(ctx, `
INSERT INTO cart_items (user_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
`, userID, productID, quantity)
	return err
}

// ClearUser deletes every cart line of the user.
func ClearUser(ctx context.Context, q db.Querier, userID string) error {
	_, err := q.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}
