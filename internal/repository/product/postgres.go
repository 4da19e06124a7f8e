package product

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
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

func (r *postgresRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		r.logger.Printf("product repo: count error=%v", err)
		return 0, domain.Persistence(err)
	}
	return n, nil
}

func (r *postgresRepo) ListPage(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	const q = `
SELECT id::text, key, title, COALESCE(description, ''), price_cents, COALESCE(image_url, ''), created_at
FROM products
ORDER BY created_at ASC, id ASC
OFFSET $1
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, offset, limit)
	if err != nil {
		r.logger.Printf("product repo: list offset=%d limit=%d error=%v", offset, limit, err)
		return nil, domain.Persistence(err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0, limit)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Key, &p.Title, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, domain.Persistence(err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows offset=%d error=%v", offset, err)
		return nil, domain.Persistence(err)
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT id::text, key, title, COALESCE(description, ''), price_cents, COALESCE(image_url, ''), created_at
FROM products
WHERE id = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Key, &p.Title, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, domain.Persistence(err)
	}
	return &p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (key, title, description, price_cents, image_url)
VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''))
ON CONFLICT (key) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    image_url = EXCLUDED.image_url
RETURNING id::text, created_at
`
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.Key,
		product.Title,
		product.Description,
		product.PriceCents,
		product.ImageURL,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert key=%s error=%v", product.Key, err)
		return nil, domain.Persistence(err)
	}
	r.logger.Printf("product repo: upserted key=%s id=%s", res.Key, res.ID)
	return &res, nil
}
