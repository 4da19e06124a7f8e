package cache

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// Page is one cached window of the catalog together with the total count it
// was computed against.
type Page struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
}

// PageCache stores catalog pages keyed by page number and page size.
type PageCache interface {
	Get(ctx context.Context, page, size int) (*Page, error)
	Set(ctx context.Context, page, size int, p *Page) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop never hits. It is used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, int, int) (*Page, error) { return nil, ErrCacheMiss }

func (Noop) Set(context.Context, int, int, *Page) error { return nil }
