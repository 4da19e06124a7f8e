package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"storefront/internal/cache"
	"storefront/internal/domain"
)

// DefaultPageSize is the number of products shown per catalog page.
const DefaultPageSize = 2

type productRepo interface {
	Count(ctx context.Context) (int, error)
	ListPage(ctx context.Context, offset, limit int) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Service reads the product catalog. Pages may be served from a cache; the
// cache is never authoritative and any cache failure falls back to the store.
type Service struct {
	repo     productRepo
	cache    cache.PageCache
	pageSize int
	logger   *log.Logger
	sfg      singleflight.Group
}

func New(repo productRepo, pages cache.PageCache, pageSize int, logger *log.Logger) *Service {
	if pages == nil {
		pages = cache.Noop{}
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, cache: pages, pageSize: pageSize, logger: logger}
}

// Page is a window of the catalog plus the navigation the views render.
type Page struct {
	Products        []domain.Product
	CurrentPage     int
	HasNextPage     bool
	HasPreviousPage bool
	NextPage        int
	PreviousPage    int
	LastPage        int
	TotalProducts   int
}

// ParsePage turns a query value into a page number. Anything that is not a
// positive integer is page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ListPage returns page p of the catalog. Pages past the end are empty but
// still carry the navigation fields.
func (s *Service) ListPage(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	cached, err := s.cache.Get(ctx, page, s.pageSize)
	if err == nil {
		return s.paginate(page, cached.Total, cached.Products), nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Printf("catalog: cache get page=%d err=%v", page, err)
	}

	key := fmt.Sprintf("%d:%d", s.pageSize, page)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		total, err := s.repo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count products: %w", domain.Persistence(err))
		}
		products, err := s.repo.ListPage(ctx, (page-1)*s.pageSize, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", domain.Persistence(err))
		}
		fresh := &cache.Page{Products: products, Total: total}
		if err := s.cache.Set(ctx, page, s.pageSize, fresh); err != nil {
			s.logger.Printf("catalog: cache set page=%d err=%v", page, err)
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	fresh := v.(*cache.Page)
	return s.paginate(page, fresh.Total, fresh.Products), nil
}

// Get returns one product. Ids that are not UUIDs are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, domain.ErrNotFound
	}
	p, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get product: %w", domain.Persistence(err))
	}
	return p, nil
}

func (s *Service) paginate(page, total int, products []domain.Product) *Page {
	lastPage := (total + s.pageSize - 1) / s.pageSize
	return &Page{
		Products:        products,
		CurrentPage:     page,
		HasNextPage:     s.pageSize*page < total,
		HasPreviousPage: page > 1,
		NextPage:        page + 1,
		PreviousPage:    page - 1,
		LastPage:        lastPage,
		TotalProducts:   total,
	}
}
