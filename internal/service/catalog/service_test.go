package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/internal/cache"
	"storefront/internal/domain"
)

type stubRepo struct {
	products   []domain.Product
	countErr   error
	countCalls int
	lastOffset int
	lastLimit  int
}

func (s *stubRepo) Count(context.Context) (int, error) {
	s.countCalls++
	return len(s.products), s.countErr
}

func (s *stubRepo) ListPage(_ context.Context, offset, limit int) ([]domain.Product, error) {
	s.lastOffset, s.lastLimit = offset, limit
	if offset >= len(s.products) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.products) {
		end = len(s.products)
	}
	return s.products[offset:end], nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

// memoryCache records hits so tests can tell a cached page from a fresh one.
type memoryCache struct {
	pages  map[string]*cache.Page
	getErr error
}

func (m *memoryCache) Get(_ context.Context, page, size int) (*cache.Page, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.pages[fmt.Sprintf("%d:%d", size, page)]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return p, nil
}

func (m *memoryCache) Set(_ context.Context, page, size int, p *cache.Page) error {
	m.pages[fmt.Sprintf("%d:%d", size, page)] = p
	return nil
}

func products(n int) []domain.Product {
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = domain.Product{ID: productID(i + 1), Title: fmt.Sprintf("Product %d", i+1), PriceCents: 100}
	}
	return out
}

func productID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

func TestListPageNavigation(t *testing.T) {
	cases := []struct {
		total, page          int
		wantLen              int
		wantNext, wantPrev   bool
		wantLast, wantOffset int
	}{
		{total: 5, page: 1, wantLen: 2, wantNext: true, wantPrev: false, wantLast: 3, wantOffset: 0},
		{total: 5, page: 2, wantLen: 2, wantNext: true, wantPrev: true, wantLast: 3, wantOffset: 2},
		{total: 5, page: 3, wantLen: 1, wantNext: false, wantPrev: true, wantLast: 3, wantOffset: 4},
		{total: 4, page: 2, wantLen: 2, wantNext: false, wantPrev: true, wantLast: 2, wantOffset: 2},
		{total: 0, page: 1, wantLen: 0, wantNext: false, wantPrev: false, wantLast: 0, wantOffset: 0},
		{total: 3, page: 9, wantLen: 0, wantNext: false, wantPrev: true, wantLast: 2, wantOffset: 16},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("N=%d/p=%d", tc.total, tc.page), func(t *testing.T) {
			repo := &stubRepo{products: products(tc.total)}
			svc := New(repo, nil, 2, nil)

			got, err := svc.ListPage(context.Background(), tc.page)
			if err != nil {
				t.Fatalf("ListPage: %v", err)
			}
			if len(got.Products) != tc.wantLen {
				t.Fatalf("expected %d products, got %d", tc.wantLen, len(got.Products))
			}
			if got.HasNextPage != tc.wantNext || got.HasPreviousPage != tc.wantPrev {
				t.Fatalf("unexpected navigation next=%v prev=%v", got.HasNextPage, got.HasPreviousPage)
			}
			if got.LastPage != tc.wantLast {
				t.Fatalf("expected last page %d, got %d", tc.wantLast, got.LastPage)
			}
			if got.NextPage != tc.page+1 || got.PreviousPage != tc.page-1 {
				t.Fatalf("unexpected next/prev %d/%d", got.NextPage, got.PreviousPage)
			}
			if repo.lastOffset != tc.wantOffset || repo.lastLimit != 2 {
				t.Fatalf("unexpected window offset=%d limit=%d", repo.lastOffset, repo.lastLimit)
			}
		})
	}
}

func TestParsePage(t *testing.T) {
	cases := map[string]int{"": 1, "abc": 1, "0": 1, "-3": 1, "1": 1, "4": 4, " 2 ": 2}
	for raw, want := range cases {
		if got := ParsePage(raw); got != want {
			t.Fatalf("ParsePage(%q) = %d, want %d", raw, got, want)
		}
	}
}

func TestListPageUsesCache(t *testing.T) {
	repo := &stubRepo{products: products(3)}
	pages := &memoryCache{pages: map[string]*cache.Page{}}
	svc := New(repo, pages, 2, nil)
	ctx := context.Background()

	if _, err := svc.ListPage(ctx, 1); err != nil {
		t.Fatalf("first ListPage: %v", err)
	}
	got, err := svc.ListPage(ctx, 1)
	if err != nil {
		t.Fatalf("second ListPage: %v", err)
	}
	if repo.countCalls != 1 {
		t.Fatalf("expected one store read, got %d", repo.countCalls)
	}
	if len(got.Products) != 2 || !got.HasNextPage || got.LastPage != 2 {
		t.Fatalf("unexpected cached page %+v", got)
	}
}

func TestListPageFallsBackWhenCacheFails(t *testing.T) {
	repo := &stubRepo{products: products(1)}
	pages := &memoryCache{pages: map[string]*cache.Page{}, getErr: errors.New("redis down")}
	svc := New(repo, pages, 2, nil)

	got, err := svc.ListPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(got.Products) != 1 {
		t.Fatalf("expected store result, got %+v", got)
	}
}

func TestListPageReadErrorIsPersistence(t *testing.T) {
	repo := &stubRepo{countErr: errors.New("connection reset")}
	svc := New(repo, nil, 2, nil)

	_, err := svc.ListPage(context.Background(), 1)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestGet(t *testing.T) {
	svc := New(&stubRepo{products: products(2)}, nil, 2, nil)
	ctx := context.Background()

	p, err := svc.Get(ctx, productID(2))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Title != "Product 2" {
		t.Fatalf("unexpected product %+v", p)
	}
	if _, err := svc.Get(ctx, productID(9)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Get(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
}
