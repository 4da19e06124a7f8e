// Package memory holds in-process implementations of the repositories. They
// follow the Postgres semantics closely enough for service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"storefront/internal/domain"
)

type cartLine struct {
	productID string
	quantity  int
	addedAt   time.Time
}

// Store is the shared state behind every repository view.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	products []domain.Product
	carts    map[string][]cartLine
	orders   map[string]*domain.Order
	restored map[string]bool
	users    map[string]domain.User
	sessions map[string]domain.Session

	Products *ProductRepo
	Carts    *CartRepo
	Orders   *OrderRepo
	Users    *UserRepo
	Sessions *SessionRepo
}

func New() *Store {
	s := &Store{
		carts:    make(map[string][]cartLine),
		orders:   make(map[string]*domain.Order),
		restored: make(map[string]bool),
		users:    make(map[string]domain.User),
		sessions: make(map[string]domain.Session),
	}
	// A strictly increasing clock keeps insertion order observable.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	s.Products = &ProductRepo{s: s}
	s.Carts = &CartRepo{s: s}
	s.Orders = &OrderRepo{s: s}
	s.Users = &UserRepo{s: s}
	s.Sessions = &SessionRepo{s: s}
	return s
}

func (s *Store) productByID(id string) (domain.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (s *Store) mergeLocked(userID, productID string, quantity int) {
	lines := s.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].quantity += quantity
			return
		}
	}
	s.carts[userID] = append(lines, cartLine{productID: productID, quantity: quantity, addedAt: s.now()})
}

func cloneOrder(o *domain.Order) *domain.Order {
	clone := *o
	clone.Items = append([]domain.OrderItem(nil), o.Items...)
	return &clone
}

type ProductRepo struct{ s *Store }

func (r *ProductRepo) Count(context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.products), nil
}

func (r *ProductRepo) ListPage(_ context.Context, offset, limit int) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if offset >= len(r.s.products) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.s.products) {
		end = len(r.s.products)
	}
	return append([]domain.Product(nil), r.s.products[offset:end]...), nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.productByID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *ProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.products {
		if r.s.products[i].Key == p.Key {
			p.ID = r.s.products[i].ID
			p.CreatedAt = r.s.products[i].CreatedAt
			r.s.products[i] = p
			return &p, nil
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.s.now()
	r.s.products = append(r.s.products, p)
	return &p, nil
}

// Delete removes a product from the catalog. Cart lines and order snapshots
// that reference it are left alone.
func (r *ProductRepo) Delete(id string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.products {
		if r.s.products[i].ID == id {
			r.s.products = append(r.s.products[:i], r.s.products[i+1:]...)
			return
		}
	}
}

type CartRepo struct{ s *Store }

func (r *CartRepo) List(_ context.Context, userID string) ([]domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []domain.CartItem
	for _, line := range r.s.carts[userID] {
		p, ok := r.s.productByID(line.productID)
		if !ok {
			continue
		}
		items = append(items, domain.CartItem{
			ProductID: line.productID,
			Quantity:  line.quantity,
			AddedAt:   line.addedAt,
			Product:   p,
		})
	}
	return items, nil
}

func (r *CartRepo) AddItem(_ context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.Validation("quantity must be positive")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.productByID(productID); !ok {
		return domain.ErrNotFound
	}
	r.s.mergeLocked(userID, productID, quantity)
	return nil
}

func (r *CartRepo) RemoveItem(_ context.Context, userID, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			r.s.carts[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *CartRepo) Clear(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.carts, userID)
	return nil
}

type OrderRepo struct{ s *Store }

func (r *OrderRepo) CreateFromCart(_ context.Context, user domain.User) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []domain.OrderItem
	for _, line := range r.s.carts[user.ID] {
		p, ok := r.s.productByID(line.productID)
		if !ok {
			continue
		}
		items = append(items, domain.OrderItem{Product: p, Quantity: line.quantity})
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	now := r.s.now()
	o := &domain.Order{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserEmail: user.Email,
		Status:    domain.OrderStatusPending,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.orders[o.ID] = o
	delete(r.s.carts, user.ID)
	return cloneOrder(o), nil
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) LatestPending(_ context.Context, userID string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *domain.Order
	for _, o := range r.s.orders {
		if o.UserID != userID || o.Status != domain.OrderStatusPending {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(latest), nil
}

func (r *OrderRepo) ListByStatus(_ context.Context, userID string, status domain.OrderStatus) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Order
	for _, o := range r.s.orders {
		if o.UserID == userID && o.Status == status {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepo) RestorePending(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var pending []*domain.Order
	for _, o := range r.s.orders {
		if o.UserID == userID && o.Status == domain.OrderStatusPending {
			pending = append(pending, o)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	for _, o := range pending {
		r.restoreLocked(o)
		o.Status = domain.OrderStatusCanceled
	}
	return len(pending), nil
}

func (r *OrderRepo) RestoreCanceled(_ context.Context, userID, orderID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok || o.UserID != userID || o.Status != domain.OrderStatusCanceled || r.s.restored[orderID] {
		return false, nil
	}
	r.restoreLocked(o)
	return true, nil
}

func (r *OrderRepo) restoreLocked(o *domain.Order) {
	for _, item := range o.Items {
		if _, ok := r.s.productByID(item.Product.ID); ok {
			r.s.mergeLocked(o.UserID, item.Product.ID, item.Quantity)
		}
	}
	r.s.restored[o.ID] = true
	o.UpdatedAt = r.s.now()
}

func (r *OrderRepo) Transition(_ context.Context, id string, to domain.OrderStatus, paymentID string) (*domain.Order, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if !o.Status.CanTransitionTo(to) {
		if o.Status == to {
			return cloneOrder(o), false, nil
		}
		return cloneOrder(o), false, domain.ErrIllegalTransition
	}
	o.Status = to
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	o.UpdatedAt = r.s.now()
	return cloneOrder(o), true, nil
}

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, domain.ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = r.s.now()
	r.s.users[u.ID] = u
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			clone := u
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

type SessionRepo struct{ s *Store }

func (r *SessionRepo) Create(_ context.Context, sess domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.sessions[sess.Token]; exists {
		return domain.ErrAlreadyExists
	}
	sess.CreatedAt = r.s.now()
	r.s.sessions[sess.Token] = sess
	return nil
}

func (r *SessionRepo) Get(_ context.Context, token string) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sess, nil
}

func (r *SessionRepo) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, token)
	return nil
}
