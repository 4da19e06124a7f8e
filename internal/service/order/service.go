package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"storefront/internal/domain"
	"storefront/internal/invoice"
	"storefront/internal/payment"
)

type orderRepo interface {
	CreateFromCart(ctx context.Context, user domain.User) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	LatestPending(ctx context.Context, userID string) (*domain.Order, error)
	ListByStatus(ctx context.Context, userID string, status domain.OrderStatus) ([]domain.Order, error)
	RestoreCanceled(ctx context.Context, userID, orderID string) (bool, error)
	Transition(ctx context.Context, id string, to domain.OrderStatus, paymentID string) (*domain.Order, bool, error)
}

type invoiceGenerator interface {
	Generate(order domain.Order, requestingUserID string) (*invoice.Invoice, error)
}

type eventPublisher interface {
	OrderPaid(ctx context.Context, order domain.Order) error
}

// Service drives the order lifecycle: pending on creation, canceled when a
// payment is initiated or the order is folded back into the cart, paid once
// the provider confirms.
type Service struct {
	repo     orderRepo
	gateway  payment.Gateway
	invoices invoiceGenerator
	events   eventPublisher
	logger   *log.Logger
}

func New(repo orderRepo, gateway payment.Gateway, invoices invoiceGenerator, events eventPublisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, gateway: gateway, invoices: invoices, events: events, logger: logger}
}

// Checkout is the pending order of a user with its running total. Order is
// nil when nothing is awaiting payment.
type Checkout struct {
	Order *domain.Order
	Total domain.Money
}

// ConfirmInput carries the provider callback parameters.
type ConfirmInput struct {
	PaymentID string
	PayerID   string
	OrderID   string
}

// Create snapshots the user's cart into a new pending order and empties the
// cart in the same transaction.
func (s *Service) Create(ctx context.Context, user domain.User) (*domain.Order, error) {
	o, err := s.repo.CreateFromCart(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			return nil, err
		}
		return nil, fmt.Errorf("create order: %w", domain.Persistence(err))
	}
	s.logger.Printf("orders: created id=%s user_id=%s items=%d total=%s", o.ID, user.ID, len(o.Items), o.Total())
	return o, nil
}

func (s *Service) Checkout(ctx context.Context, userID string) (*Checkout, error) {
	o, err := s.repo.LatestPending(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &Checkout{Total: domain.Zero()}, nil
		}
		return nil, fmt.Errorf("load pending order: %w", domain.Persistence(err))
	}
	return &Checkout{Order: o, Total: o.Total()}, nil
}

// InitiatePayment registers a payment for the user's most recent pending
// order and cancels that order, recording the provider payment id on it. A
// confirmed payment still moves the canceled order to paid.
func (s *Service) InitiatePayment(ctx context.Context, userID string) (string, error) {
	o, err := s.repo.LatestPending(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: no pending order", domain.ErrNotFound)
		}
		return "", fmt.Errorf("load pending order: %w", domain.Persistence(err))
	}
	total := o.Total()

	approval, err := s.gateway.CreatePayment(ctx, total, o.ID)
	if err != nil {
		return "", err
	}

	_, changed, err := s.repo.Transition(ctx, o.ID, domain.OrderStatusCanceled, approval.PaymentID)
	if err != nil {
		return "", fmt.Errorf("cancel order before payment: %w", domain.Persistence(err))
	}
	if !changed {
		// a concurrent request already bound another payment to this order
		s.logger.Printf("orders: payment initiated twice id=%s payment_id=%s", o.ID, approval.PaymentID)
		return "", fmt.Errorf("%w: order %s is no longer pending", domain.ErrValidation, o.ID)
	}
	s.logger.Printf("orders: payment initiated id=%s payment_id=%s total=%s", o.ID, approval.PaymentID, total)
	return approval.URL, nil
}

// ConfirmPayment executes the payment at the provider and marks the order
// paid on approval. Only the payment recorded by InitiatePayment is accepted,
// and the capture must name the same order and amount. Callbacks for an
// order that is already paid never change it.
func (s *Service) ConfirmPayment(ctx context.Context, userID string, in ConfirmInput) (*domain.Order, error) {
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	in.OrderID = strings.TrimSpace(in.OrderID)
	if in.PaymentID == "" {
		return nil, domain.Validation("payment id required")
	}
	o, err := s.get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.OwnedBy(userID) {
		return nil, domain.ErrUnauthorized
	}
	if o.PaymentID == "" || o.PaymentID != in.PaymentID {
		s.logger.Printf("orders: foreign payment callback id=%s payment_id=%s", o.ID, in.PaymentID)
		return nil, domain.ErrPaymentMismatch
	}
	if o.Status == domain.OrderStatusPaid {
		s.logger.Printf("orders: warning: repeated payment callback for paid order id=%s payment_id=%s", o.ID, in.PaymentID)
		return o, nil
	}

	capture, err := s.gateway.ExecutePayment(ctx, in.PaymentID, in.PayerID)
	if err != nil {
		return nil, err
	}
	if !capture.Approved() {
		return nil, domain.ErrPaymentDeclined
	}
	if err := matchCapture(*o, capture); err != nil {
		s.logger.Printf("orders: capture mismatch id=%s payment_id=%s reference_id=%s amount=%s error=%v",
			o.ID, in.PaymentID, capture.ReferenceID, capture.Amount, err)
		return nil, err
	}

	paid, changed, err := s.repo.Transition(ctx, o.ID, domain.OrderStatusPaid, in.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", domain.Persistence(err))
	}
	if !changed {
		s.logger.Printf("orders: repeated payment callback id=%s payment_id=%s", o.ID, in.PaymentID)
		return paid, nil
	}
	s.logger.Printf("orders: paid id=%s payment_id=%s", paid.ID, in.PaymentID)

	if err := s.events.OrderPaid(ctx, *paid); err != nil {
		s.logger.Printf("orders: publish paid event id=%s error=%v", paid.ID, err)
	}
	return paid, nil
}

// CancelPayment handles the provider cancel URL: the user's canceled order is
// folded back into the cart once. It reports whether anything was restored.
func (s *Service) CancelPayment(ctx context.Context, userID, orderID string) (bool, error) {
	orderID = strings.TrimSpace(orderID)
	if _, err := uuid.Parse(orderID); err != nil {
		return false, fmt.Errorf("%w: order %q", domain.ErrNotFound, orderID)
	}
	restored, err := s.repo.RestoreCanceled(ctx, userID, orderID)
	if err != nil {
		return false, fmt.Errorf("restore canceled order: %w", domain.Persistence(err))
	}
	if restored {
		s.logger.Printf("orders: payment canceled, items restored id=%s user_id=%s", orderID, userID)
	}
	return restored, nil
}

func matchCapture(o domain.Order, c *payment.Capture) error {
	if c.ReferenceID != o.ID {
		return fmt.Errorf("%w: captured for %q", domain.ErrPaymentMismatch, c.ReferenceID)
	}
	if c.Amount == "" {
		return nil
	}
	if c.Currency != "" && c.Currency != payment.Currency {
		return fmt.Errorf("%w: captured currency %s", domain.ErrPaymentMismatch, c.Currency)
	}
	amount, err := domain.ParseMoney(c.Amount)
	if err != nil {
		return fmt.Errorf("%w: captured amount %q", domain.ErrPaymentUpstream, c.Amount)
	}
	if !amount.Equal(o.Total()) {
		return fmt.Errorf("%w: captured %s, order total %s", domain.ErrPaymentMismatch, amount, o.Total())
	}
	return nil
}

// ListPaid returns the user's paid orders, newest first.
func (s *Service) ListPaid(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.repo.ListByStatus(ctx, userID, domain.OrderStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", domain.Persistence(err))
	}
	return orders, nil
}

// Invoice renders the invoice of one order for its owner.
func (s *Service) Invoice(ctx context.Context, userID, orderID string) (*invoice.Invoice, error) {
	o, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.invoices.Generate(*o, userID)
}

func (s *Service) get(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: order %q", domain.ErrNotFound, id)
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load order: %w", domain.Persistence(err))
	}
	return o, nil
}
