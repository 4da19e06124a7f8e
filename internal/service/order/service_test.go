package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/invoice"
	"storefront/internal/payment"
	"storefront/internal/repository/memory"
)

type fakeGateway struct {
	approve    bool
	createErr  error
	lastAmount domain.Money
	lastOrder  string
	executed   int
	created    int
	// capture overrides what the provider reports for the next capture.
	capture *payment.Capture
}

func (g *fakeGateway) CreatePayment(_ context.Context, amount domain.Money, orderID string) (*payment.Approval, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.lastAmount = amount
	g.lastOrder = orderID
	g.created++
	id := fmt.Sprintf("PAY-%d", g.created)
	return &payment.Approval{PaymentID: id, URL: "https://provider.example/approve?token=" + id}, nil
}

func (g *fakeGateway) ExecutePayment(_ context.Context, paymentID, _ string) (*payment.Capture, error) {
	g.executed++
	if g.capture != nil {
		return g.capture, nil
	}
	status := "COMPLETED"
	if !g.approve {
		status = "DECLINED"
	}
	return &payment.Capture{
		PaymentID:   paymentID,
		Status:      status,
		ReferenceID: g.lastOrder,
		Amount:      g.lastAmount.String(),
		Currency:    payment.Currency,
	}, nil
}

type recordingPublisher struct {
	paid []string
}

func (p *recordingPublisher) OrderPaid(_ context.Context, o domain.Order) error {
	p.paid = append(p.paid, o.ID)
	return nil
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	gateway *fakeGateway
	events  *recordingPublisher
	user    domain.User
	book    *domain.Product
	mug     *domain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	user, err := store.Users.Create(ctx, domain.User{Email: "a@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	book, err := store.Products.Upsert(ctx, domain.Product{Key: "book", Title: "Book", PriceCents: 1250})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	mug, err := store.Products.Upsert(ctx, domain.Product{Key: "mug", Title: "Mug", PriceCents: 399})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	gw := &fakeGateway{approve: true}
	events := &recordingPublisher{}
	svc := New(store.Orders, gw, invoice.New(t.TempDir(), nil), events, nil)
	return &fixture{svc: svc, store: store, gateway: gw, events: events, user: *user, book: book, mug: mug}
}

func (f *fixture) fillCart(t *testing.T, p *domain.Product, qty int) {
	t.Helper()
	if err := f.store.Carts.AddItem(context.Background(), f.user.ID, p.ID, qty); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
}

func TestCreateSnapshotsCartAndEmptiesIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.book, 2)
	f.fillCart(t, f.mug, 1)

	o, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != domain.OrderStatusPending || o.UserEmail != "a@example.com" {
		t.Fatalf("unexpected order %+v", o)
	}
	if len(o.Items) != 2 || o.Total().String() != "28.99" {
		t.Fatalf("unexpected snapshot %+v total=%s", o.Items, o.Total())
	}

	items, err := f.store.Carts.List(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %+v", items)
	}

	// later catalog changes must not leak into the snapshot
	if _, err := f.store.Products.Upsert(ctx, domain.Product{Key: "book", Title: "Book 2nd ed.", PriceCents: 9900}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := f.store.Orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Items[0].Product.Title != "Book" || got.Total().String() != "28.99" {
		t.Fatalf("snapshot changed: %+v", got.Items)
	}
}

func TestCreateWithEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.user)
	if !errors.Is(err, domain.ErrEmptyCart) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected empty cart validation error, got %v", err)
	}
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.Checkout(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if empty.Order != nil || !empty.Total.IsZero() {
		t.Fatalf("expected empty checkout, got %+v", empty)
	}

	f.fillCart(t, f.book, 3)
	if _, err := f.svc.Create(ctx, f.user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	co, err := f.svc.Checkout(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if co.Order == nil || co.Total.String() != "37.50" {
		t.Fatalf("unexpected checkout %+v", co)
	}
}

func TestInitiatePaymentCancelsPendingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.book, 2)
	o, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	href, err := f.svc.InitiatePayment(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	if href == "" || f.gateway.lastOrder != o.ID || f.gateway.lastAmount.String() != "25.00" {
		t.Fatalf("unexpected provider call order=%s amount=%s", f.gateway.lastOrder, f.gateway.lastAmount)
	}
	got, err := f.store.Orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", got.Status)
	}

	// no pending order is left to pay for
	if _, err := f.svc.InitiatePayment(ctx, f.user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInitiatePaymentProviderFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.book, 1)
	if _, err := f.svc.Create(ctx, f.user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.gateway.createErr = domain.ErrPaymentUpstream

	if _, err := f.svc.InitiatePayment(ctx, f.user.ID); !errors.Is(err, domain.ErrPaymentUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	// the order is still pending, so the next cart view restores it
	if _, err := f.store.Orders.LatestPending(ctx, f.user.ID); err != nil {
		t.Fatalf("expected order to stay pending: %v", err)
	}
}

func TestConfirmPaymentMarksPaidExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.book, 1)
	o, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.InitiatePayment(ctx, f.user.ID); err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}

	in := ConfirmInput{PaymentID: "PAY-1", PayerID: "PAYER-1", OrderID: o.ID}
	paid, err := f.svc.ConfirmPayment(ctx, f.user.ID, in)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if paid.Status != domain.OrderStatusPaid || paid.PaymentID != "PAY-1" {
		t.Fatalf("unexpected order %+v", paid)
	}

	again, err := f.svc.ConfirmPayment(ctx, f.user.ID, in)
	if err != nil {
		t.Fatalf("repeated ConfirmPayment: %v", err)
	}
	if again.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", again.Status)
	}
	if len(f.events.paid) != 1 {
		t.Fatalf("expected one paid event, got %d", len(f.events.paid))
	}

	f.gateway.approve = false
	late, err := f.svc.ConfirmPayment(ctx, f.user.ID, in)
	if err != nil {
		t.Fatalf("late unapproved callback: %v", err)
	}
	if late.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid order back, got %s", late.Status)
	}
	if len(f.events.paid) != 1 {
		t.Fatalf("late callback published an event")
	}
	if f.gateway.executed != 1 {
		t.Fatalf("provider captured %d times, want 1", f.gateway.executed)
	}
	got, err := f.store.Orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.OrderStatusPaid {
		t.Fatalf("late unapproved callback changed status to %s", got.Status)
	}

	orders, err := f.svc.ListPaid(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("ListPaid: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != o.ID {
		t.Fatalf("unexpected paid orders %+v", orders)
	}
}

func TestConfirmPaymentDeclinedLeavesOrderCanceled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.book, 1)
	o, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.InitiatePayment(ctx, f.user.ID); err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	f.gateway.approve = false

	_, err = f.svc.ConfirmPayment(ctx, f.user.ID, ConfirmInput{PaymentID: "PAY-1", OrderID: o.ID})
	if !errors.Is(err, domain.ErrPaymentDeclined) {
		t.Fatalf("expected declined, got %v", err)
	}
	got, err := f.store.Orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", got.Status)
	}
	paid, err := f.svc.ListPaid(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("ListPaid: %v", err)
	}
	if len(paid) != 0 {
		t.Fatalf("expected no paid orders, got %+v", paid)
	}
}

func TestConfirmPaymentRejectsPaymentOfAnotherOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.mug, 1)
	cheap, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create cheap: %v", err)
	}
	if _, err := f.svc.InitiatePayment(ctx, f.user.ID); err != nil {
		t.Fatalf("InitiatePayment cheap: %v", err)
	}
	f.fillCart(t, f.book, 4)
	expensive, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create expensive: %v", err)
	}
	if _, err := f.svc.InitiatePayment(ctx, f.user.ID); err != nil {
		t.Fatalf("InitiatePayment expensive: %v", err)
	}

	// PAY-1 was created for the cheap order
	_, err = f.svc.ConfirmPayment(ctx, f.user.ID, ConfirmInput{PaymentID: "PAY-1", OrderID: expensive.ID})
	if !errors.Is(err, domain.ErrPaymentMismatch) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected payment mismatch, got %v", err)
	}
	if f.gateway.executed != 0 {
		t.Fatalf("provider must not capture a foreign payment")
	}
	got, err := f.store.Orders.GetByID(ctx, expensive.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", got.Status)
	}

	if cheap.ID == expensive.ID {
		t.Fatalf("expected two distinct orders")
	}
}

func TestConfirmPaymentChecksCapture(t *testing.T) {
	cases := map[string]payment.Capture{
		"other order":  {Status: "COMPLETED", ReferenceID: "some-other-order", Amount: "12.50", Currency: "USD"},
		"other amount": {Status: "COMPLETED", Amount: "0.01", Currency: "USD"},
		"other money":  {Status: "COMPLETED", Amount: "12.50", Currency: "EUR"},
	}
	for name, capture := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.fillCart(t, f.book, 1)
			o, err := f.svc.Create(ctx, f.user)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := f.svc.InitiatePayment(ctx, f.user.ID); err != nil {
				t.Fatalf("InitiatePayment: %v", err)
			}
			if capture.ReferenceID == "" {
				capture.ReferenceID = o.ID
			}
			f.gateway.capture = &capture

			_, err = f.svc.ConfirmPayment(ctx, f.user.ID, ConfirmInput{PaymentID: "PAY-1", OrderID: o.ID})
			if !errors.Is(err, domain.ErrPaymentMismatch) {
				t.Fatalf("expected payment mismatch, got %v", err)
			}
			got, err := f.store.Orders.GetByID(ctx, o.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if got.Status == domain.OrderStatusPaid || len(f.events.paid) != 0 {
				t.Fatalf("mismatched capture marked the order paid")
			}
		})
	}
}

func TestCancelPaymentRestoresCartOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.book, 2)
	f.fillCart(t, f.mug, 1)
	o, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.InitiatePayment(ctx, f.user.ID); err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}

	if restored, err := f.svc.CancelPayment(ctx, "someone-else", o.ID); err != nil || restored {
		t.Fatalf("foreign user: restored=%v err=%v", restored, err)
	}
	if _, err := f.svc.CancelPayment(ctx, f.user.ID, "not-an-id"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for i, want := range []bool{true, false} {
		restored, err := f.svc.CancelPayment(ctx, f.user.ID, o.ID)
		if err != nil {
			t.Fatalf("CancelPayment #%d: %v", i+1, err)
		}
		if restored != want {
			t.Fatalf("CancelPayment #%d: expected restored=%v", i+1, want)
		}
	}

	items, err := f.store.Carts.List(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	quantities := map[string]int{}
	for _, item := range items {
		quantities[item.ProductID] = item.Quantity
	}
	if len(quantities) != 2 || quantities[f.book.ID] != 2 || quantities[f.mug.ID] != 1 {
		t.Fatalf("unexpected cart after cancel %+v", quantities)
	}
}

func TestConfirmPaymentRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ConfirmPayment(ctx, f.user.ID, ConfirmInput{OrderID: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.ConfirmPayment(ctx, f.user.ID, ConfirmInput{PaymentID: "PAY-1", OrderID: "not-an-id"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if f.gateway.executed != 0 {
		t.Fatalf("provider must not be called for unknown orders")
	}
}

func TestConfirmPaymentForeignOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.book, 1)
	o, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.svc.ConfirmPayment(ctx, "someone-else", ConfirmInput{PaymentID: "PAY-1", OrderID: o.ID})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, f.book, 2)
	f.fillCart(t, f.mug, 1)
	o, err := f.svc.Create(ctx, f.user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	inv, err := f.svc.Invoice(ctx, f.user.ID, o.ID)
	if err != nil {
		t.Fatalf("Invoice: %v", err)
	}
	if inv.FileName != invoice.FileName(o.ID) || len(inv.PDF) == 0 {
		t.Fatalf("unexpected invoice %s (%d bytes)", inv.FileName, len(inv.PDF))
	}

	if _, err := f.svc.Invoice(ctx, "someone-else", o.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.svc.Invoice(ctx, f.user.ID, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
