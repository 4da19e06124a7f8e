package payment

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

// Currency is the fixed currency of every payment.
const Currency = "USD"

// Approval is a payment registered at the provider and waiting for the
// shopper.
type Approval struct {
	// PaymentID is the provider's id for the payment. The return URL carries
	// it back as the token.
	PaymentID string
	URL       string
}

// Capture is the provider's answer to executing a payment.
type Capture struct {
	PaymentID string
	Status    string
	// ReferenceID is the storefront order id the payment was created for.
	ReferenceID string
	// Amount is the captured value as a decimal string, empty when the
	// provider did not report it.
	Amount   string
	Currency string
}

// Approved reports whether the provider completed the capture.
func (c Capture) Approved() bool {
	return c.Status == "COMPLETED"
}

// Gateway is the payment provider as seen by the order lifecycle.
type Gateway interface {
	// CreatePayment registers a payment for the order and returns where the
	// shopper must go to approve it.
	CreatePayment(ctx context.Context, amount domain.Money, orderID string) (*Approval, error)
	// ExecutePayment completes an approved payment.
	ExecutePayment(ctx context.Context, paymentID, payerID string) (*Capture, error)
}

// Unconfigured is used when no provider credentials are present. Every call
// fails as an upstream error.
type Unconfigured struct{}

func (Unconfigured) CreatePayment(context.Context, domain.Money, string) (*Approval, error) {
	return nil, fmt.Errorf("%w: provider credentials not configured", domain.ErrPaymentUpstream)
}

func (Unconfigured) ExecutePayment(context.Context, string, string) (*Capture, error) {
	return nil, fmt.Errorf("%w: provider credentials not configured", domain.ErrPaymentUpstream)
}
