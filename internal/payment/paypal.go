package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/sony/gobreaker/v2"
	"storefront/internal/domain"
)

// PayPalConfig carries the provider credentials and the public URLs the
// shopper is sent back to.
type PayPalConfig struct {
	ClientID      string
	Secret        string
	Mode          string // sandbox or live
	PublicBaseURL string
	Timeout       time.Duration
	// APIBase overrides the endpoint chosen by Mode.
	APIBase string
}

// PayPal creates and captures Orders v2 payments. Calls go through a circuit
// breaker and carry a per-call timeout.
type PayPal struct {
	client  *paypal.Client
	baseURL string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[any]
	logger  *log.Logger
}

func NewPayPal(cfg PayPalConfig, logger *log.Logger) (*PayPal, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	apiBase := cfg.APIBase
	if apiBase == "" {
		switch strings.ToLower(cfg.Mode) {
		case "", "sandbox":
			apiBase = paypal.APIBaseSandBox
		case "live":
			apiBase = paypal.APIBaseLive
		default:
			return nil, fmt.Errorf("unknown paypal mode %q", cfg.Mode)
		}
	}
	client, err := paypal.NewClient(cfg.ClientID, cfg.Secret, apiBase)
	if err != nil {
		return nil, fmt.Errorf("paypal client: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "paypal",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("payment: breaker name=%s from=%s to=%s", name, from, to)
		},
	})

	return &PayPal{
		client:  client,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		timeout: timeout,
		breaker: breaker,
		logger:  logger,
	}, nil
}

func (p *PayPal) CreatePayment(ctx context.Context, amount domain.Money, orderID string) (*Approval, error) {
	res, err := p.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		order, err := p.client.CreateOrder(callCtx, paypal.OrderIntentCapture,
			[]paypal.PurchaseUnitRequest{{
				ReferenceID: orderID,
				Description: "Storefront order " + orderID,
				Amount: &paypal.PurchaseUnitAmount{
					Currency: Currency,
					Value:    amount.String(),
				},
			}},
			nil,
			&paypal.ApplicationContext{
				UserAction: "PAY_NOW",
				ReturnURL:  p.callbackURL("/checkout/success", orderID),
				CancelURL:  p.callbackURL("/checkout/cancel", orderID),
			},
		)
		if err != nil {
			return nil, err
		}
		if order.ID == "" {
			return nil, errors.New("payment id missing from provider response")
		}
		for _, link := range order.Links {
			if link.Rel == "approve" || link.Rel == "payer-action" {
				return &Approval{PaymentID: order.ID, URL: link.Href}, nil
			}
		}
		return nil, errors.New("approval link missing from provider response")
	})
	if err != nil {
		p.logger.Printf("payment: create order_id=%s error=%v", orderID, err)
		return nil, fmt.Errorf("%w: create payment: %w", domain.ErrPaymentUpstream, err)
	}
	approval := res.(*Approval)
	p.logger.Printf("payment: created order_id=%s payment_id=%s amount=%s %s", orderID, approval.PaymentID, amount, Currency)
	return approval, nil
}

func (p *PayPal) ExecutePayment(ctx context.Context, paymentID, payerID string) (*Capture, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, domain.Validation("payment id required")
	}
	res, err := p.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		res, err := p.client.CaptureOrder(callCtx, paymentID, paypal.CaptureOrderRequest{})
		if err != nil {
			return nil, err
		}
		return captureFrom(paymentID, res), nil
	})
	if err != nil {
		p.logger.Printf("payment: capture payment_id=%s payer_id=%s error=%v", paymentID, payerID, err)
		return nil, fmt.Errorf("%w: execute payment: %w", domain.ErrPaymentUpstream, err)
	}
	capture := res.(*Capture)
	p.logger.Printf("payment: capture payment_id=%s payer_id=%s status=%s reference_id=%s amount=%s",
		paymentID, payerID, capture.Status, capture.ReferenceID, capture.Amount)
	return capture, nil
}

// captureFrom reads the single purchase unit the storefront creates.
func captureFrom(paymentID string, res *paypal.CaptureOrderResponse) *Capture {
	c := &Capture{PaymentID: res.ID, Status: res.Status}
	if c.PaymentID == "" {
		c.PaymentID = paymentID
	}
	for _, unit := range res.PurchaseUnits {
		c.ReferenceID = unit.ReferenceID
		if unit.Payments == nil {
			continue
		}
		for _, captured := range unit.Payments.Captures {
			if captured.Amount != nil {
				c.Amount = captured.Amount.Value
				c.Currency = captured.Amount.Currency
			}
		}
	}
	return c
}

func (p *PayPal) callbackURL(path, orderID string) string {
	q := url.Values{}
	q.Set("orderId", orderID)
	return p.baseURL + path + "?" + q.Encode()
}
