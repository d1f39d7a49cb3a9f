package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// paymentMethodCard keeps sessions off delayed methods, so a completed
// session is a paid one.
const paymentMethodCard = "card"

// SessionRequest describes a hosted checkout session for a single cart.
type SessionRequest struct {
	ClientReferenceID string
	AmountMinor       int64
	Currency          string
	ProductName       string
	Description       string
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	Metadata          map[string]string
}

// Session is the part of the gateway response the storefront hands back to clients.
type Session struct {
	ID  string
	URL string
}

// SessionCreator opens hosted checkout sessions.
type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

type newSessionFunc func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// CheckoutSessions creates payment-mode checkout sessions.
type CheckoutSessions struct {
	newSession newSessionFunc
}

// NewCheckoutSessions builds a SessionCreator backed by the configured client.
func NewCheckoutSessions(client *Client) (*CheckoutSessions, error) {
	if client == nil {
		return nil, errors.New("stripe client is required")
	}
	return &CheckoutSessions{newSession: session.New}, nil
}

// CreateSession opens a session charging AmountMinor as a single line item.
func (c *CheckoutSessions) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params, err := buildSessionParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	created, err := c.newSession(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: created.ID, URL: created.URL}, nil
}

func buildSessionParams(req SessionRequest) (*stripe.CheckoutSessionParams, error) {
	if req.AmountMinor <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if strings.TrimSpace(req.ClientReferenceID) == "" {
		return nil, errors.New("client reference id is required")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		return nil, errors.New("currency is required")
	}
	name := req.ProductName
	if name == "" {
		name = "Order"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{paymentMethodCard}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.ClientReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.Description != "" {
		params.LineItems[0].PriceData.ProductData.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params, nil
}
