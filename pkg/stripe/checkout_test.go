package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v84"
)

func TestCreateSessionBuildsPaymentParams(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	sessions := &CheckoutSessions{newSession: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
	}}

	out, err := sessions.CreateSession(context.Background(), SessionRequest{
		ClientReferenceID: "cart-1",
		AmountMinor:       20000,
		Currency:          "USD",
		SuccessURL:        "https://shop.test/orders",
		CancelURL:         "https://shop.test/cart",
		CustomerEmail:     "buyer@example.com",
		ProductName:       "Order from Sam",
		Description:       "Cart contains 2 item(s)",
		Metadata:          map[string]string{"city": "Cairo"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != "cs_test_1" || out.URL == "" {
		t.Fatalf("unexpected session %+v", out)
	}
	if *captured.ClientReferenceID != "cart-1" {
		t.Fatalf("client reference not set")
	}
	if *captured.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("unexpected mode %s", *captured.Mode)
	}
	if len(captured.PaymentMethodTypes) != 1 || *captured.PaymentMethodTypes[0] != "card" {
		t.Fatalf("session must be restricted to card payments, got %v", captured.PaymentMethodTypes)
	}
	line := captured.LineItems[0]
	if *line.PriceData.UnitAmount != 20000 || *line.PriceData.Currency != "usd" || *line.Quantity != 1 {
		t.Fatalf("unexpected line item %+v", line.PriceData)
	}
	if *line.PriceData.ProductData.Name != "Order from Sam" || *line.PriceData.ProductData.Description != "Cart contains 2 item(s)" {
		t.Fatalf("unexpected product data %+v", line.PriceData.ProductData)
	}
	if captured.Metadata["city"] != "Cairo" {
		t.Fatalf("metadata not copied: %+v", captured.Metadata)
	}
	if *captured.CustomerEmail != "buyer@example.com" {
		t.Fatalf("customer email not set")
	}
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	sessions := &CheckoutSessions{newSession: func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		t.Fatalf("gateway must not be called")
		return nil, nil
	}}
	cases := []SessionRequest{
		{ClientReferenceID: "cart", Currency: "usd"},
		{AmountMinor: 100, Currency: "usd"},
		{AmountMinor: 100, ClientReferenceID: "cart"},
	}
	for _, req := range cases {
		if _, err := sessions.CreateSession(context.Background(), req); err == nil {
			t.Fatalf("expected error for %+v", req)
		}
	}
}

func TestCreateSessionPropagatesGatewayError(t *testing.T) {
	sessions := &CheckoutSessions{newSession: func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("card network down")
	}}
	_, err := sessions.CreateSession(context.Background(), SessionRequest{ClientReferenceID: "c", AmountMinor: 1, Currency: "usd"})
	if err == nil {
		t.Fatalf("expected gateway error")
	}
}
