package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("stripe api key is required")
	errSecretRequired = errors.New("stripe webhook secret is required")
)

// mode is the Stripe account mode a key belongs to.
type mode string

const (
	modeTest mode = "test"
	modeLive mode = "live"
)

// keyMode infers the account mode from a secret or restricted key.
func keyMode(key string) (mode, bool) {
	prefix, rest, ok := strings.Cut(key, "_")
	if !ok || (prefix != "sk" && prefix != "rk") {
		return "", false
	}
	switch {
	case strings.HasPrefix(rest, "test_"):
		return modeTest, true
	case strings.HasPrefix(rest, "live_"):
		return modeLive, true
	}
	return "", false
}

// Client holds the process-wide gateway credentials.
type Client struct {
	mode          mode
	signingSecret string
}

// NewClient checks that the key matches the configured mode, then installs it
// as the SDK key used by every gateway call.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	want := mode(cfg.Environment())
	if want != modeTest && want != modeLive {
		return nil, fmt.Errorf("stripe environment must be %q or %q, got %q", modeTest, modeLive, want)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case apiKey == "":
		return nil, errAPIKeyRequired
	case secret == "":
		return nil, errSecretRequired
	}

	got, ok := keyMode(apiKey)
	if !ok {
		return nil, errors.New("stripe api key must be a secret (sk_) or restricted (rk_) key")
	}
	if got != want {
		return nil, fmt.Errorf("stripe environment %q requires a %s key, got a %s key", want, want, got)
	}

	stripe.Key = apiKey
	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_mode", string(want)), "stripe configured")
	}
	return &Client{mode: want, signingSecret: secret}, nil
}

// Environment is "test" or "live".
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return string(c.mode)
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
