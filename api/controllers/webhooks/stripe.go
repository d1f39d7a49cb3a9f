package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	signatureHeader = "Stripe-Signature"
	// Gateway events are a few KB; anything near this is not one of them.
	maxWebhookBody = 64 << 10
)

type StripeWebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type ack struct {
	Received bool `json:"received"`
}

// StripeWebhook hands the unparsed body and signature header to the service,
// which verifies them against the exact bytes the gateway signed.
func StripeWebhook(svc StripeWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "stripe signature missing"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				err = pkgerrors.Newf(pkgerrors.CodeValidation, "webhook body exceeds %d bytes", tooLarge.Limit)
			} else {
				err = pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Handle(ctx, payload, signature); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, ack{Received: true})
	}
}
