package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, types.SuccessEnvelope{Status: types.StatusSuccess, Data: data})
}

// WriteError renders err as the public error envelope and logs it once.
// Errors without a code are treated as internal and their text is not exposed.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("error written without a cause")
	}
	status, envelope := envelopeFor(err)

	if logg != nil {
		logCtx := logg.WithField(logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "status", status)
		if status >= http.StatusInternalServerError {
			logg.Error(logCtx, "request error", err)
		} else {
			logg.Warn(logCtx, "request rejected")
		}
	}
	WriteJSON(w, status, envelope)
}

func envelopeFor(err error) (int, types.ErrorEnvelope) {
	typed := pkgerrors.As(err)
	meta := pkgerrors.MetadataFor(typed.Code())

	env := types.ErrorEnvelope{
		Status:  types.StatusFail,
		Code:    string(typed.Code()),
		Message: meta.PublicMessage,
	}
	if meta.HTTPStatus >= http.StatusInternalServerError {
		env.Status = types.StatusError
	}
	if meta.ExposeMessage && typed.Message() != "" {
		env.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		env.Details = typed.Details()
	}
	return meta.HTTPStatus, env
}

// WriteJSON writes payload as-is. An encode failure after the header is sent
// cannot be reported to the client, so it is dropped.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
