package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]int{"items": 2})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"success","data":{"items":2}}`, rec.Body.String())
}

func TestWriteErrorEnvelopes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		kind    string
		code    pkgerrors.Code
		message string
		details bool
	}{
		{
			name:    "client error keeps message and details",
			err:     pkgerrors.New(pkgerrors.CodeInsufficientStock, `insufficient stock for "Desk"`).WithDetails(map[string]any{"productId": "p-1"}),
			status:  http.StatusConflict,
			kind:    types.StatusFail,
			code:    pkgerrors.CodeInsufficientStock,
			message: `insufficient stock for "Desk"`,
			details: true,
		},
		{
			name:    "wrapped typed error",
			err:     fmt.Errorf("handler: %w", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")),
			status:  http.StatusNotFound,
			kind:    types.StatusFail,
			code:    pkgerrors.CodeNotFound,
			message: "order not found",
		},
		{
			name:    "untyped error is internal and hidden",
			err:     errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			status:  http.StatusInternalServerError,
			kind:    types.StatusError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:    "signature message is not exposed",
			err:     pkgerrors.New(pkgerrors.CodeInvalidSignature, "v1 mismatch for secret whsec_x"),
			status:  http.StatusBadRequest,
			kind:    types.StatusFail,
			code:    pkgerrors.CodeInvalidSignature,
			message: "invalid webhook signature",
		},
		{
			name:    "nil error",
			status:  http.StatusInternalServerError,
			kind:    types.StatusError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), logger.Nop(), rec, tc.err)

			require.Equal(t, tc.status, rec.Code)
			env := decodeError(t, rec)
			assert.Equal(t, tc.kind, env.Status)
			assert.Equal(t, string(tc.code), env.Code)
			assert.Equal(t, tc.message, env.Message)
			assert.Equal(t, tc.details, env.Details != nil)
		})
	}
}

func TestWriteErrorLogsServerErrorsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"status":500`)

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeValidation, "bad"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
