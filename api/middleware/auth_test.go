package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAuthRejectsMissingToken(t *testing.T) {
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	token, err := auth.MintAccessToken(testJWT, time.Now().Add(-3*time.Hour), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleUser})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "expired") {
		t.Fatalf("expected expiry message, got %s", resp.Body.String())
	}
	if resp.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer   abc ": "abc",
		"Basic abc":     "",
		"abc":           "",
		"Bearer ":       "",
	}
	for header, want := range cases {
		got, ok := bearerToken(header)
		if got != want || ok != (want != "") {
			t.Fatalf("%q: got %q ok=%v", header, got, ok)
		}
	}
}

func TestAuthSeedsActor(t *testing.T) {
	userID := uuid.New()
	var captured types.Actor
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatalf("expected actor in context")
		}
		captured = actor
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, userID, enums.RoleManager))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != userID || captured.Role != enums.RoleManager {
		t.Fatalf("unexpected actor %+v", captured)
	}
}

func TestRequireCapability(t *testing.T) {
	tests := []struct {
		name   string
		ctx    context.Context
		status int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"user lacks fulfil", WithActor(context.Background(), types.Actor{UserID: uuid.New(), Role: enums.RoleUser}), http.StatusForbidden},
		{"manager fulfils", WithActor(context.Background(), types.Actor{UserID: uuid.New(), Role: enums.RoleManager}), http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPut, "/", nil).WithContext(tt.ctx)
		resp := httptest.NewRecorder()
		RequireCapability(enums.CapabilityOrdersFulfill, nil)(okHandler()).ServeHTTP(resp, req)
		if resp.Code != tt.status {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.status, resp.Code)
		}
	}
}

type fakeWindowStore struct {
	counts map[string]int64
	err    error
}

func (f *fakeWindowStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	store := &fakeWindowStore{counts: map[string]int64{}}
	handler := RateLimit(RateLimitPolicy{Name: "api", Window: time.Minute, Limit: 2}, store, nil)(okHandler())

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("request %d: expected %d got %d", i, want, resp.Code)
		}
	}

	other := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	other.RemoteAddr = "8.8.8.8:1000"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, other)
	if resp.Code != http.StatusOK {
		t.Fatalf("other clients keep their own window, got %d", resp.Code)
	}
}

func TestRateLimitFallsBackWhenRedisFails(t *testing.T) {
	store := &fakeWindowStore{counts: map[string]int64{}, err: errors.New("redis down")}
	handler := RateLimit(RateLimitPolicy{Name: "api", Window: time.Hour, Limit: 1}, store, nil)(okHandler())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "7.7.7.7:1"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected local limiter to apply, got %v", codes)
	}
}
