package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// TestRouterIntegration_GuardedRoutes は
// Session -> RateLimit -> Guard のミドルウェアチェーンがchi.Routerで正しく動作することを検証する。
func TestRouterIntegration_GuardedRoutes(t *testing.T) {
	session := &mockSession{}

	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    100,
		AuthRate:        100,
		AuthBurst:       100,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware())
	r.Use(NewSessionMiddleware(session))
	r.Use(rl.GeneralMiddleware())

	r.Get("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(NewGuardMiddleware(session, RequireAuthenticated))
		r.Get("/api/user-dashboard", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(NewGuardMiddleware(session, RequireAdmin))
		r.Get("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	r.Get("/api/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	do := func(path string) *http.Response {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Result()
	}

	t.Run("公開ルートは未ログインでも通る", func(t *testing.T) {
		if resp := do("/api/posts"); resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("認証ルートは未ログインでログインへ誘導", func(t *testing.T) {
		resp := do("/api/user-dashboard")
		if resp.StatusCode != http.StatusFound {
			t.Errorf("status = %d, want 302", resp.StatusCode)
		}
	})

	t.Run("ログイン後はユーザーIDが渡る", func(t *testing.T) {
		session.identity = user.identity
		defer func() { session.identity = nil }()

		resp := do("/api/user-dashboard")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		if body["user_id"] != "2" {
			t.Errorf("user_id = %q, want %q", body["user_id"], "2")
		}

		if resp := do("/api/dashboard"); resp.StatusCode != http.StatusForbidden {
			t.Errorf("admin route status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("panicは500の統一エラーになる", func(t *testing.T) {
		resp := do("/api/panic")
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", resp.StatusCode)
		}
		var body ErrorResponseBody
		json.NewDecoder(resp.Body).Decode(&body)
		if body.Code != "INTERNAL_ERROR" {
			t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
		}
	})
}
