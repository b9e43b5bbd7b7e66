package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testOrigin = "http://localhost:5173"

func newCORSHandler(called *bool) http.Handler {
	return NewCORSMiddleware(testOrigin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSMiddleware_AllowedOrigin_SetsHeaders(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.Header.Set("Origin", testOrigin)
	w := httptest.NewRecorder()

	newCORSHandler(&called).ServeHTTP(w, req)

	if !called {
		t.Fatal("next handler should be called for a simple request")
	}
	tests := []struct {
		header string
		want   string
	}{
		{"Access-Control-Allow-Origin", testOrigin},
		{"Access-Control-Allow-Credentials", "true"},
		{"Access-Control-Expose-Headers", "Location, Retry-After"},
		{"Vary", "Origin"},
		// メソッド一覧はプリフライトでのみ返す
		{"Access-Control-Allow-Methods", ""},
	}
	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestCORSMiddleware_Preflight_Returns204(t *testing.T) {
	// 記事の更新（PUT）とプロフィール更新（PATCH）はプリフライトが必要
	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			var called bool
			req := httptest.NewRequest(http.MethodOptions, "/api/posts/1", nil)
			req.Header.Set("Origin", testOrigin)
			req.Header.Set("Access-Control-Request-Method", method)
			w := httptest.NewRecorder()

			newCORSHandler(&called).ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
			}
			if called {
				t.Error("next handler should not be called for preflight")
			}
			if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, PATCH, DELETE" {
				t.Errorf("Access-Control-Allow-Methods = %q", got)
			}
			if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
				t.Errorf("Access-Control-Allow-Headers = %q", got)
			}
			if got := w.Header().Get("Access-Control-Max-Age"); got != "600" {
				t.Errorf("Access-Control-Max-Age = %q", got)
			}
		})
	}
}

func TestCORSMiddleware_PlainOptions_PassesThrough(t *testing.T) {
	var called bool
	w := httptest.NewRecorder()

	newCORSHandler(&called).ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/posts", nil))

	if !called {
		t.Error("OPTIONS without Access-Control-Request-Method is not a preflight")
	}
}

func TestCORSMiddleware_OtherOrigin_NoCORSHeaders(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w := httptest.NewRecorder()

	newCORSHandler(&called).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
	if w.Code == http.StatusNoContent {
		t.Error("preflight from another origin should not be answered")
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want %q", got, "Origin")
	}
}

func TestCORSMiddleware_NoOrigin_SetsAllowOrigin(t *testing.T) {
	var called bool
	w := httptest.NewRecorder()

	newCORSHandler(&called).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, testOrigin)
	}
}
