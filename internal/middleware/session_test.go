package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bloghub/internal/model"
)

// mockSession はセッションストアのモック。
type mockSession struct {
	identity *model.Identity
}

func (m *mockSession) Current() *model.Identity {
	return m.identity.Clone()
}

func (m *mockSession) IsAuthenticated() bool {
	return m.identity != nil
}

func (m *mockSession) Role() model.Role {
	if m.identity == nil {
		return ""
	}
	return m.identity.Role
}

func TestSessionMiddleware_Authenticated_InjectsUserID(t *testing.T) {
	reader := &mockSession{identity: &model.Identity{ID: "user-42", Role: model.RoleUser}}

	var capturedUserID string
	var capturedRole model.Role
	handler := NewSessionMiddleware(reader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, _ = UserIDFromContext(r.Context())
		capturedRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-42" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-42")
	}
	if capturedRole != model.RoleUser {
		t.Errorf("role = %q, want %q", capturedRole, model.RoleUser)
	}
}

func TestSessionMiddleware_Anonymous_PassesThrough(t *testing.T) {
	handlerCalled := false
	handler := NewSessionMiddleware(&mockSession{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if _, err := UserIDFromContext(r.Context()); err == nil {
			t.Error("anonymous request should not carry a user ID")
		}
		if role := RoleFromContext(r.Context()); role != "" {
			t.Errorf("anonymous request should not carry a role, got %q", role)
		}
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/posts", nil))

	if !handlerCalled {
		t.Error("handler should have been called")
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-789")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-789" {
		t.Errorf("userID = %q, want %q", userID, "user-789")
	}
}
