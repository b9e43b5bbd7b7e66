// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/bloghub/internal/middleware"
	"github.com/hitoshi/bloghub/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするセッションストアのインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
	SignUp(ctx context.Context, email, password string, reg model.Registration) (*model.Identity, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.Identity, error)
	Current() *model.Identity
}

// AuthHandler はログイン・登録・プロフィール関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Name     string        `json:"name"`
	Avatar   string        `json:"avatar"`
	Profile  model.Profile `json:"profile"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type profileRequest struct {
	Name    *string       `json:"name"`
	Avatar  *string       `json:"avatar"`
	Profile model.Profile `json:"profile"`
}

// sessionResponse はログイン状態のAPIレスポンス。
// Homeはログイン後に遷移するパス。
type sessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	Identity      *model.Identity `json:"identity"`
	Home          string          `json:"home,omitempty"`
}

func newSessionResponse(identity *model.Identity) sessionResponse {
	if identity == nil {
		return sessionResponse{}
	}
	return sessionResponse{
		Authenticated: true,
		Identity:      identity,
		Home:          middleware.HomePath(identity.Role),
	}
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identity, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse(identity))
}

// Register は新規登録してログインする。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("email", "メールアドレスを入力してください"))
		return
	}
	if req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("password", "パスワードを入力してください"))
		return
	}

	identity, err := h.service.SignUp(r.Context(), req.Email, req.Password, model.Registration{
		Name:    req.Name,
		Avatar:  req.Avatar,
		Profile: req.Profile,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSessionResponse(identity))
}

// ForgotPassword はパスワード再設定の案内を送る。
// 登録の有無に関わらず常に202を返す。
// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("email", "メールアドレスを入力してください"))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"email": req.Email})
}

// Logout はログアウトする。未ログインでも成功する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SignOut(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログイン状態を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionResponse(h.service.Current()))
}

// UpdateProfile はプロフィールを更新する。
// PATCH /api/auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identity, err := h.service.UpdateProfile(r.Context(), model.ProfilePatch{
		Name:    req.Name,
		Avatar:  req.Avatar,
		Profile: req.Profile,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse(identity))
}
