// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/bloghub/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// リクエストコンテキストのキー
var (
	userIDContextKey = contextKey("user_id")
	roleContextKey   = contextKey("role")
)

// IdentityReader はログイン中のIdentityの取得に必要なインターフェース。
// session.Serviceの部分集合として定義する。
type IdentityReader interface {
	Current() *model.Identity
}

// NewSessionMiddleware はセッションストアからログイン中のユーザーを読み取り、
// ユーザーIDとロールをリクエストコンテキストに注入するミドルウェアを返す。
// 未ログインのリクエストもそのまま通す。アクセス制御はガードミドルウェアが行う。
func NewSessionMiddleware(reader IdentityReader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := reader.Current()
			if identity == nil || identity.ID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, identity.ID)
			ctx = context.WithValue(ctx, roleContextKey, identity.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// ログイン中にセッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// RoleFromContext はリクエストコンテキストからロールを取得する。
// 未ログインの場合は空文字を返す。
func RoleFromContext(ctx context.Context) model.Role {
	role, _ := ctx.Value(roleContextKey).(model.Role)
	return role
}
