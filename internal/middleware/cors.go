package middleware

import "net/http"

// APIが公開するメソッドとヘッダー。
// Location は記事作成、Retry-After はレート制限の応答で返す。
const (
	corsAllowedMethods = "GET, POST, PUT, PATCH, DELETE"
	corsAllowedHeaders = "Content-Type"
	corsExposedHeaders = "Location, Retry-After"
	corsMaxAge         = "600"
)

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// Originヘッダーが別オリジンの場合はCORSヘッダーを付けずに通す（ブラウザが拒否する）。
// Access-Control-Request-Methodを伴うOPTIONSのみをプリフライトとして204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin != "" && origin != allowedOrigin {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposedHeaders)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
