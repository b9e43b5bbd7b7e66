package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusClientClosedRequest はクライアントが待たずに切断したリクエストのステータス。
const statusClientClosedRequest = 499

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// requestNote は下流のミドルウェアが判明した情報をアクセスログへ渡すための入れ物。
// 1リクエストの処理は1つのgoroutineで完結するためロックは持たない。
type requestNote struct {
	store       string
	operation   string
	requirement string
	outcome     string
}

var requestNoteContextKey = contextKey("request_note")

func noteFromContext(ctx context.Context) *requestNote {
	n, _ := ctx.Value(requestNoteContextKey).(*requestNote)
	return n
}

// noteGuard はガードの判定結果をアクセスログに残す。
// 複数のガードを通過した場合は最後の判定が残る。
func noteGuard(ctx context.Context, req Requirement, outcome Outcome) {
	if n := noteFromContext(ctx); n != nil {
		n.requirement = req.String()
		n.outcome = outcome.String()
	}
}

// NewOperationMiddleware はルートが呼び出すストアと操作名をアクセスログに残すミドルウェアを返す。
// 操作名はストアのメトリクスラベルと揃える。
func NewOperationMiddleware(store, operation string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n := noteFromContext(r.Context()); n != nil {
				n.store = store
				n.operation = operation
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、route、status、duration_ms を含み、
// 分かる範囲でuser_id、role、ストア操作、ガードの判定を追加する。
// セッションミドルウェアの後に置くこと。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			note := &requestNote{}
			ctx := context.WithValue(r.Context(), requestNoteContextKey, note)

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", float64(duration.Nanoseconds())/float64(time.Millisecond)),
			}

			if rctx := chi.RouteContext(ctx); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, slog.String("route", pattern))
				}
			}
			if userID, err := UserIDFromContext(ctx); err == nil {
				attrs = append(attrs,
					slog.String("user_id", userID),
					slog.String("role", string(RoleFromContext(ctx))),
				)
			}
			if note.operation != "" {
				attrs = append(attrs,
					slog.String("store", note.store),
					slog.String("operation", note.operation),
				)
			}
			if note.requirement != "" {
				attrs = append(attrs, slog.Group("guard",
					slog.String("requirement", note.requirement),
					slog.String("outcome", note.outcome),
				))
			}

			logger.LogAttrs(ctx, levelForStatus(rec.statusCode), "http_request", attrs...)
		})
	}
}

// levelForStatus はステータスコードからログレベルを決める。
// クライアント切断（499）はサーバー側の問題ではないためINFOとする。
func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status == statusClientClosedRequest:
		return slog.LevelInfo
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
