package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/bloghub/internal/model"
)

// 遷移先のパス
const (
	SignInPath        = "/login"
	AdminHomePath     = "/dashboard"
	UserHomePath      = "/user-dashboard"
	redirectQueryName = "redirect"
)

// SessionReader はアクセス制御の判定に必要なセッション情報。
type SessionReader interface {
	IsAuthenticated() bool
	Role() model.Role
}

// Requirement はルートのアクセス要件。
type Requirement int

const (
	// RequireAuthenticated はログイン済みであることを要求する。
	RequireAuthenticated Requirement = iota
	// RequireAdmin は管理者であることを要求する。
	RequireAdmin
	// RequireAnonymous は未ログインであることを要求する（ログイン画面など）。
	RequireAnonymous
)

// String はログ出力用の名前を返す。
func (r Requirement) String() string {
	switch r {
	case RequireAuthenticated:
		return "authenticated"
	case RequireAdmin:
		return "admin"
	case RequireAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Outcome はアクセス判定の結果。
type Outcome int

const (
	// Allow はアクセスを許可する。
	Allow Outcome = iota
	// RedirectToSignIn はログイン画面へ誘導する。
	RedirectToSignIn
	// Forbid は権限不足として拒否する。
	Forbid
	// RedirectAway はログイン済みユーザーをホームへ戻す。
	RedirectAway
)

// String はログ出力用の名前を返す。
func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectToSignIn:
		return "redirect_sign_in"
	case Forbid:
		return "forbid"
	case RedirectAway:
		return "redirect_away"
	default:
		return "unknown"
	}
}

// Decision はEvaluateの判定結果。
// Targetはリダイレクト系の結果でのみ設定される。
type Decision struct {
	Outcome Outcome
	Target  string
}

// Evaluate はセッションの状態とルートの要件からアクセス可否を判定する。
// 副作用を持たない純粋な関数。
func Evaluate(reader SessionReader, req Requirement) Decision {
	authenticated := reader.IsAuthenticated()

	switch req {
	case RequireAuthenticated:
		if !authenticated {
			return Decision{Outcome: RedirectToSignIn, Target: SignInPath}
		}
	case RequireAdmin:
		if !authenticated {
			return Decision{Outcome: RedirectToSignIn, Target: SignInPath}
		}
		if reader.Role() != model.RoleAdmin {
			return Decision{Outcome: Forbid}
		}
	case RequireAnonymous:
		if authenticated {
			return Decision{Outcome: RedirectAway, Target: HomePath(reader.Role())}
		}
	}
	return Decision{Outcome: Allow}
}

// HomePath はロールごとのホーム画面のパスを返す。
func HomePath(role model.Role) string {
	if role == model.RoleAdmin {
		return AdminHomePath
	}
	return UserHomePath
}

// SignInLocation はログイン後に元のパスへ戻るためのリダイレクト先を返す。
func SignInLocation(path string) string {
	return SignInPath + "?" + url.Values{redirectQueryName: {path}}.Encode()
}

// NewGuardMiddleware はルートのアクセス要件を強制するミドルウェアを返す。
// 未ログインは302で /login?redirect=<path> へ、権限不足は403 FORBIDDEN、
// ログイン済みで匿名専用ルートにアクセスした場合は302でホームへ誘導する。
func NewGuardMiddleware(reader SessionReader, req Requirement) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Evaluate(reader, req)
			noteGuard(r.Context(), req, d.Outcome)

			switch d.Outcome {
			case Allow:
				next.ServeHTTP(w, r)
				return
			case RedirectToSignIn:
				http.Redirect(w, r, SignInLocation(r.URL.Path), http.StatusFound)
			case RedirectAway:
				http.Redirect(w, r, d.Target, http.StatusFound)
			case Forbid:
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
			}

			slog.Info("route guard denied request",
				slog.String("path", r.URL.Path),
				slog.String("requirement", req.String()),
				slog.String("role", string(reader.Role())),
			)
		})
	}
}
