package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bloghub/internal/blog"
	"github.com/hitoshi/bloghub/internal/course"
	"github.com/hitoshi/bloghub/internal/metrics"
	"github.com/hitoshi/bloghub/internal/middleware"
	"github.com/hitoshi/bloghub/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

// SessionService はルーターが必要とするセッションストアのインターフェース。
// session.Serviceが実装する。
type SessionService interface {
	AuthServiceInterface
	SessionStatusReporter
	IsAuthenticated() bool
}

// PostStore はルーターが必要とする記事ストアのインターフェース。
type PostStore interface {
	PostServiceInterface
	PostSnapshotter
	StatusReporter
}

// CourseStore はルーターが必要とするコースストアのインターフェース。
type CourseStore interface {
	CourseServiceInterface
	StatusReporter
}

// CourseAuthoring はルーターが必要とするコース作成のインターフェース。
type CourseAuthoring interface {
	CourseAuthoringInterface
	StatusReporter
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス。nilの場合は /metrics を公開しない
	Metrics  middleware.HTTPMetricsRecorder
	Gatherer prometheus.Gatherer

	// ストア
	Session   SessionService
	Posts     PostStore
	Courses   CourseStore
	Authoring CourseAuthoring
	Analytics AnalyticsSource
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Session → Logging → Metrics → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSessionMiddleware(deps.Session))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	r.Get("/health", Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	authHandler := NewAuthHandler(deps.Session)
	postHandler := NewPostHandler(deps.Posts)
	courseHandler := NewCourseHandler(deps.Courses, deps.Authoring)
	dashboardHandler := NewDashboardHandler(deps.Analytics, deps.Session, deps.Posts, deps.Courses)
	stateHandler := NewStateHandler(deps.Session, deps.Posts, deps.Courses, deps.Authoring)

	authenticated := middleware.NewGuardMiddleware(deps.Session, middleware.RequireAuthenticated)
	admin := middleware.NewGuardMiddleware(deps.Session, middleware.RequireAdmin)
	anonymous := middleware.NewGuardMiddleware(deps.Session, middleware.RequireAnonymous)

	op := middleware.NewOperationMiddleware

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証
		r.Route("/auth", func(r chi.Router) {
			// ログイン前のみ。認証系のレート制限を追加
			r.Group(func(r chi.Router) {
				r.Use(anonymous)
				r.Use(deps.RateLimiter.AuthMiddleware())
				r.With(op(session.StoreName, "sign_in")).Post("/login", authHandler.Login)
				r.With(op(session.StoreName, "sign_up")).Post("/register", authHandler.Register)
				r.With(op(session.StoreName, "reset_password")).Post("/forgot-password", authHandler.ForgotPassword)
			})

			r.With(op(session.StoreName, "sign_out")).Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
			r.With(authenticated, op(session.StoreName, "update_profile")).Patch("/profile", authHandler.UpdateProfile)
		})

		// ブログ記事
		r.Route("/posts", func(r chi.Router) {
			r.With(op(blog.StoreName, "list_posts")).Get("/", postHandler.ListPosts)
			r.With(authenticated, op(blog.StoreName, "create_post")).Post("/", postHandler.CreatePost)

			r.Route("/{id}", func(r chi.Router) {
				r.With(op(blog.StoreName, "get_post")).Get("/", postHandler.GetPost)
				r.With(admin, op(blog.StoreName, "update_post")).Put("/", postHandler.UpdatePost)
				r.With(admin, op(blog.StoreName, "delete_post")).Delete("/", postHandler.DeletePost)
			})
		})

		// コース
		r.Route("/courses", func(r chi.Router) {
			r.With(op(course.StoreName, "list_courses")).Get("/", courseHandler.ListCourses)
			r.With(authenticated).Get("/enrolled", courseHandler.ListEnrolled)

			r.Route("/{id}", func(r chi.Router) {
				r.With(op(course.StoreName, "get_course")).Get("/", courseHandler.GetCourse)
				r.With(authenticated, op(course.StoreName, "enroll")).Post("/enroll", courseHandler.Enroll)
			})
		})
		r.With(admin, op(course.AuthoringStoreName, "submit_course")).Post("/admin/courses", courseHandler.CreateCourse)

		// ダッシュボード
		r.With(admin).Get("/dashboard", dashboardHandler.AdminDashboard)
		r.With(authenticated).Get("/user-dashboard", dashboardHandler.UserDashboard)

		r.Get("/state", stateHandler.State)
	})

	return r
}
