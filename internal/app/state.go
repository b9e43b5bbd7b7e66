package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/bloghub/internal/analytics"
	"github.com/hitoshi/bloghub/internal/auth"
	"github.com/hitoshi/bloghub/internal/blog"
	"github.com/hitoshi/bloghub/internal/config"
	"github.com/hitoshi/bloghub/internal/course"
	"github.com/hitoshi/bloghub/internal/database"
	"github.com/hitoshi/bloghub/internal/fixture"
	"github.com/hitoshi/bloghub/internal/handler"
	"github.com/hitoshi/bloghub/internal/latency"
	"github.com/hitoshi/bloghub/internal/metrics"
	"github.com/hitoshi/bloghub/internal/middleware"
	"github.com/hitoshi/bloghub/internal/render"
	"github.com/hitoshi/bloghub/internal/repository"
	"github.com/hitoshi/bloghub/internal/security"
	"github.com/hitoshi/bloghub/internal/session"
	"github.com/hitoshi/bloghub/internal/slot"
)

// dbPingTimeout はアカウントディレクトリへの接続確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

// State はプロセス全体で共有するストア一式。
// グローバル変数の代わりにこの値を明示的に受け渡す。
type State struct {
	Config    *config.Config
	Session   *session.Service
	Posts     *blog.Store
	Courses   *course.Store
	Authoring *course.Authoring
	Analytics *analytics.Aggregator

	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	closers []io.Closer
}

// NewState は設定からストア一式を組み立て、セッションスロットから復元する。
// 使い終わったらCloseを呼び出すこと。
func NewState(ctx context.Context, cfg *config.Config) (_ *State, err error) {
	s := &State{Config: cfg}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	set, err := fixture.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	s.Registry = prometheus.NewRegistry()
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.Metrics = metrics.NewCollector(s.Registry)

	sim := latency.NewDefault(cfg.LatencyFactor())

	provider, err := s.newProvider(ctx, set.Accounts)
	if err != nil {
		return nil, err
	}

	store, err := s.newSlot()
	if err != nil {
		return nil, err
	}

	s.Session = session.NewService(provider, store, auth.NewLogResetNotifier(cfg.BaseURL), sim, s.Metrics)
	if err := s.Session.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	renderer := render.NewRenderer(security.NewContentSanitizer())
	s.Posts, err = blog.NewStore(set.Posts, s.Session, renderer, sim, s.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}
	s.Courses = course.NewStore(set.Courses, s.Session, sim, s.Metrics)
	s.Authoring = course.NewAuthoring(s.Session, course.LogAuthoringSink{}, sim, s.Metrics)
	s.Analytics = analytics.NewAggregator(s.Posts, s.Courses)

	slog.Info("state initialized",
		slog.String("provider", provider.Name()),
		slog.Int("posts", len(set.Posts)),
		slog.Int("courses", len(set.Courses)),
		slog.Float64("latency_scale", cfg.LatencyFactor()),
	)
	return s, nil
}

// newProvider はDATABASE_URLが設定されていればアカウントディレクトリを優先し、
// 埋め込みのデモアカウントにフォールバックするプロバイダを返す。
func (s *State) newProvider(ctx context.Context, accounts []fixture.Account) (auth.Provider, error) {
	demo := auth.NewFixtureProvider(accounts)
	if !s.Config.UseDirectory() {
		return demo, nil
	}

	db, err := database.Open(s.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, db)

	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		return nil, err
	}
	slog.Info("account directory connected")

	directory := auth.NewDirectoryProvider(repository.NewPostgresAccountRepo(db))
	return auth.NewFallbackProvider(directory, demo), nil
}

// newSlot はREDIS_URLが設定されていればRedis、なければファイルのスロットを返す。
func (s *State) newSlot() (slot.Store, error) {
	if !s.Config.UseRedisSlot() {
		return slot.NewFileStore(s.Config.SessionSlotPath, s.Config.SessionSlotKey), nil
	}

	client, err := slot.NewRedisClient(s.Config.RedisURL)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, client)
	return slot.NewRedisStore(client, s.Config.SessionSlotKey), nil
}

// RouterDeps はHTTPルーターの依存関係を返す。
func (s *State) RouterDeps(rl *middleware.RateLimiter) *handler.RouterDeps {
	return &handler.RouterDeps{
		CORSAllowedOrigin: s.Config.CORSAllowedOrigin,
		RateLimiter:       rl,
		Logger:            slog.Default(),
		Metrics:           s.Metrics,
		Gatherer:          s.Registry,
		Session:           s.Session,
		Posts:             s.Posts,
		Courses:           s.Courses,
		Authoring:         s.Authoring,
		Analytics:         s.Analytics,
	}
}

// Close はDB接続とRedisクライアントを閉じる。
func (s *State) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
