package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bloghub/internal/auth"
	"github.com/hitoshi/bloghub/internal/config"
	"github.com/hitoshi/bloghub/internal/database"
	"github.com/hitoshi/bloghub/internal/fixture"
	"github.com/hitoshi/bloghub/internal/handler"
	"github.com/hitoshi/bloghub/internal/logger"
	"github.com/hitoshi/bloghub/internal/middleware"
	"github.com/hitoshi/bloghub/internal/model"
	"github.com/hitoshi/bloghub/internal/repository"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映する
	logger.SetupDefaultWithLevel(w, cfg.SlogLevel())

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", ":"+cfg.ServerPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return Serve(ctx, cfg, ln)
}

// Serve はストア一式を組み立て、lnでHTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンして戻る。lnはServeが閉じる。
func Serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	// 1. ストアの初期化とセッションの復元
	state, err := NewState(ctx, cfg)
	if err != nil {
		ln.Close()
		return err
	}
	defer state.Close()

	// 2. 集計の定期実行
	if err := state.Analytics.Start(cfg.AnalyticsSchedule); err != nil {
		ln.Close()
		return fmt.Errorf("failed to start analytics: %w", err)
	}
	defer state.Analytics.Stop()

	// 3. ルーターの構築
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))
	defer rl.Stop()

	server := &http.Server{
		Handler:      handler.NewRouter(state.RouterDeps(rl)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. HTTPサーバーの起動
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はアカウントディレクトリのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.UseDirectory() {
		return errors.New("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed は埋め込みのデモアカウントをアカウントディレクトリに投入する。
// パスワードはbcryptでハッシュ化して保存する。既存のアカウントは上書きする。
func runSeed(cfg *config.Config) error {
	if !cfg.UseDirectory() {
		return errors.New("DATABASE_URL is required for seed")
	}

	set, err := fixture.Load()
	if err != nil {
		return fmt.Errorf("failed to load fixtures: %w", err)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		return err
	}

	return seedAccounts(ctx, repository.NewPostgresAccountRepo(db), set.Accounts, time.Now())
}

// accountUpserter はseedで使うリポジトリの部分集合。
type accountUpserter interface {
	Upsert(ctx context.Context, account *model.Account) error
}

func seedAccounts(ctx context.Context, repo accountUpserter, accounts []fixture.Account, now time.Time) error {
	for _, a := range accounts {
		hash, err := auth.HashPassword(a.Password, 0)
		if err != nil {
			return err
		}

		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}

		if err := repo.Upsert(ctx, &model.Account{
			ID:           id,
			Email:        a.Email,
			PasswordHash: hash,
			Name:         a.Name,
			Avatar:       a.Avatar,
			Role:         a.Role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return fmt.Errorf("failed to seed %s: %w", a.Email, err)
		}
		slog.Info("account seeded", slog.String("email", a.Email), slog.String("role", string(a.Role)))
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
