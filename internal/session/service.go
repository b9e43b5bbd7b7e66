// Package session はログイン中のIdentityを管理するセッションストアを提供する。
//
// Identityを変更できるのはこのパッケージのServiceだけである。
// 状態は anonymous と authenticated の2つで、SignIn/SignUp で authenticated に、
// SignOut で anonymous に遷移する。それ以外の操作は状態を変えない。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/bloghub/internal/auth"
	"github.com/hitoshi/bloghub/internal/latency"
	"github.com/hitoshi/bloghub/internal/model"
	"github.com/hitoshi/bloghub/internal/pending"
	"github.com/hitoshi/bloghub/internal/slot"
)

// StoreName はメトリクスとログで使うストア名。
const StoreName = "session"

// Service はセッションストア。
type Service struct {
	provider auth.Provider
	slot     slot.Store
	notifier auth.ResetNotifier
	latency  *latency.Simulator
	tracker  *pending.Tracker

	mu       sync.RWMutex
	identity *model.Identity
}

// NewService はServiceを生成する。observerはnilでもよい。
func NewService(
	provider auth.Provider,
	store slot.Store,
	notifier auth.ResetNotifier,
	sim *latency.Simulator,
	observer pending.Observer,
) *Service {
	return &Service{
		provider: provider,
		slot:     store,
		notifier: notifier,
		latency:  sim,
		tracker:  pending.NewTracker(StoreName, observer),
	}
}

// Restore は永続化スロットからIdentityを復元する。起動時に一度だけ呼び出す。
// スロットが空または壊れている場合は anonymous のまま開始する。
func (s *Service) Restore(ctx context.Context) error {
	identity, err := slot.ReadIdentity(ctx, s.slot)
	if err != nil {
		slog.Warn("discarding unreadable session slot", slog.String("error", err.Error()))
		if clearErr := s.slot.Clear(ctx); clearErr != nil {
			return fmt.Errorf("failed to clear session slot: %w", clearErr)
		}
		identity = nil
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()

	if identity != nil {
		slog.Info("session restored",
			slog.String("user_id", identity.ID),
			slog.String("role", string(identity.Role)),
		)
	}
	return nil
}

// SignIn はメールアドレスとパスワードでログインする。
// 照合は入力どおりの完全一致で、前後の空白も除去しない。
// 照合に失敗した場合はINVALID_CREDENTIALSを返し、現在のIdentityは変更しない。
func (s *Service) SignIn(ctx context.Context, email, password string) (identity *model.Identity, err error) {
	defer s.tracker.Track("sign_in", &err)()

	if err := s.latency.Wait(ctx, latency.OpSignIn); err != nil {
		return nil, err
	}

	identity, err = s.provider.Authenticate(ctx, email, password)
	if err != nil {
		slog.Info("sign in failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.setIdentity(ctx, identity)
	slog.Info("user signed in",
		slog.String("user_id", identity.ID),
		slog.String("role", string(identity.Role)),
	)
	return identity.Clone(), nil
}

// SignUp は新しいIdentityを作成してログインする。
// メールアドレスの重複はチェックしない。roleは常にuser。
func (s *Service) SignUp(ctx context.Context, email, password string, reg model.Registration) (identity *model.Identity, err error) {
	defer s.tracker.Track("sign_up", &err)()

	if err := s.latency.Wait(ctx, latency.OpSignUp); err != nil {
		return nil, err
	}

	identity, err = s.provider.Register(ctx, strings.TrimSpace(email), password, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	s.setIdentity(ctx, identity)
	slog.Info("user signed up", slog.String("user_id", identity.ID))
	return identity.Clone(), nil
}

// SignOut はIdentityと永続化スロットをクリアする。常に成功し、冪等である。
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil {
		slog.Info("user signed out", slog.String("user_id", s.identity.ID))
	}
	s.identity = nil

	if err := s.slot.Clear(ctx); err != nil {
		slog.Error("failed to clear session slot", slog.String("error", err.Error()))
	}
	return nil
}

// ResetPassword はパスワード再設定の案内を送る。常に成功し、Identityは変更しない。
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if err := s.notifier.SendReset(ctx, strings.TrimSpace(email)); err != nil {
		slog.Error("failed to send password reset",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// UpdateProfile は現在のIdentityに差分をマージする。
// Profileは指定されたキーのみ上書きし、それ以外のキーは保持する。
// 未ログインの場合はNOT_AUTHENTICATEDを返す。
func (s *Service) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (identity *model.Identity, err error) {
	defer s.tracker.Track("update_profile", &err)()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return nil, model.NewNotAuthenticatedError()
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, model.NewValidationError("name", "名前は空にできません")
	}

	updated := s.identity.Clone()
	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Avatar != nil {
		updated.Avatar = *patch.Avatar
	}
	if len(patch.Profile) > 0 {
		if updated.Profile == nil {
			updated.Profile = model.Profile{}
		}
		for k, v := range patch.Profile {
			updated.Profile[k] = v
		}
	}

	s.identity = updated
	s.persistLocked(ctx)

	slog.Info("profile updated", slog.String("user_id", updated.ID))
	return updated.Clone(), nil
}

// Current は現在のIdentityのコピーを返す。未ログインの場合はnil。
func (s *Service) Current() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Clone()
}

// IsAuthenticated はログイン中かどうかを返す。
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Role は現在のIdentityのroleを返す。未ログインの場合は空文字。
func (s *Service) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.Role
}

// State はセッションの状態を返す。
func (s *Service) State() model.SessionState {
	if s.IsAuthenticated() {
		return model.SessionAuthenticated
	}
	return model.SessionAnonymous
}

// Loading は実行中の操作があるかどうかを返す。
func (s *Service) Loading() bool {
	return s.tracker.Loading()
}

// LastError は直近に失敗した操作の理由を返す。
func (s *Service) LastError() string {
	return s.tracker.LastError()
}

// ClearError は直近の失敗理由をクリアする。
func (s *Service) ClearError() {
	s.tracker.ClearError()
}

func (s *Service) setIdentity(ctx context.Context, identity *model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity.Clone()
	s.persistLocked(ctx)
}

// persistLocked は現在のIdentityをスロットに書き込む。s.muを保持した状態で呼び出すこと。
// 書き込みの失敗はログに記録するだけで、操作自体は成功として扱う。
func (s *Service) persistLocked(ctx context.Context) {
	if err := slot.WriteIdentity(ctx, s.slot, s.identity); err != nil {
		slog.Error("failed to persist session slot",
			slog.String("user_id", s.identity.ID),
			slog.String("error", err.Error()),
		)
	}
}
