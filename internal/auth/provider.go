// Package auth はログイン・新規登録の照合先（アイデンティティプロバイダ）を提供する。
//
// プロバイダはIdentityを生成するだけで、ログイン状態は保持しない。
// ログイン状態はsessionパッケージが管理する。
package auth

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/hitoshi/bloghub/internal/model"
)

// DefaultAvatar は新規登録時にアバターが未指定の場合に使う画像。
const DefaultAvatar = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face"

// Provider はメールアドレスとパスワードでIdentityを照合・生成する。
type Provider interface {
	// Name はログ出力用のプロバイダ名を返す。
	Name() string

	// Authenticate は資格情報を照合する。
	// 一致しない場合はINVALID_CREDENTIALSのAPIErrorを返す。
	Authenticate(ctx context.Context, email, password string) (*model.Identity, error)

	// Register は新しいIdentityを生成する。roleは常にuser。
	Register(ctx context.Context, email, password string, reg model.Registration) (*model.Identity, error)
}

// FallbackProvider はPrimaryで失敗した場合にSecondaryで再試行する。
// Primaryの失敗理由（照合失敗・接続エラーなど）は区別しない。
type FallbackProvider struct {
	Primary   Provider
	Secondary Provider
}

// NewFallbackProvider はFallbackProviderを生成する。
func NewFallbackProvider(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{Primary: primary, Secondary: secondary}
}

// Name はログ出力用のプロバイダ名を返す。
func (p *FallbackProvider) Name() string {
	return p.Primary.Name() + "+" + p.Secondary.Name()
}

// Authenticate はPrimary、Secondaryの順に照合する。
func (p *FallbackProvider) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	identity, err := p.Primary.Authenticate(ctx, email, password)
	if err == nil {
		return identity, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	slog.Warn("primary provider failed, falling back",
		slog.String("primary", p.Primary.Name()),
		slog.String("secondary", p.Secondary.Name()),
		slog.String("error", err.Error()),
	)
	return p.Secondary.Authenticate(ctx, email, password)
}

// Register はPrimary、Secondaryの順に登録する。
func (p *FallbackProvider) Register(ctx context.Context, email, password string, reg model.Registration) (*model.Identity, error) {
	identity, err := p.Primary.Register(ctx, email, password, reg)
	if err == nil {
		return identity, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	slog.Warn("primary provider failed to register, falling back",
		slog.String("primary", p.Primary.Name()),
		slog.String("secondary", p.Secondary.Name()),
		slog.String("error", err.Error()),
	)
	return p.Secondary.Register(ctx, email, password, reg)
}

// newIdentity は登録内容からrole=userのIdentityを組み立てる。
// 名前が空の場合はメールアドレスのローカル部を使う。
func newIdentity(id, email string, reg model.Registration, now time.Time) *model.Identity {
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	avatar := reg.Avatar
	if avatar == "" {
		avatar = DefaultAvatar
	}
	profile := model.Profile{}
	maps.Copy(profile, reg.Profile)

	return &model.Identity{
		ID:        id,
		Email:     email,
		Name:      name,
		Avatar:    avatar,
		Role:      model.RoleUser,
		CreatedAt: now,
		Profile:   profile,
	}
}
