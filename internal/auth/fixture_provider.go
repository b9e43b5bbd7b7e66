package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bloghub/internal/fixture"
	"github.com/hitoshi/bloghub/internal/model"
)

// FixtureProvider はデモ用アカウントの許可リストで照合するプロバイダ。
// メールアドレスとパスワードの完全一致のみを受け付ける。
// 新規登録は許可リストを変更せず、常に新しいIdentityを生成する。
type FixtureProvider struct {
	accounts []fixture.Account
	now      func() time.Time
}

// NewFixtureProvider はFixtureProviderを生成する。
func NewFixtureProvider(accounts []fixture.Account) *FixtureProvider {
	return &FixtureProvider{
		accounts: append([]fixture.Account(nil), accounts...),
		now:      time.Now,
	}
}

// Name はログ出力用のプロバイダ名を返す。
func (p *FixtureProvider) Name() string {
	return "fixture"
}

// Authenticate は許可リストと照合する。
func (p *FixtureProvider) Authenticate(_ context.Context, email, password string) (*model.Identity, error) {
	for _, a := range p.accounts {
		if a.Email == email && a.Password == password {
			return a.Identity(p.now()), nil
		}
	}
	return nil, model.NewInvalidCredentialsError()
}

// Register は重複チェックを行わずにrole=userのIdentityを生成する。
func (p *FixtureProvider) Register(_ context.Context, email, _ string, reg model.Registration) (*model.Identity, error) {
	return newIdentity(uuid.New().String(), email, reg, p.now()), nil
}
