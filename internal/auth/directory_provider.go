package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bloghub/internal/model"
	"github.com/hitoshi/bloghub/internal/repository"
)

// DirectoryProvider はPostgreSQLのアカウントディレクトリで照合するプロバイダ。
// パスワードはbcryptハッシュで保存する。
type DirectoryProvider struct {
	repo repository.AccountRepository
	cost int
	now  func() time.Time
}

// NewDirectoryProvider はDirectoryProviderを生成する。
func NewDirectoryProvider(repo repository.AccountRepository) *DirectoryProvider {
	return &DirectoryProvider{
		repo: repo,
		cost: bcrypt.DefaultCost,
		now:  time.Now,
	}
}

// Name はログ出力用のプロバイダ名を返す。
func (p *DirectoryProvider) Name() string {
	return "directory"
}

// Authenticate はディレクトリのアカウントとパスワードハッシュを照合する。
func (p *DirectoryProvider) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	account, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, model.NewInvalidCredentialsError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	return account.ToIdentity(), nil
}

// Register はディレクトリにアカウントを作成する。
// メールアドレスが既に登録されている場合はディレクトリのエラーをそのまま返す。
func (p *DirectoryProvider) Register(ctx context.Context, email, password string, reg model.Registration) (*model.Identity, error) {
	hash, err := HashPassword(password, p.cost)
	if err != nil {
		return nil, err
	}

	now := p.now()
	identity := newIdentity(uuid.New().String(), email, reg, now)
	account := &model.Account{
		ID:           identity.ID,
		Email:        identity.Email,
		PasswordHash: hash,
		Name:         identity.Name,
		Avatar:       identity.Avatar,
		Role:         identity.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to register account: %w", err)
	}

	return identity, nil
}

// HashPassword はパスワードのbcryptハッシュを生成する。
// costが0の場合はbcrypt.DefaultCostを使う。
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
