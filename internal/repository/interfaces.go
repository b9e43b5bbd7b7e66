// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bloghub/internal/model"
)

// AccountRepository はアカウントディレクトリの永続化インターフェース。
type AccountRepository interface {
	// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// Create はアカウントを作成する。メールアドレスの重複はエラーになる。
	Create(ctx context.Context, account *model.Account) error

	// Upsert はメールアドレスをキーにアカウントを作成または更新する。
	Upsert(ctx context.Context, account *model.Account) error
}
