// Package slot はログイン中のIdentityを保存する永続化スロットを提供する。
//
// スロットは固定キーに対するひとつのキーバリューエントリで、
// ログイン・新規登録・プロフィール更新時に書き込まれ、ログアウト時に削除され、
// プロセス起動時に一度だけ読み込まれる。
package slot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/bloghub/internal/model"
)

// DefaultKey はスロットのデフォルトキー。
const DefaultKey = "user"

// Store は永続化スロットのバックエンド。
// Loadは値が存在しない場合に (nil, nil) を返す。
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// ReadIdentity はスロットからIdentityを読み込む。
// 値が存在しない場合は (nil, nil) を返す。
func ReadIdentity(ctx context.Context, s Store) (*model.Identity, error) {
	data, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode slot: %w", err)
	}
	if identity.ID == "" || identity.Email == "" {
		return nil, fmt.Errorf("slot entry is missing id or email")
	}
	return &identity, nil
}

// WriteIdentity はIdentityをJSONとしてスロットに書き込む。
func WriteIdentity(ctx context.Context, s Store, identity *model.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := s.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}
