package model

import (
	"maps"
	"time"
)

// Role はユーザーの権限を表す。
type Role string

const (
	// RoleAdmin は管理者。ダッシュボードとコース作成にアクセスできる。
	RoleAdmin Role = "admin"
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
)

// Profile はプロフィールの自由記述メタデータ。
// キーは任意だが、よく使うキーは定数として定義している。
type Profile map[string]string

// よく使うプロフィールキー
const (
	ProfileBio      = "bio"
	ProfileLocation = "location"
	ProfileWebsite  = "website"
	ProfileTwitter  = "twitter"
	ProfileGitHub   = "github"
	ProfileLinkedIn = "linkedin"
)

// Identity はログイン中のユーザーを表す。
// 永続化スロットにJSONとして保存されるため、JSONタグはスロットの保存形式の一部である。
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Profile   Profile   `json:"profile,omitempty"`
}

// Clone はIdentityのディープコピーを返す。
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.Profile != nil {
		c.Profile = maps.Clone(i.Profile)
	}
	return &c
}

// IsAdmin は管理者かどうかを返す。
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Registration は新規登録時にユーザーが入力するプロフィール情報。
type Registration struct {
	Name    string
	Avatar  string
	Profile Profile
}

// ProfilePatch はプロフィール更新の差分。
// nilのフィールドは変更しない。Profileに含まれるキーのみ上書きする。
type ProfilePatch struct {
	Name    *string
	Avatar  *string
	Profile Profile
}

// IsEmpty は変更内容が空かどうかを返す。
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Avatar == nil && len(p.Profile) == 0
}

// SessionState はセッションの状態を表す。
type SessionState string

const (
	// SessionAnonymous は未ログイン状態。
	SessionAnonymous SessionState = "anonymous"
	// SessionAuthenticated はログイン済み状態。
	SessionAuthenticated SessionState = "authenticated"
)

// Account はアカウントディレクトリに保存されるログイン情報。
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Avatar       string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToIdentity はAccountからIdentityを生成する。
func (a *Account) ToIdentity() *Identity {
	return &Identity{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Avatar:    a.Avatar,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
		Profile:   Profile{},
	}
}
