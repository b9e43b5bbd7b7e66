package model

import (
	"slices"
	"time"
)

// CategoryAll はブログ一覧で全カテゴリを表示するフィルタ値。
const CategoryAll = "All"

// PostCategories はブログ記事のカテゴリ一覧。
var PostCategories = []string{"React", "CSS", "Backend", "Design", "JavaScript", "Other"}

// Post はブログ記事を表す。
type Post struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"` // Markdownソース
	HTML         string    `json:"html"`    // サニタイズ済みHTML
	Excerpt      string    `json:"excerpt"`
	Author       string    `json:"author"`
	AuthorAvatar string    `json:"author_avatar"`
	Category     string    `json:"category"`
	Tags         []string  `json:"tags"`
	Image        string    `json:"image"`
	ReadTime     int       `json:"read_time"` // 分
	PublishedAt  time.Time `json:"published_at"`
	Views        int       `json:"views"`
	Likes        int       `json:"likes"`
	Comments     int       `json:"comments"`
	Shares       int       `json:"shares"`
}

// Clone はPostのディープコピーを返す。
func (p Post) Clone() Post {
	p.Tags = slices.Clone(p.Tags)
	return p
}

// PostDraft は記事作成フォームの入力内容。
type PostDraft struct {
	Title    string
	Excerpt  string
	Content  string
	Category string
	Tags     []string
	Image    string
	ReadTime int
}

// PostPatch は記事更新の差分。nilのフィールドは変更しない。
type PostPatch struct {
	Title    *string
	Excerpt  *string
	Content  *string
	Category *string
	Tags     []string
	Image    *string
	ReadTime *int
}

// PostFilter はブログ一覧のフィルタ条件。
type PostFilter struct {
	Category string // "All" または空文字で全件
	Search   string // タイトルまたは本文に対する大文字小文字を区別しない部分一致
}

// DefaultPostFilter は初期状態のフィルタを返す。
func DefaultPostFilter() PostFilter {
	return PostFilter{Category: CategoryAll}
}
