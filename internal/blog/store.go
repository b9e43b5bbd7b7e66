// Package blog はブログ記事のコンテンツストアを提供する。
//
// Storeは記事コレクション、適用中のフィルタ、閲覧中の記事を排他的に所有する。
// 呼び出し側には常にコピーを返し、内部のスライスを渡すことはない。
//
// 閲覧中の記事（CurrentPost）は「最後に完了した操作が勝つ」。
// 遅延中の GetPost が重なった場合、呼び出し順ではなく完了順で上書きされる。
package blog

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/bloghub/internal/latency"
	"github.com/hitoshi/bloghub/internal/model"
	"github.com/hitoshi/bloghub/internal/pending"
	"github.com/hitoshi/bloghub/internal/render"
)

// StoreName はメトリクスとログで使うストア名。
const StoreName = "posts"

// 未ログインで記事を作成した場合の著者表示。
const (
	PlaceholderAuthor       = "Current User"
	PlaceholderAuthorAvatar = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face"
)

// Author は記事の著者情報を提供する。sessionパッケージのServiceが実装する。
type Author interface {
	Current() *model.Identity
}

// ContentRenderer は記事本文をHTMLに変換する。
type ContentRenderer interface {
	Render(markdown string) (string, error)
}

// Store はブログ記事のコンテンツストア。
type Store struct {
	author   Author
	renderer ContentRenderer
	latency  *latency.Simulator
	tracker  *pending.Tracker
	now      func() time.Time

	mu      sync.RWMutex
	posts   []model.Post
	nextID  int64
	filter  model.PostFilter
	current *model.Post
}

// NewStore は初期データからStoreを生成する。
// 初期データの本文はここでHTMLに変換される。observerはnilでもよい。
func NewStore(
	seed []model.Post,
	author Author,
	renderer ContentRenderer,
	sim *latency.Simulator,
	observer pending.Observer,
) (*Store, error) {
	s := &Store{
		author:   author,
		renderer: renderer,
		latency:  sim,
		tracker:  pending.NewTracker(StoreName, observer),
		now:      time.Now,
		posts:    make([]model.Post, 0, len(seed)),
		nextID:   1,
		filter:   model.DefaultPostFilter(),
	}

	for _, p := range seed {
		post := p.Clone()
		html, err := renderer.Render(post.Content)
		if err != nil {
			return nil, err
		}
		post.HTML = html
		if post.ReadTime <= 0 {
			post.ReadTime = render.EstimateReadTime(post.Content)
		}
		s.posts = append(s.posts, post)
		if post.ID >= s.nextID {
			s.nextID = post.ID + 1
		}
	}

	return s, nil
}

// ListPosts はフィルタに一致する記事のシーケンスを返す。
// シーケンスは呼び出し時点の全記事のスナップショットを遅延評価する。
// カテゴリは完全一致（"All"または空で全件）、検索語はタイトルまたは本文に対する
// 大文字小文字を区別しない部分一致で、両者はANDで結合される。
// 並び順はコレクションの順序（新しい記事が先頭）。
// 指定したフィルタは適用中のフィルタとして記録される。
func (s *Store) ListPosts(ctx context.Context, filter model.PostFilter) (posts iter.Seq[model.Post], err error) {
	defer s.tracker.Track("list_posts", &err)()

	if err := s.latency.Wait(ctx, latency.OpListPosts); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.filter = filter
	snapshot := slices.Clone(s.posts)
	s.mu.Unlock()

	return func(yield func(model.Post) bool) {
		for _, p := range snapshot {
			if !Matches(p, filter) {
				continue
			}
			if !yield(p.Clone()) {
				return
			}
		}
	}, nil
}

// Matches は記事がフィルタに一致するかどうかを返す。
func Matches(p model.Post, f model.PostFilter) bool {
	if f.Category != "" && f.Category != model.CategoryAll && p.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Content), q)
}

// GetPost は指定IDの記事を返し、閲覧中の記事として記録する。
// 見つからない場合はNOT_FOUNDを返し、閲覧中の記事をクリアする。
func (s *Store) GetPost(ctx context.Context, id int64) (post *model.Post, err error) {
	defer s.tracker.Track("get_post", &err)()

	if err := s.latency.Wait(ctx, latency.OpGetPost); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		s.current = nil
		return nil, model.NewNotFoundError("post", id)
	}

	found := s.posts[i].Clone()
	s.current = &found
	out := found.Clone()
	return &out, nil
}

// CreatePost は記事を作成してコレクションの先頭に追加する。
// タイトル・抜粋・本文のいずれかが空の場合はVALIDATION_ERRORを返す。
// 著者は現在のIdentityの名前とアバター。未ログインの場合はプレースホルダになる。
func (s *Store) CreatePost(ctx context.Context, draft model.PostDraft) (post *model.Post, err error) {
	defer s.tracker.Track("create_post", &err)()

	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	category := normalizeCategory(draft.Category)

	html, err := s.renderer.Render(draft.Content)
	if err != nil {
		return nil, err
	}
	readTime := draft.ReadTime
	if readTime <= 0 {
		readTime = render.EstimateReadTime(draft.Content)
	}

	if err := s.latency.Wait(ctx, latency.OpCreatePost); err != nil {
		return nil, err
	}

	author, avatar := PlaceholderAuthor, PlaceholderAuthorAvatar
	if identity := s.author.Current(); identity != nil {
		author, avatar = identity.Name, identity.Avatar
	} else {
		slog.Warn("creating post without an authenticated identity, using placeholder author")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := model.Post{
		ID:           s.nextID,
		Title:        strings.TrimSpace(draft.Title),
		Content:      draft.Content,
		HTML:         html,
		Excerpt:      strings.TrimSpace(draft.Excerpt),
		Author:       author,
		AuthorAvatar: avatar,
		Category:     category,
		Tags:         normalizeTags(draft.Tags),
		Image:        draft.Image,
		ReadTime:     readTime,
		PublishedAt:  s.now(),
	}
	s.nextID++
	s.posts = slices.Insert(s.posts, 0, created)

	slog.Info("post created",
		slog.Int64("post_id", created.ID),
		slog.String("author", author),
		slog.String("category", category),
	)
	out := created.Clone()
	return &out, nil
}

// UpdatePost は指定IDの記事に差分をマージする。見つからない場合はNOT_FOUNDを返す。
// 閲覧中の記事が同じIDであれば、そちらも更新する。
func (s *Store) UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (post *model.Post, err error) {
	defer s.tracker.Track("update_post", &err)()

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var html string
	if patch.Content != nil {
		html, err = s.renderer.Render(*patch.Content)
		if err != nil {
			return nil, err
		}
	}

	if err := s.latency.Wait(ctx, latency.OpUpdatePost); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, model.NewNotFoundError("post", id)
	}

	updated := s.posts[i].Clone()
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Excerpt != nil {
		updated.Excerpt = strings.TrimSpace(*patch.Excerpt)
	}
	if patch.Content != nil {
		updated.Content = *patch.Content
		updated.HTML = html
	}
	if patch.Category != nil {
		updated.Category = normalizeCategory(*patch.Category)
	}
	if patch.Tags != nil {
		updated.Tags = normalizeTags(patch.Tags)
	}
	if patch.Image != nil {
		updated.Image = *patch.Image
	}
	if patch.ReadTime != nil {
		updated.ReadTime = *patch.ReadTime
		if updated.ReadTime <= 0 {
			updated.ReadTime = render.EstimateReadTime(updated.Content)
		}
	}

	s.posts[i] = updated
	if s.current != nil && s.current.ID == id {
		c := updated.Clone()
		s.current = &c
	}

	slog.Info("post updated", slog.Int64("post_id", id))
	out := updated.Clone()
	return &out, nil
}

// DeletePost は指定IDの記事を削除する。存在しないIDの場合は何もしない。
func (s *Store) DeletePost(ctx context.Context, id int64) (err error) {
	defer s.tracker.Track("delete_post", &err)()

	if err := s.latency.Wait(ctx, latency.OpDeletePost); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil
	}
	s.posts = slices.Delete(s.posts, i, i+1)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}

	slog.Info("post deleted", slog.Int64("post_id", id))
	return nil
}

// SetFilter は適用中のフィルタを設定する。
func (s *Store) SetFilter(f model.PostFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Filter は適用中のフィルタを返す。
func (s *Store) Filter() model.PostFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// CurrentPost は閲覧中の記事のコピーを返す。ない場合はnil。
func (s *Store) CurrentPost() *model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	c := s.current.Clone()
	return &c
}

// ClearCurrentPost は閲覧中の記事をクリアする。
func (s *Store) ClearCurrentPost() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Snapshot は全記事のコピーをコレクションの順序で返す。遅延は発生しない。
func (s *Store) Snapshot() []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Post, len(s.posts))
	for i, p := range s.posts {
		out[i] = p.Clone()
	}
	return out
}

// Loading は実行中の操作があるかどうかを返す。
func (s *Store) Loading() bool {
	return s.tracker.Loading()
}

// LastError は直近に失敗した操作の理由を返す。
func (s *Store) LastError() string {
	return s.tracker.LastError()
}

// ClearError は直近の失敗理由をクリアする。
func (s *Store) ClearError() {
	s.tracker.ClearError()
}

func (s *Store) indexLocked(id int64) int {
	return slices.IndexFunc(s.posts, func(p model.Post) bool { return p.ID == id })
}

func validateDraft(d model.PostDraft) error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return model.NewValidationError("title", "タイトルは必須です")
	case strings.TrimSpace(d.Excerpt) == "":
		return model.NewValidationError("excerpt", "抜粋は必須です")
	case strings.TrimSpace(d.Content) == "":
		return model.NewValidationError("content", "本文は必須です")
	}
	return nil
}

func validatePatch(p model.PostPatch) error {
	switch {
	case p.Title != nil && strings.TrimSpace(*p.Title) == "":
		return model.NewValidationError("title", "タイトルは空にできません")
	case p.Excerpt != nil && strings.TrimSpace(*p.Excerpt) == "":
		return model.NewValidationError("excerpt", "抜粋は空にできません")
	case p.Content != nil && strings.TrimSpace(*p.Content) == "":
		return model.NewValidationError("content", "本文は空にできません")
	}
	return nil
}

// normalizeCategory は空のカテゴリをOtherにする。
// 一覧にないカテゴリもそのまま受け付ける。
func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return "Other"
	}
	return category
}

// normalizeTags は前後の空白を除き、空のタグを取り除く。
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
