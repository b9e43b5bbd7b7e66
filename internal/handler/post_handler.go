package handler

import (
	"context"
	"iter"
	"net/http"
	"slices"

	"github.com/hitoshi/bloghub/internal/model"
)

// PostServiceInterface は記事ハンドラーが必要とするストアのインターフェース。
type PostServiceInterface interface {
	ListPosts(ctx context.Context, filter model.PostFilter) (iter.Seq[model.Post], error)
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	CreatePost(ctx context.Context, draft model.PostDraft) (*model.Post, error)
	UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, id int64) error
}

// PostHandler はブログ記事のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

type createPostRequest struct {
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Image    string   `json:"image"`
	ReadTime int      `json:"read_time"`
}

type updatePostRequest struct {
	Title    *string  `json:"title"`
	Excerpt  *string  `json:"excerpt"`
	Content  *string  `json:"content"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags"`
	Image    *string  `json:"image"`
	ReadTime *int     `json:"read_time"`
}

type postListResponse struct {
	Posts      []model.Post `json:"posts"`
	Total      int          `json:"total"`
	Category   string       `json:"category"`
	Search     string       `json:"search"`
	Categories []string     `json:"categories"`
}

// ListPosts は記事一覧を返す。
// GET /api/posts?category=React&search=hooks
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.DefaultPostFilter()
	if c := q.Get("category"); c != "" {
		filter.Category = c
	}
	filter.Search = q.Get("search")

	seq, err := h.service.ListPosts(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	posts := slices.Collect(seq)
	if posts == nil {
		posts = []model.Post{}
	}

	writeJSON(w, http.StatusOK, postListResponse{
		Posts:      posts,
		Total:      len(posts),
		Category:   filter.Category,
		Search:     filter.Search,
		Categories: model.PostCategories,
	})
}

// GetPost は記事詳細を返す。
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// CreatePost は記事を作成する。
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.service.CreatePost(r.Context(), model.PostDraft{
		Title:    req.Title,
		Excerpt:  req.Excerpt,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
		Image:    req.Image,
		ReadTime: req.ReadTime,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/posts/"+formatID(post.ID))
	writeJSON(w, http.StatusCreated, post)
}

// UpdatePost は記事を部分更新する。
// PUT /api/posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.service.UpdatePost(r.Context(), id, model.PostPatch{
		Title:    req.Title,
		Excerpt:  req.Excerpt,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
		Image:    req.Image,
		ReadTime: req.ReadTime,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// DeletePost は記事を削除する。存在しないIDでも204を返す。
// DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
