package handler

import (
	"net/http"

	"github.com/hitoshi/bloghub/internal/analytics"
	"github.com/hitoshi/bloghub/internal/model"
)

// AnalyticsSource は管理者ダッシュボードの集計結果を返す。
type AnalyticsSource interface {
	Latest() analytics.Snapshot
}

// PostSnapshotter は記事の全件スナップショットを返す。
type PostSnapshotter interface {
	Snapshot() []model.Post
}

// EnrolledCourseLister は受講登録済みのコースを返す。
type EnrolledCourseLister interface {
	EnrolledCourses() []model.Course
}

// IdentityReader はログイン中のIdentityを返す。
type IdentityReader interface {
	Current() *model.Identity
}

// DashboardHandler は管理者・一般ユーザーのダッシュボードのHTTPハンドラー。
type DashboardHandler struct {
	analytics AnalyticsSource
	identity  IdentityReader
	posts     PostSnapshotter
	courses   EnrolledCourseLister
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(
	analytics AnalyticsSource,
	identity IdentityReader,
	posts PostSnapshotter,
	courses EnrolledCourseLister,
) *DashboardHandler {
	return &DashboardHandler{
		analytics: analytics,
		identity:  identity,
		posts:     posts,
		courses:   courses,
	}
}

// userStats はユーザーダッシュボードの集計値。
// 記事は著者名がユーザー名と一致するものを数える。
type userStats struct {
	PostsWritten    int `json:"posts_written"`
	CoursesEnrolled int `json:"courses_enrolled"`
	TotalViews      int `json:"total_views"`
	TotalLikes      int `json:"total_likes"`
}

type userDashboardResponse struct {
	User            *model.Identity `json:"user"`
	Stats           userStats       `json:"stats"`
	Posts           []model.Post    `json:"posts"`
	EnrolledCourses []model.Course  `json:"enrolled_courses"`
}

// AdminDashboard は最新の集計結果を返す。
// GET /api/dashboard
func (h *DashboardHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analytics.Latest())
}

// UserDashboard はログイン中ユーザーの記事と受講中コースを返す。
// GET /api/user-dashboard
func (h *DashboardHandler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	identity := h.identity.Current()
	if identity == nil {
		handleServiceError(w, r, model.NewNotAuthenticatedError())
		return
	}

	posts := []model.Post{}
	stats := userStats{}
	for _, p := range h.posts.Snapshot() {
		if p.Author != identity.Name {
			continue
		}
		posts = append(posts, p)
		stats.PostsWritten++
		stats.TotalViews += p.Views
		stats.TotalLikes += p.Likes
	}

	enrolled := h.courses.EnrolledCourses()
	if enrolled == nil {
		enrolled = []model.Course{}
	}
	stats.CoursesEnrolled = len(enrolled)

	writeJSON(w, http.StatusOK, userDashboardResponse{
		User:            identity,
		Stats:           stats,
		Posts:           posts,
		EnrolledCourses: enrolled,
	})
}
