package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/bloghub/internal/model"
)

// CourseServiceInterface はコースハンドラーが必要とするストアのインターフェース。
type CourseServiceInterface interface {
	ListCourses(ctx context.Context, filter model.CourseFilter) ([]model.Course, error)
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	Enroll(ctx context.Context, id int64) (*model.Course, error)
	EnrolledCourses() []model.Course
}

// CourseAuthoringInterface はコース作成に必要なインターフェース。
type CourseAuthoringInterface interface {
	Submit(ctx context.Context, draft model.CourseDraft) (*model.Course, error)
}

// CourseHandler はコースのHTTPハンドラー。
type CourseHandler struct {
	service   CourseServiceInterface
	authoring CourseAuthoringInterface
}

// NewCourseHandler はCourseHandlerを生成する。
func NewCourseHandler(service CourseServiceInterface, authoring CourseAuthoringInterface) *CourseHandler {
	return &CourseHandler{
		service:   service,
		authoring: authoring,
	}
}

type courseListResponse struct {
	Courses    []model.Course     `json:"courses"`
	Total      int                `json:"total"`
	Filter     courseFilterFields `json:"filter"`
	Categories []string           `json:"categories"`
}

type courseFilterFields struct {
	Category string `json:"category"`
	Level    string `json:"level"`
	Price    string `json:"price"`
	Search   string `json:"search"`
	Sort     string `json:"sort"`
}

type createCourseRequest struct {
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	FullDescription  string           `json:"full_description"`
	Category         string           `json:"category"`
	Level            model.Level      `json:"level"`
	Price            float64          `json:"price"`
	OriginalPrice    float64          `json:"original_price"`
	Duration         string           `json:"duration"`
	Image            string           `json:"image"`
	Instructor       model.Instructor `json:"instructor"`
	LearningOutcomes []string         `json:"learning_outcomes"`
	Requirements     []string         `json:"requirements"`
	Modules          []model.Module   `json:"modules"`
}

// ListCourses はコース一覧を返す。
// GET /api/courses?category=design&level=beginner&price=free&search=go&sort=rating
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.DefaultCourseFilter()
	if v := q.Get("category"); v != "" {
		filter.Category = v
	}
	if v := q.Get("level"); v != "" {
		filter.Level = v
	}
	if v := q.Get("price"); v != "" {
		filter.Price = v
	}
	if v := q.Get("sort"); v != "" {
		filter.Sort = v
	}
	filter.Search = q.Get("search")

	courses, err := h.service.ListCourses(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}

	writeJSON(w, http.StatusOK, courseListResponse{
		Courses: courses,
		Total:   len(courses),
		Filter: courseFilterFields{
			Category: filter.Category,
			Level:    filter.Level,
			Price:    filter.Price,
			Search:   filter.Search,
			Sort:     filter.Sort,
		},
		Categories: model.CourseCategories,
	})
}

// GetCourse はコース詳細を返す。
// GET /api/courses/{id}
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, course)
}

// Enroll はコースを受講登録する。登録済みでも成功する。
// POST /api/courses/{id}/enroll
func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	course, err := h.service.Enroll(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, course)
}

// ListEnrolled は受講登録済みのコースを返す。
// GET /api/courses/enrolled
func (h *CourseHandler) ListEnrolled(w http.ResponseWriter, r *http.Request) {
	courses := h.service.EnrolledCourses()
	if courses == nil {
		courses = []model.Course{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"courses": courses,
		"total":   len(courses),
	})
}

// CreateCourse は管理者がコースを作成する。
// POST /api/admin/courses
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := h.authoring.Submit(r.Context(), model.CourseDraft{
		Title:            req.Title,
		Description:      req.Description,
		FullDescription:  req.FullDescription,
		Category:         req.Category,
		Level:            req.Level,
		Price:            req.Price,
		OriginalPrice:    req.OriginalPrice,
		Duration:         req.Duration,
		Image:            req.Image,
		Instructor:       req.Instructor,
		LearningOutcomes: req.LearningOutcomes,
		Requirements:     req.Requirements,
		Modules:          req.Modules,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, course)
}
