// Package course はオンラインコースのカタログと受講登録を管理する。
//
// 受講登録の集合はプロセスにつき1つで、閲覧者ごとには分けない。
// ログアウトしても集合は残り、次にログインした閲覧者にも同じEnrolledが見える。
// 集合が空に戻るのはStoreを作り直したときだけである。
package course

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/hitoshi/bloghub/internal/latency"
	"github.com/hitoshi/bloghub/internal/model"
	"github.com/hitoshi/bloghub/internal/pending"
)

// StoreName はメトリクスとログで使うストア名。
const StoreName = "courses"

// SessionReader は受講登録の可否判定に使うセッション情報。
type SessionReader interface {
	IsAuthenticated() bool
}

// Store はコースカタログのコンテンツストア。
// カタログ、適用中のフィルタ、閲覧中のコース、受講登録済みIDの集合を排他的に所有する。
// 受講登録済みフラグはカタログ・閲覧中のコース・登録済み集合の間で常に一致する。
type Store struct {
	session SessionReader
	latency *latency.Simulator
	tracker *pending.Tracker

	mu       sync.RWMutex
	catalog  []model.Course
	filter   model.CourseFilter
	current  *model.Course
	enrolled []int64 // 登録順
}

// NewStore は初期データからStoreを生成する。observerはnilでもよい。
func NewStore(seed []model.Course, session SessionReader, sim *latency.Simulator, observer pending.Observer) *Store {
	catalog := make([]model.Course, len(seed))
	for i, c := range seed {
		catalog[i] = c.Clone()
		catalog[i].Enrolled = false
	}
	return &Store{
		session: session,
		latency: sim,
		tracker: pending.NewTracker(StoreName, observer),
		catalog: catalog,
		filter:  model.DefaultCourseFilter(),
	}
}

// ListCourses はフィルタとソートを適用したコース一覧を返す。
// 適用順はカテゴリ、難易度、価格帯、検索語、ソート。未知の値は「指定なし」として扱う。
// ソートはコピーに対して安定ソートで行い、カタログの順序は変えない。
func (s *Store) ListCourses(ctx context.Context, filter model.CourseFilter) (courses []model.Course, err error) {
	defer s.tracker.Track("list_courses", &err)()

	if err := s.latency.Wait(ctx, latency.OpListCourses); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.filter = filter
	out := make([]model.Course, 0, len(s.catalog))
	for _, c := range s.catalog {
		if Matches(c, filter) {
			out = append(out, c.Clone())
		}
	}
	s.mu.Unlock()

	sortCourses(out, model.CourseSort(filter.Sort))
	return out, nil
}

// Matches はコースがフィルタ条件（ソート以外）に一致するかどうかを返す。
// 一覧にないカテゴリ・難易度・価格帯は指定なしとして扱う。
func Matches(c model.Course, f model.CourseFilter) bool {
	if slices.Contains(model.CourseCategories, f.Category) && c.Category != f.Category {
		return false
	}
	if slices.Contains(model.Levels, model.Level(f.Level)) && c.Level != model.Level(f.Level) {
		return false
	}
	if !inPriceTier(c.Price, model.PriceTier(f.Price)) {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Description), q)
}

func inPriceTier(price float64, tier model.PriceTier) bool {
	switch tier {
	case model.PriceFree:
		return price == 0
	case model.PricePaid:
		return price > 0 && price < 100
	case model.PricePremium:
		return price >= 100
	default:
		return true
	}
}

func sortCourses(courses []model.Course, order model.CourseSort) {
	var compare func(a, b model.Course) int
	switch order {
	case model.SortNewest:
		compare = func(a, b model.Course) int { return cmp.Compare(b.ID, a.ID) }
	case model.SortRating:
		compare = func(a, b model.Course) int { return cmp.Compare(b.Rating, a.Rating) }
	case model.SortPriceLow:
		compare = func(a, b model.Course) int { return cmp.Compare(a.Price, b.Price) }
	case model.SortPriceHigh:
		compare = func(a, b model.Course) int { return cmp.Compare(b.Price, a.Price) }
	default:
		return
	}
	slices.SortStableFunc(courses, compare)
}

// GetCourse は指定IDのコースを返し、閲覧中のコースとして記録する。
// 見つからない場合はNOT_FOUNDを返し、閲覧中のコースをクリアする。
func (s *Store) GetCourse(ctx context.Context, id int64) (course *model.Course, err error) {
	defer s.tracker.Track("get_course", &err)()

	if err := s.latency.Wait(ctx, latency.OpGetCourse); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		s.current = nil
		return nil, model.NewNotFoundError("course", id)
	}

	found := s.catalog[i].Clone()
	s.current = &found
	out := found.Clone()
	return &out, nil
}

// Enroll はログイン中のユーザーを指定コースに受講登録する。
// 未ログインの場合は遅延の前にNOT_AUTHENTICATEDを返す。
// 登録済みのコースに対しては何も変えずに成功する。
func (s *Store) Enroll(ctx context.Context, id int64) (course *model.Course, err error) {
	defer s.tracker.Track("enroll", &err)()

	if !s.session.IsAuthenticated() {
		return nil, model.NewNotAuthenticatedError()
	}

	if err := s.latency.Wait(ctx, latency.OpEnroll); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, model.NewNotFoundError("course", id)
	}

	if !slices.Contains(s.enrolled, id) {
		s.enrolled = append(s.enrolled, id)
		slog.Info("enrolled in course", slog.Int64("course_id", id))
	}
	s.catalog[i].Enrolled = true
	if s.current != nil && s.current.ID == id {
		s.current.Enrolled = true
	}

	out := s.catalog[i].Clone()
	return &out, nil
}

// EnrolledIDs は受講登録済みのコースIDを登録順で返す。
func (s *Store) EnrolledIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.enrolled)
}

// EnrolledCourses は受講登録済みのコースを登録順で返す。
func (s *Store) EnrolledCourses() []model.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Course, 0, len(s.enrolled))
	for _, id := range s.enrolled {
		if i := s.indexLocked(id); i >= 0 {
			out = append(out, s.catalog[i].Clone())
		}
	}
	return out
}

// IsEnrolled は指定コースに受講登録済みかどうかを返す。
func (s *Store) IsEnrolled(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.enrolled, id)
}

// Catalog はカタログ全体のコピーを返す。遅延は発生しない。
func (s *Store) Catalog() []model.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Course, len(s.catalog))
	for i, c := range s.catalog {
		out[i] = c.Clone()
	}
	return out
}

// SetFilter は適用中のフィルタを設定する。
func (s *Store) SetFilter(f model.CourseFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Filter は適用中のフィルタを返す。
func (s *Store) Filter() model.CourseFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// CurrentCourse は閲覧中のコースのコピーを返す。ない場合はnil。
func (s *Store) CurrentCourse() *model.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	c := s.current.Clone()
	return &c
}

// ClearCurrentCourse は閲覧中のコースをクリアする。
func (s *Store) ClearCurrentCourse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
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
	return slices.IndexFunc(s.catalog, func(c model.Course) bool { return c.ID == id })
}
