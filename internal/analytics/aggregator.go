// Package analytics は管理者ダッシュボード向けの集計値を算出する。
//
// 集計は記事ストアとコースストアの状態から計算され、cronスケジュールで定期的に更新される。
package analytics

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"github.com/hitoshi/bloghub/internal/model"
)

// DefaultSchedule は集計を更新する既定のcronスケジュール。
const DefaultSchedule = "@every 30s"

// topN はランキングに含める件数。
const topN = 3

// PostSource は集計対象の記事を提供する。
type PostSource interface {
	Snapshot() []model.Post
}

// CourseSource は集計対象のコースと受講登録を提供する。
type CourseSource interface {
	Catalog() []model.Course
	EnrolledIDs() []int64
}

// PostStat は記事ランキングの1行。
type PostStat struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Views int    `json:"views"`
	Likes int    `json:"likes"`
}

// CourseStat はコースランキングの1行。
type CourseStat struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Students int     `json:"students"`
	Rating   float64 `json:"rating"`
	Revenue  float64 `json:"revenue"`
}

// Display は画面表示用に整形した集計値。
type Display struct {
	Views    string `json:"views"`
	Students string `json:"students"`
	Revenue  string `json:"revenue"`
	Rating   string `json:"rating"`
}

// Snapshot はある時点の集計結果。
type Snapshot struct {
	GeneratedAt   time.Time    `json:"generated_at"`
	TotalPosts    int          `json:"total_posts"`
	TotalViews    int          `json:"total_views"`
	TotalLikes    int          `json:"total_likes"`
	TotalComments int          `json:"total_comments"`
	TotalShares   int          `json:"total_shares"`
	TotalCourses  int          `json:"total_courses"`
	TotalStudents int          `json:"total_students"`
	Enrollments   int          `json:"enrollments"`
	Revenue       float64      `json:"revenue"`
	AverageRating float64      `json:"average_rating"`
	TopPosts      []PostStat   `json:"top_posts"`
	TopCourses    []CourseStat `json:"top_courses"`
	Display       Display      `json:"display"`
}

// Aggregator は集計結果を保持し、定期的に更新する。
type Aggregator struct {
	posts   PostSource
	courses CourseSource
	now     func() time.Time

	mu     sync.RWMutex
	latest *Snapshot
	cron   *cron.Cron
}

// NewAggregator はAggregatorを生成する。
func NewAggregator(posts PostSource, courses CourseSource) *Aggregator {
	return &Aggregator{
		posts:   posts,
		courses: courses,
		now:     time.Now,
	}
}

// Refresh は集計をやり直し、結果を保持して返す。
func (a *Aggregator) Refresh() Snapshot {
	snap := Compute(a.posts.Snapshot(), a.courses.Catalog(), len(a.courses.EnrolledIDs()), a.now())

	a.mu.Lock()
	a.latest = &snap
	a.mu.Unlock()

	slog.Debug("analytics refreshed",
		slog.Int("posts", snap.TotalPosts),
		slog.Int("courses", snap.TotalCourses),
	)
	return snap.clone()
}

// Latest は直近の集計結果を返す。まだ集計していない場合はその場で集計する。
func (a *Aggregator) Latest() Snapshot {
	a.mu.RLock()
	latest := a.latest
	a.mu.RUnlock()

	if latest == nil {
		return a.Refresh()
	}
	return latest.clone()
}

// Start はscheduleに従って定期的にRefreshを実行する。
// scheduleが空の場合はDefaultScheduleを使う。起動時に一度集計する。
func (a *Aggregator) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { a.Refresh() }); err != nil {
		return fmt.Errorf("invalid analytics schedule %q: %w", schedule, err)
	}

	a.mu.Lock()
	if a.cron != nil {
		a.mu.Unlock()
		return fmt.Errorf("analytics aggregator already started")
	}
	a.cron = c
	a.mu.Unlock()

	a.Refresh()
	c.Start()
	slog.Info("analytics aggregator started", slog.String("schedule", schedule))
	return nil
}

// Stop は定期実行を停止し、実行中の集計の完了を待つ。
func (a *Aggregator) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	slog.Info("analytics aggregator stopped")
}

// Compute は記事とコースから集計結果を算出する。
// 売上は価格×受講者数の合計、平均評価はコースの単純平均。
func Compute(posts []model.Post, courses []model.Course, enrollments int, now time.Time) Snapshot {
	s := Snapshot{
		GeneratedAt:  now,
		TotalPosts:   len(posts),
		TotalCourses: len(courses),
		Enrollments:  enrollments,
	}

	for _, p := range posts {
		s.TotalViews += p.Views
		s.TotalLikes += p.Likes
		s.TotalComments += p.Comments
		s.TotalShares += p.Shares
	}

	var ratingSum float64
	for _, c := range courses {
		s.TotalStudents += c.Students
		s.Revenue += c.Price * float64(c.Students)
		ratingSum += c.Rating
	}
	if len(courses) > 0 {
		s.AverageRating = ratingSum / float64(len(courses))
	}

	s.TopPosts = topPosts(posts)
	s.TopCourses = topCourses(courses)
	s.Display = Display{
		Views:    humanize.Comma(int64(s.TotalViews)),
		Students: humanize.Comma(int64(s.TotalStudents)),
		Revenue:  "$" + humanize.CommafWithDigits(s.Revenue, 2),
		Rating:   humanize.FtoaWithDigits(s.AverageRating, 1),
	}
	return s
}

func topPosts(posts []model.Post) []PostStat {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b model.Post) int { return cmp.Compare(b.Views, a.Views) })

	out := make([]PostStat, 0, topN)
	for _, p := range sorted[:min(topN, len(sorted))] {
		out = append(out, PostStat{ID: p.ID, Title: p.Title, Views: p.Views, Likes: p.Likes})
	}
	return out
}

func topCourses(courses []model.Course) []CourseStat {
	sorted := slices.Clone(courses)
	slices.SortStableFunc(sorted, func(a, b model.Course) int { return cmp.Compare(b.Students, a.Students) })

	out := make([]CourseStat, 0, topN)
	for _, c := range sorted[:min(topN, len(sorted))] {
		out = append(out, CourseStat{
			ID:       c.ID,
			Title:    c.Title,
			Students: c.Students,
			Rating:   c.Rating,
			Revenue:  c.Price * float64(c.Students),
		})
	}
	return out
}

func (s Snapshot) clone() Snapshot {
	s.TopPosts = slices.Clone(s.TopPosts)
	s.TopCourses = slices.Clone(s.TopCourses)
	return s
}
