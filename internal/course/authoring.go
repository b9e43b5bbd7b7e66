package course

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hitoshi/bloghub/internal/latency"
	"github.com/hitoshi/bloghub/internal/model"
	"github.com/hitoshi/bloghub/internal/pending"
)

// AuthoringStoreName はメトリクスとログで使うストア名。
const AuthoringStoreName = "authoring"

// IdentityReader は講師情報の補完に使うセッション情報。
type IdentityReader interface {
	Current() *model.Identity
}

// AuthoringSink は作成されたコースの受け渡し先。
type AuthoringSink interface {
	Publish(ctx context.Context, course model.Course) error
}

// LogAuthoringSink は作成されたコースを構造化ログに出力するだけのAuthoringSink。
type LogAuthoringSink struct{}

// Publish はコースの概要をログに出力する。
func (LogAuthoringSink) Publish(_ context.Context, c model.Course) error {
	slog.Info("course submitted",
		slog.Int64("course_id", c.ID),
		slog.String("title", c.Title),
		slog.String("category", c.Category),
		slog.String("level", string(c.Level)),
		slog.Int("modules", len(c.Modules)),
		slog.Int("lessons", c.Lessons),
	)
	return nil
}

// Authoring はコース作成フォームの送信を受け付ける。
// 作成されたコースはAuthoringSinkに渡され、カタログには追加されない。
type Authoring struct {
	session IdentityReader
	sink    AuthoringSink
	latency *latency.Simulator
	tracker *pending.Tracker
	now     func() time.Time
}

// NewAuthoring はAuthoringを生成する。sinkがnilの場合はLogAuthoringSinkを使う。
func NewAuthoring(session IdentityReader, sink AuthoringSink, sim *latency.Simulator, observer pending.Observer) *Authoring {
	if sink == nil {
		sink = LogAuthoringSink{}
	}
	return &Authoring{
		session: session,
		sink:    sink,
		latency: sim,
		tracker: pending.NewTracker(AuthoringStoreName, observer),
		now:     time.Now,
	}
}

// Submit は下書きを検証してコースを組み立て、AuthoringSinkに渡す。
// 評価・レビュー数・受講者数は0で始まり、レッスン数はモジュールから算出する。
// 講師のアバターはログイン中のユーザーのものを使う。
func (a *Authoring) Submit(ctx context.Context, draft model.CourseDraft) (course *model.Course, err error) {
	defer a.tracker.Track("submit_course", &err)()

	if err := validateCourseDraft(draft); err != nil {
		return nil, err
	}

	if err := a.latency.Wait(ctx, latency.OpSubmitCourse); err != nil {
		return nil, err
	}

	c := buildCourse(draft, a.now())
	if identity := a.session.Current(); identity != nil {
		c.Instructor.Avatar = identity.Avatar
	}

	if err := a.sink.Publish(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to publish course: %w", err)
	}

	out := c.Clone()
	return &out, nil
}

// Loading は実行中の送信があるかどうかを返す。
func (a *Authoring) Loading() bool {
	return a.tracker.Loading()
}

// LastError は直近に失敗した送信の理由を返す。
func (a *Authoring) LastError() string {
	return a.tracker.LastError()
}

func validateCourseDraft(d model.CourseDraft) error {
	required := []struct {
		field string
		value string
		label string
	}{
		{"title", d.Title, "コースタイトル"},
		{"description", d.Description, "概要"},
		{"full_description", d.FullDescription, "詳細説明"},
		{"duration", d.Duration, "所要時間"},
		{"instructor.name", d.Instructor.Name, "講師名"},
		{"instructor.title", d.Instructor.Title, "講師の肩書き"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return model.NewValidationError(r.field, r.label+"は必須です")
		}
	}

	if !slices.Contains(model.CourseCategories, d.Category) {
		return model.NewValidationError("category", "未定義のカテゴリです")
	}
	if !slices.Contains(model.Levels, d.Level) {
		return model.NewValidationError("level", "未定義の難易度です")
	}
	if d.Price < 0 || d.OriginalPrice < 0 {
		return model.NewValidationError("price", "価格は0以上で指定してください")
	}
	if len(nonBlank(d.LearningOutcomes)) == 0 {
		return model.NewValidationError("learning_outcomes", "学習内容を1つ以上入力してください")
	}

	for i, m := range d.Modules {
		if strings.TrimSpace(m.Title) == "" {
			return model.NewValidationError(fmt.Sprintf("modules[%d].title", i), "モジュール名は必須です")
		}
		for j, l := range m.Lessons {
			if strings.TrimSpace(l.Title) == "" {
				return model.NewValidationError(fmt.Sprintf("modules[%d].lessons[%d].title", i, j), "レッスン名は必須です")
			}
		}
	}
	return nil
}

func buildCourse(d model.CourseDraft, now time.Time) model.Course {
	c := model.Course{
		ID:               now.UnixMilli(),
		Title:            strings.TrimSpace(d.Title),
		Description:      strings.TrimSpace(d.Description),
		FullDescription:  strings.TrimSpace(d.FullDescription),
		Category:         d.Category,
		Level:            d.Level,
		Price:            d.Price,
		Duration:         strings.TrimSpace(d.Duration),
		Image:            d.Image,
		LearningOutcomes: nonBlank(d.LearningOutcomes),
		Requirements:     nonBlank(d.Requirements),
		Instructor: model.Instructor{
			Name:  strings.TrimSpace(d.Instructor.Name),
			Title: strings.TrimSpace(d.Instructor.Title),
			Bio:   d.Instructor.Bio,
		},
	}
	if d.OriginalPrice > 0 {
		p := d.OriginalPrice
		c.OriginalPrice = &p
	}

	c.Modules = make([]model.Module, len(d.Modules))
	for i, m := range d.Modules {
		m.Lessons = slices.Clone(m.Lessons)
		c.Modules[i] = m
	}
	c.Lessons = c.LessonCount()
	return c
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
