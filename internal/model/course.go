package model

import "slices"

// Level はコースの難易度を表す。
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// PriceTier はコース一覧の価格帯フィルタ。
type PriceTier string

const (
	// PriceFree は価格が0のコース。
	PriceFree PriceTier = "free"
	// PricePaid は0より大きく100未満のコース。
	PricePaid PriceTier = "paid"
	// PricePremium は100以上のコース。
	PricePremium PriceTier = "premium"
)

// CourseSort はコース一覧の並び順。
type CourseSort string

const (
	// SortPopular はカタログの並び順（人気順）のまま返す。
	SortPopular   CourseSort = "popular"
	SortNewest    CourseSort = "newest"
	SortRating    CourseSort = "rating"
	SortPriceLow  CourseSort = "price-low"
	SortPriceHigh CourseSort = "price-high"
)

// FilterAll はコース一覧の各フィルタで「指定なし」を表す値。
const FilterAll = "all"

// CourseCategories はコースのカテゴリ一覧。
var CourseCategories = []string{
	"web-development", "mobile-development", "data-science",
	"design", "marketing", "business",
}

// Levels は有効な難易度の一覧。
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// Course はオンラインコースを表す。
type Course struct {
	ID               int64           `json:"id" yaml:"id"`
	Title            string          `json:"title" yaml:"title"`
	Description      string          `json:"description" yaml:"description"`
	FullDescription  string          `json:"full_description" yaml:"full_description"`
	Category         string          `json:"category" yaml:"category"`
	Level            Level           `json:"level" yaml:"level"`
	Price            float64         `json:"price" yaml:"price"`
	OriginalPrice    *float64        `json:"original_price,omitempty" yaml:"original_price"`
	Rating           float64         `json:"rating" yaml:"rating"`
	ReviewCount      int             `json:"review_count" yaml:"review_count"`
	Students         int             `json:"students" yaml:"students"`
	Duration         string          `json:"duration" yaml:"duration"`
	Lessons          int             `json:"lessons" yaml:"lessons"`
	Image            string          `json:"image" yaml:"image"`
	Bestseller       bool            `json:"bestseller" yaml:"bestseller"`
	Enrolled         bool            `json:"enrolled" yaml:"-"`
	Instructor       Instructor      `json:"instructor" yaml:"instructor"`
	LearningOutcomes []string        `json:"learning_outcomes" yaml:"learning_outcomes"`
	Requirements     []string        `json:"requirements" yaml:"requirements"`
	Modules          []Module        `json:"modules" yaml:"modules"`
	Reviews          []Review        `json:"reviews" yaml:"reviews"`
	RelatedCourses   []RelatedCourse `json:"related_courses" yaml:"related_courses"`
}

// Instructor はコース講師の情報。
type Instructor struct {
	Name     string  `json:"name" yaml:"name"`
	Title    string  `json:"title" yaml:"title"`
	Avatar   string  `json:"avatar" yaml:"avatar"`
	Rating   float64 `json:"rating" yaml:"rating"`
	Students int     `json:"students" yaml:"students"`
	Bio      string  `json:"bio" yaml:"bio"`
}

// Module はコース内の章。
type Module struct {
	Title    string   `json:"title" yaml:"title"`
	Duration string   `json:"duration" yaml:"duration"`
	Lessons  []Lesson `json:"lessons" yaml:"lessons"`
}

// Lesson は章内のレッスン。
type Lesson struct {
	Title    string `json:"title" yaml:"title"`
	Duration string `json:"duration" yaml:"duration"`
	Type     string `json:"type" yaml:"type"`
	Preview  bool   `json:"preview" yaml:"preview"`
}

// Review は受講者レビュー。
type Review struct {
	Name    string  `json:"name" yaml:"name"`
	Avatar  string  `json:"avatar" yaml:"avatar"`
	Rating  float64 `json:"rating" yaml:"rating"`
	Comment string  `json:"comment" yaml:"comment"`
	Date    string  `json:"date" yaml:"date"`
}

// RelatedCourse は関連コースの概要。
type RelatedCourse struct {
	ID         int64   `json:"id" yaml:"id"`
	Title      string  `json:"title" yaml:"title"`
	Instructor string  `json:"instructor" yaml:"instructor"`
	Price      float64 `json:"price" yaml:"price"`
	Image      string  `json:"image" yaml:"image"`
}

// Clone はCourseのディープコピーを返す。
func (c Course) Clone() Course {
	if c.OriginalPrice != nil {
		p := *c.OriginalPrice
		c.OriginalPrice = &p
	}
	c.LearningOutcomes = slices.Clone(c.LearningOutcomes)
	c.Requirements = slices.Clone(c.Requirements)
	c.Reviews = slices.Clone(c.Reviews)
	c.RelatedCourses = slices.Clone(c.RelatedCourses)
	if c.Modules != nil {
		modules := make([]Module, len(c.Modules))
		for i, m := range c.Modules {
			m.Lessons = slices.Clone(m.Lessons)
			modules[i] = m
		}
		c.Modules = modules
	}
	return c
}

// LessonCount はモジュールに含まれるレッスン数の合計を返す。
func (c Course) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// CourseFilter はコース一覧のフィルタ・ソート条件。
// 未知の値は「指定なし」として扱われる。
type CourseFilter struct {
	Category string
	Level    string
	Price    string
	Search   string
	Sort     string
}

// DefaultCourseFilter は初期状態のフィルタを返す。
func DefaultCourseFilter() CourseFilter {
	return CourseFilter{
		Category: FilterAll,
		Level:    FilterAll,
		Price:    FilterAll,
		Sort:     string(SortPopular),
	}
}

// CourseDraft はコース作成フォームの入力内容。
type CourseDraft struct {
	Title            string
	Description      string
	FullDescription  string
	Category         string
	Level            Level
	Price            float64
	OriginalPrice    float64
	Duration         string
	Image            string
	Instructor       Instructor
	LearningOutcomes []string
	Requirements     []string
	Modules          []Module
}
