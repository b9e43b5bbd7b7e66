// Package fixture は埋め込みYAMLから初期データ（デモアカウント、記事、コース）を読み込む。
package fixture

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/bloghub/internal/model"
)

//go:embed data/*.yaml
var dataFS embed.FS

// ファイル名
const (
	accountsFile = "accounts.yaml"
	postsFile    = "posts.yaml"
	coursesFile  = "courses.yaml"
)

// Account はデモ用アカウント。パスワードは平文で保持する。
type Account struct {
	ID       string     `yaml:"id"`
	Email    string     `yaml:"email"`
	Password string     `yaml:"password"`
	Name     string     `yaml:"name"`
	Avatar   string     `yaml:"avatar"`
	Role     model.Role `yaml:"role"`
}

// Identity はアカウントからログイン後のIdentityを生成する。
func (a Account) Identity(now time.Time) *model.Identity {
	return &model.Identity{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Avatar:    a.Avatar,
		Role:      a.Role,
		CreatedAt: now,
		Profile:   model.Profile{},
	}
}

// Set は読み込んだ初期データ一式。
type Set struct {
	Accounts []Account
	Posts    []model.Post
	Courses  []model.Course
}

// postRecord はposts.yamlの1レコード。
type postRecord struct {
	ID           int64    `yaml:"id"`
	Title        string   `yaml:"title"`
	Content      string   `yaml:"content"`
	Excerpt      string   `yaml:"excerpt"`
	Author       string   `yaml:"author"`
	AuthorAvatar string   `yaml:"author_avatar"`
	PublishedAt  string   `yaml:"published_at"`
	Category     string   `yaml:"category"`
	Tags         []string `yaml:"tags"`
	Image        string   `yaml:"image"`
	ReadTime     int      `yaml:"read_time"`
	Views        int      `yaml:"views"`
	Likes        int      `yaml:"likes"`
	Comments     int      `yaml:"comments"`
	Shares       int      `yaml:"shares"`
}

func (r postRecord) toPost() (model.Post, error) {
	published, err := time.Parse(time.DateOnly, r.PublishedAt)
	if err != nil {
		return model.Post{}, fmt.Errorf("post %d: invalid published_at %q: %w", r.ID, r.PublishedAt, err)
	}
	return model.Post{
		ID:           r.ID,
		Title:        r.Title,
		Content:      strings.TrimSpace(r.Content),
		Excerpt:      r.Excerpt,
		Author:       r.Author,
		AuthorAvatar: r.AuthorAvatar,
		Category:     r.Category,
		Tags:         r.Tags,
		Image:        r.Image,
		ReadTime:     r.ReadTime,
		PublishedAt:  published,
		Views:        r.Views,
		Likes:        r.Likes,
		Comments:     r.Comments,
		Shares:       r.Shares,
	}, nil
}

// Load は埋め込みの初期データを読み込む。
func Load() (*Set, error) {
	sub, err := fs.Sub(dataFS, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded fixtures: %w", err)
	}
	return LoadFS(sub)
}

// LoadFS はfsysの直下にある accounts.yaml, posts.yaml, courses.yaml を読み込む。
// IDの重複はエラーとする。
func LoadFS(fsys fs.FS) (*Set, error) {
	var accounts []Account
	if err := decode(fsys, accountsFile, &accounts); err != nil {
		return nil, err
	}

	var records []postRecord
	if err := decode(fsys, postsFile, &records); err != nil {
		return nil, err
	}
	posts := make([]model.Post, 0, len(records))
	seenPosts := make(map[int64]struct{}, len(records))
	for _, r := range records {
		if _, dup := seenPosts[r.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate post id %d", postsFile, r.ID)
		}
		seenPosts[r.ID] = struct{}{}
		p, err := r.toPost()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", postsFile, err)
		}
		posts = append(posts, p)
	}

	var courses []model.Course
	if err := decode(fsys, coursesFile, &courses); err != nil {
		return nil, err
	}
	seenCourses := make(map[int64]struct{}, len(courses))
	for _, c := range courses {
		if _, dup := seenCourses[c.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate course id %d", coursesFile, c.ID)
		}
		seenCourses[c.ID] = struct{}{}
	}

	return &Set{Accounts: accounts, Posts: posts, Courses: courses}, nil
}

func decode(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
