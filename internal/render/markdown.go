// Package render はブログ記事本文のMarkdownをHTMLに変換する。
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hitoshi/bloghub/internal/security"
)

// wordsPerMinute は読了時間の見積もりに使う1分あたりの語数。
const wordsPerMinute = 200

// Renderer はMarkdownをサニタイズ済みHTMLに変換する。
type Renderer struct {
	md        goldmark.Markdown
	sanitizer security.ContentSanitizerService
}

// NewRenderer はRendererを生成する。
// GFM拡張（表・打ち消し線・タスクリスト・自動リンク）を有効にする。
func NewRenderer(sanitizer security.ContentSanitizerService) *Renderer {
	return &Renderer{
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitizer: sanitizer,
	}
}

// Render はMarkdownをHTMLに変換し、サニタイズして返す。
// 生のHTMLはgoldmarkの既定動作で出力されない。
func (r *Renderer) Render(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return r.sanitizer.Sanitize(buf.String()), nil
}

// EstimateReadTime は本文の語数から読了時間（分）を見積もる。最低1分。
func EstimateReadTime(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return max(minutes, 1)
}
