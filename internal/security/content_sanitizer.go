// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はブログ記事本文をMarkdownから変換したHTMLをサニタイズし、
// 投稿者が埋め込んだスクリプトなどから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	httpsURL      = regexp.MustCompile(`^https://`)
	languageClass = regexp.MustCompile(`^language-[a-zA-Z0-9_+-]+$`)
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 記事の作成・更新時と初期データの読み込み時に使用される。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 見出し・段落・リスト・引用・コード・強調・リンク・画像のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: h1-h6, p, br, hr, a, ul, ol, li, blockquote, pre, code, strong, em, del, img
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - URLスキーム: http, https, mailto（imgはhttpsのみ）
//   - aタグ: 外部リンクに target="_blank" と rel="noopener noreferrer" を付与
//   - codeタグ: シンタックスハイライト用の language-* クラスのみ許可
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del",
	)
	p.AllowAttrs("class").Matching(languageClass).OnElements("code")

	// 記事内リンクは相対URLも許可する（他の記事へのリンク）
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.RequireNoFollowOnFullyQualifiedLinks(true)

	// 画像はhttpsのみ
	p.AllowAttrs("alt").OnElements("img")
	p.AllowAttrs("src").Matching(httpsURL).OnElements("img")

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
