package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はユーザー入力のテキストからHTMLを除去する。
// カレンダーのタイトル・本文の保存前に使用する。
type TextSanitizerService interface {
	// SanitizeText は全てのタグを除去したプレーンテキストを返す。
	// 前後の空白は取り除く。
	SanitizeText(raw string) string
}

// textSanitizer はbluemondayのStrictPolicyによる実装。
// bluemonday.Policyはゴルーチンセーフ。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses は多重に文字実体化されたマークアップを剥がす回数の上限。
const maxSanitizePasses = 8

// SanitizeText はタグを除去し、StrictPolicyがエスケープした文字実体を元に戻す。
// 実体参照を戻すと"&lt;script&gt;"のような入力がタグとして復元されるため、
// 出力が変化しなくなるまでサニタイズと復元を繰り返す。
// 上限回数で収束しない入力はエスケープされたまま返す。
// 出力はJSONで返すためHTMLエスケープは不要。
func (s *textSanitizer) SanitizeText(raw string) string {
	text := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses; i++ {
		if text == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
		if next == text {
			return text
		}
		text = next
	}
	return strings.TrimSpace(s.policy.Sanitize(text))
}
