// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentPolicy はメッセージ本文を保存前に検査する。
// 本文は不透明なテキストとして扱い、書き換えは行わない。
// 受け入れられない本文はValidationErrorで拒否する。
package security

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hitoshi/messagely/internal/model"
)

// ContentPolicy はメッセージ本文の検査機能のインターフェースを定義する。
type ContentPolicy interface {
	// Check は本文を受け入れる場合nilを返す。拒否する場合はValidationErrorを返す。
	Check(body string) error
}

// MarkupRejector はHTML要素を含む本文を拒否するContentPolicy。
// 状態を持たないためスレッドセーフ。
type MarkupRejector struct{}

// NewMarkupRejector はMarkupRejectorを生成する。
func NewMarkupRejector() *MarkupRejector {
	return &MarkupRejector{}
}

// Check は本文にHTML要素のタグが含まれる場合にValidationErrorを返す。
func (MarkupRejector) Check(body string) error {
	if ContainsMarkup(body) {
		return model.NewValidationError("body にHTMLマークアップは使用できません")
	}
	return nil
}

// ContainsMarkup は本文に既知のHTML要素の開始・終了タグが含まれるかを返す。
// 閉じていない "<" や未知の要素名はテキストとして扱う。
// エンティティ表記（&lt;b&gt; など）はマークアップとみなさない。
func ContainsMarkup(body string) bool {
	if !strings.Contains(body, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) != 0 {
				return true
			}
		}
	}
}

// compile-time interface check
var _ ContentPolicy = (*MarkupRejector)(nil)
