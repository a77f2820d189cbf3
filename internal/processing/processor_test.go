package processing_test

import (
	"testing"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/processing"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "blank", input: "  \n ", want: ""},
		{name: "plain", input: "just   text", want: "just text"},
		{name: "markup", input: "<p>Go <b>1.26</b></p>\n<p>released</p>", want: "Go 1.26 released"},
		{name: "entities", input: "a &amp; b &lt;c&gt;", want: "a & b <c>"},
		{name: "japanese", input: "<img src=\"x.png\"><p>新機能が追加</p>", want: "新機能が追加"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.PlainText(tt.input))
		})
	}
}

func TestExtractOutlet(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "outlet", title: "AIが面接を代行(ITmedia NEWS)", want: "ITmedia NEWS"},
		{name: "last group wins", title: "新製品(仮)を発表(窓の杜)", want: "窓の杜"},
		{name: "no suffix", title: "見出しだけ", want: ""},
		{name: "paren not at end", title: "(速報) 地震", want: ""},
		{name: "close without open", title: "smile :)", want: ""},
		{name: "empty group", title: "title()", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.ExtractOutlet(tt.title))
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "punctuation", input: "Hello!!!   world", want: "Hello world"},
		{name: "collapse whitespace", input: "foo\n\nbar\t baz", want: "foo bar baz"},
		{name: "remove urls", input: "Check https://example.com for info", want: "Check for info"},
		{name: "markup", input: "<b>Rust</b> vs <i>Go</i>", want: "Rust vs Go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.CleanText(tt.input))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "rust rust golang golang golang kafka the the and"
	got := processing.ExtractKeywords(text, 3, 3)
	require.Equal(t, []string{"golang", "rust", "kafka"}, got)

	require.Nil(t, processing.ExtractKeywords("", 5, 3))
}

func TestExtractKeywordsJapanese(t *testing.T) {
	text := "生成AIの活用事例とRustの採用事例。生成AIが話題"
	got := processing.ExtractKeywords(text, 3, 3)
	require.Equal(t, []string{"生成", "rust", "採用事例"}, got)

	got = processing.ExtractKeywords("クラウドの移行でサーバーを減らした。サーバーの費用", 2, 4)
	require.Equal(t, []string{"サーバー", "クラウド"}, got)
}

func TestExtractKeywordsIgnoresURLWords(t *testing.T) {
	text := "release golang golang https://example.com/tour-deals kafka"
	got := processing.ExtractKeywords(text, 3, 3)
	require.ElementsMatch(t, []string{"golang", "release", "kafka"}, got)
}

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "no urls", input: "Hello world", want: nil},
		{name: "single url", input: "Check https://example.com for more", want: []string{"https://example.com"}},
		{name: "multiple urls", input: "Go to https://example.com or http://test.org now", want: []string{"https://example.com", "http://test.org"}},
		{name: "duplicate urls", input: "https://example.com and https://example.com again", want: []string{"https://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.ExtractURLs(tt.input))
		})
	}
}
