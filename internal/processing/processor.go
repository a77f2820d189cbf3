// Package processing holds the text helpers shared by the fetchers and the indexer.
package processing

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {},
	"of": {}, "and": {}, "is": {}, "on": {}, "with": {}, "you": {},
	"this": {}, "that": {}, "are": {}, "its": {}, "from": {}, "how": {},
}

// PlainText drops markup from an RSS description and collapses whitespace.
// Input that is not HTML comes back with only whitespace normalised.
func PlainText(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return squeeze(input)
	}
	return squeeze(doc.Text())
}

func squeeze(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ExtractOutlet returns the outlet name an aggregator appends to a headline,
// as in "Title(ITmedia NEWS)". It returns "" when the title has no trailing group.
func ExtractOutlet(title string) string {
	if !strings.HasSuffix(title, ")") {
		return ""
	}
	open := strings.LastIndex(title, "(")
	if open < 0 {
		return ""
	}
	return title[open+1 : len(title)-1]
}

// ExtractURLs extracts all HTTP(S) URLs from the input text.
func ExtractURLs(input string) []string {
	if input == "" {
		return nil
	}
	matches := urlRegex.FindAllString(input, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var urls []string
	for _, url := range matches {
		if _, ok := seen[url]; !ok {
			seen[url] = struct{}{}
			urls = append(urls, url)
		}
	}
	return urls
}

// RemoveURLs removes all URLs from the input text.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// CleanText strips markup, URLs and punctuation and squeezes whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	text := RemoveURLs(PlainText(input))
	text = punctuation.ReplaceAllString(text, " ")
	return squeeze(text)
}

// cjkMinLen is the shortest kanji or katakana run kept as a keyword.
const cjkMinLen = 2

type script int

const (
	scriptOther script = iota
	scriptHan
	scriptKatakana
	scriptHiragana
)

func scriptOf(r rune) script {
	switch {
	case unicode.Is(unicode.Han, r):
		return scriptHan
	case unicode.Is(unicode.Katakana, r), r == 'ー':
		return scriptKatakana
	case unicode.Is(unicode.Hiragana, r):
		return scriptHiragana
	default:
		return scriptOther
	}
}

// wordRuns splits a whitespace token where the script changes, so Japanese
// text without spaces yields its kanji and katakana words. Hiragana runs are
// mostly particles and inflections and are dropped.
func wordRuns(token string) []string {
	var (
		runs  []string
		start = -1
		cur   script
	)
	flush := func(end int) {
		if start >= 0 && cur != scriptHiragana {
			runs = append(runs, token[start:end])
		}
		start = -1
	}
	for i, r := range token {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			flush(i)
			continue
		}
		sc := scriptOf(r)
		if start >= 0 && sc != cur {
			flush(i)
		}
		if start < 0 {
			start, cur = i, sc
		}
	}
	flush(len(token))
	return runs
}

// ExtractKeywords returns the most frequent words that are not stop-words.
// Words are split on whitespace and on script boundaries; minLen applies to
// alphabetic words, cjkMinLen to kanji and katakana.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(CleanText(text))
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, field := range strings.Fields(clean) {
		for _, token := range wordRuns(field) {
			need := minLen
			if sc := scriptOf([]rune(token)[0]); sc == scriptHan || sc == scriptKatakana {
				need = cjkMinLen
			}
			if len([]rune(token)) < need {
				continue
			}
			if _, skip := stopwords[token]; skip {
				continue
			}
			freq[token]++
		}
	}

	if len(freq) == 0 {
		return nil
	}

	type kv struct {
		word  string
		count int
	}

	pairs := make([]kv, 0, len(freq))
	for word, count := range freq {
		pairs = append(pairs, kv{word: word, count: count})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].count > pairs[j].count
	})

	max := limit
	if max <= 0 || max > len(pairs) {
		max = len(pairs)
	}

	keywords := make([]string, 0, max)
	for i := 0; i < max; i++ {
		keywords = append(keywords, pairs[i].word)
	}

	return keywords
}
