package textproc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	urlExpr      = regexp.MustCompile(`(?i)https?://\S+|www\.\S+`)
	currencyExpr = regexp.MustCompile(`[$€£¥]`)
	ellipsisExpr = regexp.MustCompile(`(\.{3,}|…+)$`)
	markupExpr   = regexp.MustCompile(`<[A-Za-z/][^>]*>`)
	// Keeps word characters, whitespace, and the Arabic letter block; anything
	// else is noise for the meaningfulness check.
	noiseExpr  = regexp.MustCompile(`[^\w\s\x{0600}-\x{06FF}]`)
	spacesExpr = regexp.MustCompile(`\s+`)
)

// Clean strips URLs, currency signs, and trailing ellipsis runs from source
// text. Items forwarded from web pages can carry HTML markup; that is reduced
// to its text content first. Total: never fails, empty in means empty out.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	if markupExpr.MatchString(text) {
		text = stripMarkup(text)
	}
	text = urlExpr.ReplaceAllString(text, "")
	text = currencyExpr.ReplaceAllString(text, "")
	text = ellipsisExpr.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// IsMeaningful reports whether text carries real content rather than just
// links, symbols, or whitespace. After stripping URLs and noise characters
// the remainder must be at least 10 runes long and hold at least two tokens.
func IsMeaningful(text string) bool {
	if text == "" {
		return false
	}
	cleaned := urlExpr.ReplaceAllString(text, "")
	cleaned = noiseExpr.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(spacesExpr.ReplaceAllString(cleaned, " "))
	return utf8.RuneCountInString(cleaned) >= 10 && len(strings.Fields(cleaned)) >= 2
}

func stripMarkup(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}
	return doc.Text()
}
