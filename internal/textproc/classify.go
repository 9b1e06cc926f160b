package textproc

import (
	"regexp"
	"strings"
)

// urgentKeywords screen items for the immediate lane. Matching is
// case-insensitive substring containment on the cleaned text.
var urgentKeywords = []string{
	"JUST IN", "MACRO", "FEDERAL", "POWELL", "TRUMP", "FED'S", "FED", "🔴",
}

// Heuristic patterns for structured economic releases. False negatives fall
// through to the plain-content path; false positives only pick a different
// formatting template.
var (
	// An indicator marker followed closely by a numeric or percentage token,
	// e.g. "ACTUAL: 3.2%" or "FORECAST 210K".
	markerValueExpr = regexp.MustCompile(
		`(?i)\b(?:ACT(?:UAL)?|FORECAST|EST(?:IMATED)?|PREV(?:IOUS)?|REVISED?)\b[:=;]?\s*[-+]?\d+(?:\.\d+)?%?(?:[MBK]|MILLION|BILLION|THOUSAND)?`)

	// A numeric comparison, e.g. "3.2% vs 3.0%".
	versusExpr = regexp.MustCompile(
		`(?i)[-+]?\d+(?:\.\d+)?%?\s+(?:VS\.?|VERSUS)\s+[-+]?\d+(?:\.\d+)?%?`)

	// A parenthetical holding both an indicator marker and a digit,
	// e.g. "(prev 2.9)".
	parentheticalExpr = regexp.MustCompile(
		`(?i)\([^)]*(?:ACT(?:UAL)?|FORECAST|EST|PREV|REVISED?)[^)]*\d[^)]*\)`)

	// A named macro indicator with a numeric token inside a bounded
	// lookahead window.
	indicatorValueExpr = regexp.MustCompile(
		`(?i)\b(?:PMI|ISM|JOLTS|CPI|GDP|NFP|NONFARM|JOBS?|ORDERS?|DURABLE|FACTORY|PRICES?|EMPLOYMENT|NEW\s+ORDERS?)\b.{0,50}?[-+]?\d+(?:\.\d+)?%?`)
)

// IsStructuredMetric reports whether text looks like a structured economic
// data release (actual/forecast/previous figures, numeric comparisons, or a
// named macro indicator paired with a value).
func IsStructuredMetric(text string) bool {
	if text == "" {
		return false
	}
	return markerValueExpr.MatchString(text) ||
		versusExpr.MatchString(text) ||
		parentheticalExpr.MatchString(text) ||
		indicatorValueExpr.MatchString(text)
}

// MatchesKeyword reports whether text contains any urgent-lane keyword.
func MatchesKeyword(text string) bool {
	upper := strings.ToUpper(text)
	for _, keyword := range urgentKeywords {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	return false
}

// IsMacroCommentary reports whether text is macro commentary rather than a
// data release, which selects the short-analysis formatting template.
func IsMacroCommentary(text string) bool {
	return strings.Contains(strings.ToUpper(text), "MACRO")
}
