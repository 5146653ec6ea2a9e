package prompts

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RewriteRule replaces every case-insensitive occurrence of Find with Replace.
// An empty Replace deletes the phrase.
type RewriteRule struct {
	Find    string `json:"find"`
	Replace string `json:"replace"`
}

var (
	horizontalSpace  = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunct = regexp.MustCompile(`[ \t]+([,.;:!?])`)
	trailingSpace    = regexp.MustCompile(`(?m)[ \t]+$`)
	leadingSpace     = regexp.MustCompile(`(?m)^([-*]|\d+\.) {2,}`)
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	repeatedPunct    = regexp.MustCompile(`([,;:])(\s*[,;:])+`)
)

// ApplyConstraints applies rewrite rules in order, then strips forbidden terms
// as whole words, then tidies the whitespace left behind.
func ApplyConstraints(text string, rules []RewriteRule, forbidden []string) string {
	for _, r := range rules {
		find := strings.TrimSpace(r.Find)
		if find == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(find))
		text = re.ReplaceAllLiteralString(text, r.Replace)
	}
	for _, term := range forbidden {
		if re := wholeWord(term); re != nil {
			text = re.ReplaceAllLiteralString(text, "")
		}
	}
	return tidy(text)
}

// ContainsTerm reports whether text contains term as a whole word, ignoring case.
func ContainsTerm(text, term string) bool {
	re := wholeWord(term)
	return re != nil && re.MatchString(text)
}

// wholeWord compiles a case-insensitive matcher for term. Word boundaries are
// only asserted on ends that are word characters.
func wholeWord(term string) *regexp.Regexp {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	pattern := regexp.QuoteMeta(term)
	// Internal runs of whitespace match any whitespace.
	pattern = strings.Join(strings.Fields(pattern), `\s+`)
	first, _ := utf8.DecodeRuneInString(term)
	last, _ := utf8.DecodeLastRuneInString(term)
	if isWordRune(first) {
		pattern = `\b` + pattern
	}
	if isWordRune(last) {
		pattern += `\b`
	}
	return regexp.MustCompile(`(?i)` + pattern)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func tidy(text string) string {
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = repeatedPunct.ReplaceAllString(text, "$1")
	text = leadingSpace.ReplaceAllString(text, "$1 ")
	text = trailingSpace.ReplaceAllString(text, "")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
