package prompts

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RefinementKind is the family a refinement instruction belongs to.
type RefinementKind string

const (
	RefineTone   RefinementKind = "tone"
	RefineAdd    RefinementKind = "add"
	RefineRemove RefinementKind = "remove"
	RefineOther  RefinementKind = "other"
)

// Refinement families, checked in this order.
var (
	TonePattern   = regexp.MustCompile(`(?i)\b(darker|lighter|brighter|cooler|warmer)\b`)
	AddPattern    = regexp.MustCompile(`(?i)\b(add|include|with)\b`)
	RemovePattern = regexp.MustCompile(`(?i)\b(remove|without|exclude)\b`)

	// trailingClause matches the part of a prompt a removal replaces.
	trailingClause = regexp.MustCompile(`(?i)[\s,;.]*\b(with|featuring|showing)\b.*$|[\s,;.]*\b(adjust|refinement):.*$`)
)

// ClassifyRefinement returns the family of a refinement instruction.
func ClassifyRefinement(instruction string) RefinementKind {
	switch {
	case TonePattern.MatchString(instruction):
		return RefineTone
	case AddPattern.MatchString(instruction):
		return RefineAdd
	case RemovePattern.MatchString(instruction):
		return RefineRemove
	default:
		return RefineOther
	}
}

// Refine folds a refinement instruction into the prompt that produced the
// parent generation. Applying the same instruction twice changes nothing.
func Refine(original, instruction string) string {
	original = strings.TrimSpace(original)
	sentence := asSentence(instruction)
	if sentence == "" {
		return original
	}

	kind := ClassifyRefinement(instruction)
	var suffix string
	switch kind {
	case RefineTone:
		suffix = "Adjust: " + sentence
	case RefineOther:
		suffix = "Refinement: " + sentence
	default:
		suffix = sentence
	}
	if original == suffix || strings.HasSuffix(original, " "+suffix) {
		return original
	}

	base := original
	if kind == RefineRemove {
		base = trailingClause.ReplaceAllString(base, "")
	}
	base = strings.TrimRight(strings.TrimSpace(base), ".")
	if base == "" {
		return suffix
	}
	if strings.HasSuffix(base, "!") || strings.HasSuffix(base, "?") {
		return base + " " + suffix
	}
	return base + ". " + suffix
}

// asSentence trims s, upper-cases its first letter and ends it with a full stop.
func asSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]
	if !strings.ContainsAny(s[len(s)-1:], ".!?") {
		s += "."
	}
	return s
}
