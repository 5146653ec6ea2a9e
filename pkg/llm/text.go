package llm

import (
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> tags that may appear at the start of model responses.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// fencePattern matches a response wrapped entirely in a markdown code fence.
var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")

// CleanCopy strips reasoning tags, a wrapping code fence and wrapping quotes
// from generated copy.
func CleanCopy(response string) string {
	cleaned := strings.TrimSpace(thinkTagPattern.ReplaceAllString(response, ""))
	if m := fencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}
	if len(cleaned) >= 2 && cleaned[0] == '"' && cleaned[len(cleaned)-1] == '"' &&
		!strings.Contains(cleaned[1:len(cleaned)-1], `"`) {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	return strings.TrimSpace(cleaned)
}
