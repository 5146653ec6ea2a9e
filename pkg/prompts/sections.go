package prompts

import "strings"

// Section is one titled block of a composed prompt.
type Section struct {
	Title string
	Body  string
	// Verbatim sections are left untouched by rewrite rules and forbidden-term stripping.
	Verbatim bool
}

// Render returns the section as markdown. An empty body renders nothing.
func (s Section) Render() string {
	body := strings.TrimSpace(s.Body)
	if body == "" {
		return ""
	}
	if s.Title == "" {
		return body
	}
	return "## " + s.Title + "\n" + body
}

// Join renders sections in order, separated by blank lines.
func Join(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if r := s.Render(); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, "\n\n")
}

// bulletList renders one "- item" line per non-blank item.
func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

// lines joins non-blank lines.
func lines(values ...string) string {
	return strings.Join(compact(values), "\n")
}

// labeled renders "Label: a, b" or "" when items is empty.
func labeled(label string, items []string) string {
	items = compact(items)
	if len(items) == 0 {
		return ""
	}
	return label + ": " + strings.Join(items, ", ")
}

// labeledBlock renders a label followed by a bullet list, or "" when items is empty.
func labeledBlock(label string, items []string) string {
	list := bulletList(items)
	if list == "" {
		return ""
	}
	return label + ":\n" + list
}
