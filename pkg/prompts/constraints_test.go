package prompts

import "testing"

func TestApplyConstraints(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		rules     []RewriteRule
		forbidden []string
		want      string
	}{
		{
			name:  "rewrite is case-insensitive",
			text:  "A Cheap thrill.",
			rules: []RewriteRule{{Find: "cheap", Replace: "accessible"}},
			want:  "A accessible thrill.",
		},
		{
			name:  "rewrites apply in order",
			text:  "buy now",
			rules: []RewriteRule{{Find: "buy now", Replace: "shop"}, {Find: "shop", Replace: "discover"}},
			want:  "discover",
		},
		{
			name:  "empty replacement deletes",
			text:  "Truly, very unique scent.",
			rules: []RewriteRule{{Find: "very ", Replace: ""}},
			want:  "Truly, unique scent.",
		},
		{
			name:      "forbidden terms are whole words",
			text:      "Magical nights, not magically delivered.",
			forbidden: []string{"magical"},
			want:      "nights, not magically delivered.",
		},
		{
			name:      "multi-word terms and punctuation",
			text:      "Hurry, buy now or don't miss out.",
			forbidden: []string{"buy now", "don't miss out"},
			want:      "Hurry, or.",
		},
		{
			name:      "whitespace tidied",
			text:      "A miracle  serum .",
			forbidden: []string{"miracle"},
			want:      "A serum.",
		},
		{
			name:      "rewrite runs before strip",
			text:      "A miracle oil.",
			rules:     []RewriteRule{{Find: "miracle", Replace: "remarkable"}},
			forbidden: []string{"miracle"},
			want:      "A remarkable oil.",
		},
		{
			name:      "blank rules ignored",
			text:      "unchanged",
			rules:     []RewriteRule{{Find: "  ", Replace: "x"}},
			forbidden: []string{""},
			want:      "unchanged",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyConstraints(tt.text, tt.rules, tt.forbidden); got != tt.want {
				t.Errorf("ApplyConstraints() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainsTerm(t *testing.T) {
	if !ContainsTerm("Notes of Top  Notes here", "top notes") {
		t.Error("expected multi-space match")
	}
	if ContainsTerm("stopnotes", "top notes") {
		t.Error("unexpected match inside a word")
	}
}
