package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed global_rules.yaml
var defaultGlobalRules []byte

// GlobalRules are the brand-independent persona and quality rules.
type GlobalRules struct {
	System     string   `yaml:"system"`
	CopyRules  []string `yaml:"copy_rules"`
	ImageRules []string `yaml:"image_rules"`
	Forbidden  []string `yaml:"forbidden"`
}

// DefaultGlobalRules returns the embedded rules.
func DefaultGlobalRules() *GlobalRules {
	rules, err := ParseGlobalRules(defaultGlobalRules)
	if err != nil {
		panic(fmt.Sprintf("embedded global rules are invalid: %v", err))
	}
	return rules
}

// LoadGlobalRules reads rules from path, or returns the embedded rules when path is empty.
func LoadGlobalRules(path string) (*GlobalRules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultGlobalRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read global rules %s: %w", path, err)
	}
	rules, err := ParseGlobalRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse global rules %s: %w", path, err)
	}
	return rules, nil
}

// ParseGlobalRules decodes YAML rules. Blank entries are dropped.
func ParseGlobalRules(data []byte) (*GlobalRules, error) {
	var rules GlobalRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	rules.System = strings.TrimSpace(rules.System)
	rules.CopyRules = compact(rules.CopyRules)
	rules.ImageRules = compact(rules.ImageRules)
	rules.Forbidden = compact(rules.Forbidden)
	return &rules, nil
}

// compact trims entries and drops blanks.
func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
