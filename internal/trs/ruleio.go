package trs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRule reads a score rule configuration from a YAML file and
// validates its invariants. Missing fields fall back to the defaults of
// the published rule.
func LoadRule(path string) (Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rule{}, fmt.Errorf("failed to read rule file: %w", err)
	}

	rule := DefaultRule()
	if err := yaml.Unmarshal(b, &rule); err != nil {
		return Rule{}, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}

	if err := rule.Validate(); err != nil {
		return Rule{}, fmt.Errorf("invalid rule in %s: %w", path, err)
	}
	return rule, nil
}

// SaveRule writes a rule configuration to a YAML file.
func SaveRule(path string, rule Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid rule: %w", err)
	}

	b, err := yaml.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write rule file %s: %w", path, err)
	}
	return nil
}
