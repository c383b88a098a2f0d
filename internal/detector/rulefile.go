package detector

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk layout of a custom rule file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRuleFile reads custom rules from a YAML file. Every rule is compiled
// once so that a broken file fails here rather than at scan time.
func LoadRuleFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes a YAML rule document.
func ParseRules(data []byte) ([]Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc ruleFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ConfigError{Reason: "rule file contains no rules"}
		}
		return nil, &ConfigError{Reason: err.Error()}
	}
	if len(doc.Rules) == 0 {
		return nil, &ConfigError{Reason: "rule file contains no rules"}
	}

	if _, err := Compile(doc.Rules); err != nil {
		return nil, err
	}
	return doc.Rules, nil
}
