package detector

import (
	"errors"
	"fmt"
)

// ErrConfig is matched by every *ConfigError via errors.Is.
var ErrConfig = errors.New("invalid rule configuration")

// ConfigError reports an unusable rule set. Callers should treat it as fatal.
type ConfigError struct {
	RuleID string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("rule config: %s", e.Reason)
	}
	return fmt.Sprintf("rule config: %s: %s", e.RuleID, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErrorf(ruleID, format string, args ...interface{}) error {
	return &ConfigError{RuleID: ruleID, Reason: fmt.Sprintf(format, args...)}
}
