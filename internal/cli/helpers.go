package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/example/snipscan/internal/config"
	"github.com/example/snipscan/internal/detector"
	"github.com/example/snipscan/internal/logging"
	"go.uber.org/zap"
)

// ErrFindingsOverThreshold is returned by scan when findings reach the fail-on severity.
var ErrFindingsOverThreshold = errors.New("findings at or above fail-on severity")

func ensureOutputDir(path string) error {
	if path == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	return os.MkdirAll(path, 0o755)
}

// buildRules selects built-in rules and appends custom rules from rule files,
// in that order.
func buildRules(cfg config.RuntimeConfig, log *zap.SugaredLogger) ([]detector.Rule, error) {
	log = logging.OrNop(log)
	registry := detector.DefaultRegistry()
	rules, err := registry.Select(cfg.Rules)
	if err != nil {
		return nil, err
	}

	for _, path := range cfg.RuleFiles {
		custom, err := detector.LoadRuleFile(path)
		if err != nil {
			return nil, err
		}
		log.Debugw("loaded rule file", "path", path, "rules", len(custom))
		rules = append(rules, custom...)
	}
	return rules, nil
}

func compileRules(cfg config.RuntimeConfig, log *zap.SugaredLogger) (*detector.RuleSet, error) {
	rules, err := buildRules(cfg, log)
	if err != nil {
		return nil, err
	}
	return detector.Compile(rules)
}

// failThreshold maps the fail-on setting to a severity. ok is false for "none".
func failThreshold(value string) (sev detector.Severity, ok bool, err error) {
	if strings.EqualFold(strings.TrimSpace(value), config.FailOnNone) {
		return "", false, nil
	}
	sev, err = detector.ParseSeverity(value)
	if err != nil {
		return "", false, err
	}
	return sev, true, nil
}
