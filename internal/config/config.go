package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/example/snipscan/internal/report"
	"github.com/example/snipscan/internal/source"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "snipscan.config.yml"

	// MaxWorkers bounds the number of files scanned in parallel.
	MaxWorkers = 64

	DefaultMaxFileSize = source.DefaultMaxFileSize

	FailOnNone = "none"

	envTargets     = "SNIPSCAN_TARGETS"
	envTargetsFile = "SNIPSCAN_TARGETS_FILE"
	envRules       = "SNIPSCAN_RULES"
	envRuleFiles   = "SNIPSCAN_RULE_FILES"
	envWorkers     = "SNIPSCAN_WORKERS"
	envOutputDir   = "SNIPSCAN_OUTPUT_DIR"
	envFormats     = "SNIPSCAN_FORMATS"
	envMaxFileSize = "SNIPSCAN_MAX_FILE_SIZE"
	envFailOn      = "SNIPSCAN_FAIL_ON"
	envDryRun      = "SNIPSCAN_DRY_RUN"
	envSummaryFile = "SNIPSCAN_SUMMARY_FILE"
	envExclude     = "SNIPSCAN_EXCLUDE"
	envStdinName   = "SNIPSCAN_STDIN_NAME"
)

// KnownFormats are the artifact formats a scan can write.
var KnownFormats = report.Formats

var failOnValues = []string{FailOnNone, "low", "medium", "high"}

var validate = newValidator()

// newValidator registers the tags used on RuntimeConfig. Their allowed values
// come from MaxWorkers, KnownFormats and failOnValues.
func newValidator() *validator.Validate {
	v := validator.New()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("workers", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= 1 && n <= MaxWorkers
	}))
	must(v.RegisterValidation("format", func(fl validator.FieldLevel) bool {
		return slices.Contains(KnownFormats, fl.Field().String())
	}))
	must(v.RegisterValidation("failon", func(fl validator.FieldLevel) bool {
		return slices.Contains(failOnValues, fl.Field().String())
	}))
	return v
}

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
}

// RuntimeConfig contains the fully merged settings required by scanner sub-commands.
type RuntimeConfig struct {
	Targets     []string `validate:"min=1"`
	Rules       []string
	RuleFiles   []string
	Workers     int      `validate:"workers"`
	OutputDir   string   `validate:"required"`
	Formats     []string `validate:"min=1,dive,format"`
	MaxFileSize int64    `validate:"gt=0"`
	FailOn      string   `validate:"failon"`
	DryRun      bool
	SummaryFile string
	Exclude     []string
	// StdinName is the file name used to pick extension-scoped rules for "-".
	StdinName string
}

// Overrides captures values coming from env vars or CLI flags.
type Overrides struct {
	Targets        []string
	TargetsFile    string
	Rules          []string
	RuleFiles      []string
	Workers        int
	WorkersSet     bool
	OutputDir      string
	Formats        []string
	MaxFileSize    int64
	MaxFileSizeSet bool
	FailOn         string
	DryRun         *bool
	SummaryFile    string
	Exclude        []string
	StdinName      string
}

// DefaultRuntimeConfig returns the baseline configuration when no overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Workers:     8,
		OutputDir:   "scan-results",
		Formats:     []string{"ndjson"},
		MaxFileSize: DefaultMaxFileSize,
		FailOn:      "high",
		Exclude:     append([]string(nil), source.DefaultExcludedDirs...),
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		if err := cfg.apply(fileOv); err != nil {
			return cfg, err
		}
	}

	if err := cfg.apply(overridesFromEnv()); err != nil {
		return cfg, err
	}

	if err := cfg.apply(override); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate ensures the config contains the minimum required data for a scan.
func (c RuntimeConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	// Element errors from dive are reported as Field[i].
	field, _, _ := strings.Cut(fe.StructField(), "[")
	switch field {
	case "Targets":
		return errors.New("no targets configured; pass paths as arguments, use --targets-file, or set SNIPSCAN_TARGETS")
	case "Workers":
		return fmt.Errorf("workers must be between 1 and %d (got %d)", MaxWorkers, c.Workers)
	case "OutputDir":
		return errors.New("output directory cannot be empty")
	case "Formats":
		if fe.Tag() == "min" {
			return errors.New("at least one output format must be specified")
		}
		return fmt.Errorf("unsupported format %v (want one of %s)", fe.Value(), strings.Join(KnownFormats, ", "))
	case "MaxFileSize":
		return fmt.Errorf("max file size must be positive (got %d)", c.MaxFileSize)
	case "FailOn":
		return fmt.Errorf("fail-on must be one of %s (got %q)", strings.Join(failOnValues, ", "), c.FailOn)
	default:
		return fmt.Errorf("invalid %s: failed %q check", fe.Field(), fe.Tag())
	}
}

func (c *RuntimeConfig) apply(src Overrides) error {
	if len(src.Targets) > 0 {
		c.Targets = cleanList(src.Targets)
	}

	if src.TargetsFile != "" {
		values, err := readTargetsFile(src.TargetsFile)
		if err != nil {
			return err
		}
		c.Targets = values
	}

	if len(src.Rules) > 0 {
		c.Rules = cleanList(src.Rules)
	}

	if len(src.RuleFiles) > 0 {
		c.RuleFiles = cleanList(src.RuleFiles)
	}

	if src.WorkersSet {
		c.Workers = src.Workers
	}

	if src.OutputDir != "" {
		c.OutputDir = src.OutputDir
	}

	if len(src.Formats) > 0 {
		c.Formats = lowerList(src.Formats)
	}

	if src.MaxFileSizeSet {
		c.MaxFileSize = src.MaxFileSize
	}

	if src.FailOn != "" {
		c.FailOn = strings.ToLower(strings.TrimSpace(src.FailOn))
	}

	if src.DryRun != nil {
		c.DryRun = *src.DryRun
	}

	if src.SummaryFile != "" {
		c.SummaryFile = src.SummaryFile
	}

	if len(src.Exclude) > 0 {
		c.Exclude = cleanList(src.Exclude)
	}

	if src.StdinName != "" {
		c.StdinName = strings.TrimSpace(src.StdinName)
	}

	return nil
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		Targets     stringList `yaml:"targets"`
		TargetsFile string     `yaml:"targetsFile"`
		Rules       stringList `yaml:"rules"`
		RuleFiles   stringList `yaml:"ruleFiles"`
		Workers     *int       `yaml:"workers"`
		OutputDir   string     `yaml:"outputDir"`
		Formats     stringList `yaml:"formats"`
		MaxFileSize *int64     `yaml:"maxFileSize"`
		FailOn      string     `yaml:"failOn"`
		DryRun      *bool      `yaml:"dryRun"`
		SummaryFile string     `yaml:"summaryFile"`
		Exclude     stringList `yaml:"exclude"`
		StdinName   string     `yaml:"stdinName"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	over := Overrides{
		Targets:     raw.Targets,
		TargetsFile: raw.TargetsFile,
		Rules:       raw.Rules,
		RuleFiles:   raw.RuleFiles,
		OutputDir:   raw.OutputDir,
		Formats:     raw.Formats,
		FailOn:      raw.FailOn,
		SummaryFile: raw.SummaryFile,
		Exclude:     raw.Exclude,
		StdinName:   raw.StdinName,
		DryRun:      raw.DryRun,
	}

	if raw.Workers != nil {
		over.Workers = *raw.Workers
		over.WorkersSet = true
	}

	if raw.MaxFileSize != nil {
		over.MaxFileSize = *raw.MaxFileSize
		over.MaxFileSizeSet = true
	}

	return over, nil
}

func overridesFromEnv() Overrides {
	ov := Overrides{}

	if value := os.Getenv(envTargets); value != "" {
		ov.Targets = ParseList(value)
	}

	if value := os.Getenv(envTargetsFile); value != "" {
		ov.TargetsFile = value
	}

	if value := os.Getenv(envRules); value != "" {
		ov.Rules = ParseList(value)
	}

	if value := os.Getenv(envRuleFiles); value != "" {
		ov.RuleFiles = ParseList(value)
	}

	if value := os.Getenv(envWorkers); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Workers = parsed
			ov.WorkersSet = true
		}
	}

	if value := os.Getenv(envOutputDir); value != "" {
		ov.OutputDir = value
	}

	if value := os.Getenv(envFormats); value != "" {
		ov.Formats = ParseFormats(value)
	}

	if value := os.Getenv(envMaxFileSize); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			ov.MaxFileSize = parsed
			ov.MaxFileSizeSet = true
		}
	}

	if value := os.Getenv(envFailOn); value != "" {
		ov.FailOn = value
	}

	if value := os.Getenv(envDryRun); value != "" {
		parsed := strings.EqualFold(value, "true") || value == "1"
		ov.DryRun = &parsed
	}

	if value := os.Getenv(envSummaryFile); value != "" {
		ov.SummaryFile = value
	}

	if value := os.Getenv(envExclude); value != "" {
		ov.Exclude = ParseList(value)
	}

	if value := os.Getenv(envStdinName); value != "" {
		ov.StdinName = value
	}

	return ov
}

// ParseList turns comma or newline separated input into individual entries.
func ParseList(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r'})
}

// ParseFormats splits comma separated format strings.
func ParseFormats(input string) []string {
	return lowerList(splitOnDelimiters(input, []rune{',', '\n', '\r', ' '}))
}

func splitOnDelimiters(input string, delims []rune) []string {
	if input == "" {
		return nil
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	separator := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}
		return false
	}

	parts := strings.FieldsFunc(trimmed, separator)
	return cleanList(parts)
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func lowerList(values []string) []string {
	out := cleanList(values)
	for i, v := range out {
		out[i] = strings.ToLower(v)
	}
	return out
}

func readTargetsFile(path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var targets []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return targets, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// stringList enables YAML fields that can be specified as a scalar or sequence.
type stringList []string

func (t *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*t = cleanList(out)
	case yaml.ScalarNode:
		*t = ParseList(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for list")
	}
	return nil
}

// Starter returns a commented starter config file body.
func Starter() string {
	def := DefaultRuntimeConfig()
	return fmt.Sprintf(`# snipscan configuration. CLI flags and SNIPSCAN_* variables override these values.
targets:
  - .
# rules: [unsafe-deserialize, unbounded-strcpy]
# ruleFiles: [rules/custom.yml]
workers: %d
outputDir: %s
formats: [%s]
maxFileSize: %d
failOn: %s
exclude: [%s]
`, def.Workers, def.OutputDir, strings.Join(def.Formats, ", "), def.MaxFileSize, def.FailOn, strings.Join(def.Exclude, ", "))
}
