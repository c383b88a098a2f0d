package detector

// Built-in rule ids.
const (
	RuleUnsafeDeserialize = "unsafe-deserialize"
	RuleUnboundedCopy     = "unbounded-strcpy"
	RuleDynamicInclude    = "dynamic-include"
	RuleEvalInjection     = "eval-injection"
	RuleSQLConcat         = "sql-string-concat"
)

// BuiltinRules returns the rules shipped with the scanner, in registration order.
func BuiltinRules() []Rule {
	return []Rule{
		UnsafeDeserializeRule(),
		{
			ID:          RuleUnboundedCopy,
			Description: "Copy into a fixed-size buffer without a length bound.",
			Severity:    SeverityHigh,
			Message:     "{{.Token}} does not bound the copy; a long input overflows the destination buffer. Use a length-checked variant.",
			Patterns:    []string{`\b(strcpy|strcat|gets|sprintf|wcscpy)\s*\(`},
			Extensions:  []string{".c", ".h", ".cc", ".cpp", ".cxx", ".hpp"},
		},
		{
			ID:          RuleDynamicInclude,
			Description: "File inclusion driven by a variable (local/remote file inclusion).",
			Severity:    SeverityHigh,
			Message:     "{{.Token}} loads a path taken from a variable; check it against a fixed list of templates first.",
			Patterns:    []string{`\b(include_once|include|require_once|require)\s*\(?\s*\$`},
			Guards:      []string{`\bin_array\s*\(`, `\bbasename\s*\(`},
			Lookback:    3,
			Extensions:  []string{".php", ".phtml"},
		},
		{
			ID:          RuleEvalInjection,
			Description: "Dynamic code evaluation of a runtime string.",
			Severity:    SeverityMedium,
			Message:     "{{.Token}} executes a runtime string as code; user input reaching it is code injection.",
			Patterns:    []string{`\b(eval)\s*\(`, `\b(new\s+Function)\s*\(`},
			Extensions:  []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx", ".py", ".php", ".rb"},
		},
		{
			ID:          RuleSQLConcat,
			Description: "SQL statement assembled by string concatenation or interpolation.",
			Severity:    SeverityMedium,
			Message:     "{{.Token}} statement is built from concatenated strings; use bound parameters instead.",
			Patterns: []string{
				`(?i)"(select|insert\s+into|update|delete\s+from)\b[^"]*"\s*(?:\+|\.)`,
				`(?i)'(select|insert\s+into|update|delete\s+from)\b[^']*'\s*(?:\+|\.)`,
				`(?i)\.execute\s*\(\s*f["'](select|insert\s+into|update|delete\s+from)\b`,
			},
			Extensions: []string{".py", ".java", ".php", ".js", ".ts", ".go", ".cs", ".rb"},
		},
	}
}

// UnsafeDeserializeRule flags object-graph deserialization of untrusted bytes
// when no type allow-list is visible on the same or the preceding five lines.
func UnsafeDeserializeRule() Rule {
	return Rule{
		ID:          RuleUnsafeDeserialize,
		Description: "Deserialization of untrusted bytes into arbitrary types without a class allow-list.",
		Severity:    SeverityHigh,
		Message:     "Unchecked deserialization via {{.Token}}: attacker-controlled bytes can instantiate arbitrary types. Restrict accepted classes with an allow-list filter.",
		Patterns: []string{
			`\.(readObject|readUnshared)\s*\(`,
			`\b(?:c?[Pp]ickle|dill|marshal|shelve)\.(loads?)\s*\(`,
			`\byaml\.((?:unsafe_)?load)\s*\(`,
			`\b(unserialize)\s*\(`,
			`\bMarshal\.(load)\s*\(`,
			`\.(fromXML)\s*\(`,
		},
		Guards: []string{
			`(?i)objectinputfilter|validatingobjectinputstream|resolveclass`,
			`(?i)allow_?list|white_?list|allowed_?classes|allow_?types`,
			`(?i)safe_?loader|safe_load`,
		},
		Lookback: DefaultLookback,
	}
}
