// Package extract turns free-form message text into named field sets. Each
// schema tries the LLM collaborator first with a structured-output prompt
// and falls back to an ordered regex cascade on any failure, so extraction
// works identically (if less flexibly) when the LLM is unreachable.
package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"sarabot/internal/domain"
)

// Fields maps field names to extracted values. Every field of the schema is
// present; the empty string is the "missing" sentinel, a field is never
// absent from the map.
type Fields map[string]string

// Missing returns the names from required that have empty values, in the
// order given, for user-facing prompts.
func (f Fields) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if f[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Extractor performs schema extraction. llm may be a pattern fallback
// client that always errors, in which case only the regex cascades run.
type Extractor struct {
	llm    domain.LLM
	logger *slog.Logger
}

func New(llm domain.LLM, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// jsonObjectPattern grabs the first '{' through the last '}' so a JSON
// object survives any prose the model wrapped around it.
var jsonObjectPattern = regexp.MustCompile(`(?s)(\{.*\})`)

func firstJSONObject(s string) (string, bool) {
	m := jsonObjectPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// firstMatch runs patterns in order against text and returns the first
// capture group of the first pattern that matches.
func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}
