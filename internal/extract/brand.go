package extract

import (
	"context"
	"regexp"
	"strings"
)

const brandSystemPrompt = `A user wants information about a brand. Reply with
ONLY the brand name mentioned in their message, nothing else. If no brand is
named, reply with NONE.`

var brandQueryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)fetch\s+(.+?)\s+(?:info|information|details|data)`),
	regexp.MustCompile(`(?i)(?:info|information|details|data)\s+(?:about|on|for|of)\s+(.+?)\s*(?:\?|\.|$)`),
	regexp.MustCompile(`(?i)(?:tell me about|look up|lookup|pull up)\s+(.+?)\s*(?:\?|\.|$)`),
	regexp.MustCompile(`(?i)(.+?)(?:'s)?\s+(?:brand\s+)?(?:info|information|details)\s*\??$`),
}

// BrandName pulls the brand under discussion out of a lookup query.
// The LLM reads the whole message, so it goes first; the patterns cover
// the usual phrasings when no LLM is configured or the call fails.
// Returns "" when no brand can be identified.
func (e *Extractor) BrandName(ctx context.Context, text string) string {
	if e.llm != nil {
		raw, err := e.llm.Complete(ctx, brandSystemPrompt, text)
		if err != nil {
			e.logger.Debug("brand name extraction falling back to patterns", "error", err)
		} else if name := cleanBrandName(raw); name != "" && !strings.EqualFold(name, "none") {
			return name
		}
	}
	for _, re := range brandQueryPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if name := cleanBrandName(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}

func cleanBrandName(s string) string {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
	for _, prefix := range []string{"the brand ", "brand ", "the "} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			s = s[len(prefix):]
		}
	}
	return strings.TrimSpace(s)
}
