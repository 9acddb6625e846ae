package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// EmailDetails is what an email request carries before composition.
type EmailDetails struct {
	Recipients []string
	Names      []string
	Subject    string
	Purpose    string
	Verbatim   bool
	Body       string
}

const emailSystemPrompt = `You extract email request details from a message.
Return ONLY a JSON object with exactly these keys:
"recipients" (array of email addresses), "names" (array of recipient names,
may be empty), "subject" (string, empty unless the sender stated one),
"purpose" (one sentence describing what the email should say),
"verbatim" (boolean, true only if the sender asked to send their exact words),
"body" (the exact text to send when verbatim is true, else empty string).
Do not invent addresses or content.`

var (
	emailAddressPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`)
	emailSubjectPattern = regexp.MustCompile(`(?i)subject\s*(?:is|:)\s*"?([^"\n]+)"?`)
	verbatimPattern     = regexp.MustCompile(`(?i)\b(?:exactly|verbatim|word for word|as is)\b`)
	quotedBodyPattern   = regexp.MustCompile(`(?s)"(.{10,})"`)
)

// Email extracts recipients and intent from an email request. The regex
// fallback can always recover addresses and a stated subject; purpose
// defaults to the whole message so composition still has something to
// work from.
func (e *Extractor) Email(ctx context.Context, text string) *EmailDetails {
	if d := e.emailLLM(ctx, text); d != nil {
		return d
	}
	return emailRegex(text)
}

func (e *Extractor) emailLLM(ctx context.Context, text string) *EmailDetails {
	if e.llm == nil {
		return nil
	}
	raw, err := e.llm.Complete(ctx, emailSystemPrompt, text)
	if err != nil {
		e.logger.Debug("email extraction falling back to patterns", "error", err)
		return nil
	}
	obj, ok := firstJSONObject(raw)
	if !ok {
		return nil
	}
	var parsed struct {
		Recipients []string `json:"recipients"`
		Names      []string `json:"names"`
		Subject    string   `json:"subject"`
		Purpose    string   `json:"purpose"`
		Verbatim   bool     `json:"verbatim"`
		Body       string   `json:"body"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		e.logger.Warn("email extraction got malformed JSON", "error", err)
		return nil
	}
	d := &EmailDetails{
		Names:    parsed.Names,
		Subject:  strings.TrimSpace(parsed.Subject),
		Purpose:  strings.TrimSpace(parsed.Purpose),
		Verbatim: parsed.Verbatim,
		Body:     parsed.Body,
	}
	// Only keep addresses that actually look like addresses.
	for _, r := range parsed.Recipients {
		if addr := emailAddressPattern.FindString(r); addr != "" {
			d.Recipients = append(d.Recipients, addr)
		}
	}
	return d
}

// Composed is a subject/body pair produced by LLM email composition.
type Composed struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ComposedEmail parses a composition reply. Returns false when the reply
// holds no usable JSON object.
func ComposedEmail(raw string) (Composed, bool) {
	obj, ok := firstJSONObject(raw)
	if !ok {
		return Composed{}, false
	}
	var c Composed
	if err := json.Unmarshal([]byte(obj), &c); err != nil || strings.TrimSpace(c.Body) == "" {
		return Composed{}, false
	}
	c.Subject = strings.TrimSpace(c.Subject)
	c.Body = strings.TrimSpace(c.Body)
	if c.Subject == "" {
		c.Subject = "(no subject)"
	}
	return c, true
}

func emailRegex(text string) *EmailDetails {
	d := &EmailDetails{
		Recipients: emailAddressPattern.FindAllString(text, -1),
		Purpose:    text,
	}
	if m := emailSubjectPattern.FindStringSubmatch(text); m != nil {
		d.Subject = strings.TrimSpace(m[1])
	}
	if verbatimPattern.MatchString(text) {
		if m := quotedBodyPattern.FindStringSubmatch(text); m != nil {
			d.Verbatim = true
			d.Body = m[1]
		}
	}
	return d
}
