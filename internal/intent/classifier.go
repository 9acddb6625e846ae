// Package intent maps a cleaned message string to one of a fixed set of
// intent labels. The cascade is keyword-first: the highest-value query
// classes (payment status) must classify the same way whether or not the
// LLM collaborator is reachable, so the LLM only sees messages no local
// rule matched.
package intent

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"sarabot/internal/domain"
)

// Label is an intent label.
type Label string

const (
	GenerateAgreement Label = "generate_agreement"
	GenerateInvoice   Label = "generate_deposit_invoice"
	LookupSheets      Label = "lookup_sheets"
	SendEmail         Label = "send_email"
	BrandInfo         Label = "brand_info"
	GetStatus         Label = "get_status"
	ServiceStatus     Label = "service_status"
	Help              Label = "help"
	Unknown           Label = "unknown"
)

var knownLabels = map[Label]bool{
	GenerateAgreement: true,
	GenerateInvoice:   true,
	LookupSheets:      true,
	SendEmail:         true,
	BrandInfo:         true,
	GetStatus:         true,
	ServiceStatus:     true,
	Help:              true,
	Unknown:           true,
}

// Classifier runs the priority cascade. llm may be nil.
type Classifier struct {
	rules         *Rules
	brandPatterns []*regexp.Regexp
	llm           domain.LLM
	logger        *slog.Logger
}

func NewClassifier(rules *Rules, llm domain.LLM, logger *slog.Logger) (*Classifier, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	patterns, err := rules.compileBrandPatterns()
	if err != nil {
		return nil, err
	}
	return &Classifier{
		rules:         rules,
		brandPatterns: patterns,
		llm:           llm,
		logger:        logger,
	}, nil
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Classify returns the intent label for the given message. The cascade is
// strict priority order: first matching tier wins, no scoring.
func (c *Classifier) Classify(ctx context.Context, text string) Label {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case containsAny(lower, c.rules.PaymentKeywords):
		return LookupSheets
	case containsAny(lower, c.rules.InvoiceKeywords):
		return GenerateInvoice
	case containsAny(lower, c.rules.SheetsKeywords):
		return LookupSheets
	case c.matchesBrand(lower):
		return BrandInfo
	case containsAny(lower, c.rules.AgreementKeywords):
		return GenerateAgreement
	case containsAny(lower, c.rules.EmailKeywords):
		return SendEmail
	case containsAny(lower, c.rules.ServiceKeywords):
		return ServiceStatus
	case containsAny(lower, c.rules.StatusKeywords):
		return GetStatus
	case containsAny(lower, c.rules.HelpKeywords):
		return Help
	}

	if label, ok := c.classifyLLM(ctx, text); ok {
		return label
	}
	return Unknown
}

// IsPayment reports whether text is a payment or balance query, which the
// sheets handler answers from the balances sheet rather than the LLM.
func (c *Classifier) IsPayment(text string) bool {
	return containsAny(strings.ToLower(text), c.rules.PaymentKeywords)
}

// matchesBrand checks the structural brand-query patterns, the
// keyword-pair co-occurrences, and known-brand-name plus info-keyword
// co-occurrence.
func (c *Classifier) matchesBrand(lower string) bool {
	for _, re := range c.brandPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	for _, pair := range c.rules.BrandPairs {
		if len(pair) == 2 && strings.Contains(lower, pair[0]) && strings.Contains(lower, pair[1]) {
			return true
		}
	}
	return containsAny(lower, c.rules.BrandNames) && containsAny(lower, c.rules.InfoKeywords)
}

const classifySystemPrompt = `You are Sara, a Slack business assistant. Classify the intent of the user's message. Respond with exactly one of the following labels and nothing else:
- generate_agreement (creating partnership agreements, e.g. "Generate an agreement for XYZ Company")
- generate_deposit_invoice (creating advance deposit invoices, e.g. "generate a deposit invoice for Freakins")
- get_status (checking project status information, e.g. "What's the current status?")
- lookup_sheets (data, spreadsheet, or payment queries, e.g. "Who hasn't paid?", "How many brands are listed?")
- send_email (sending or drafting emails, e.g. "Send an email to john@example.com about the meeting")
- brand_info (fetching brand information, GST numbers, brand IDs, e.g. "fetch Freakins info", "What's FAE's GST number")
- service_status (checking the bot's own service health, e.g. "service status")
- help (questions about capabilities, e.g. "What can you do?")
- unknown`

// classifyLLM asks the LLM collaborator only when no local rule matched.
// The response is accepted only if it is exactly a known label.
func (c *Classifier) classifyLLM(ctx context.Context, text string) (Label, bool) {
	if c.llm == nil {
		return Unknown, false
	}
	resp, err := c.llm.Complete(ctx, classifySystemPrompt, text)
	if err != nil {
		c.logger.Warn("llm intent classification failed", "err", err)
		return Unknown, false
	}
	label := Label(strings.ToLower(strings.TrimSpace(resp)))
	if !knownLabels[label] {
		c.logger.Warn("llm returned unknown intent label", "label", string(label))
		return Unknown, false
	}
	return label, true
}
