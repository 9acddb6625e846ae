package intent

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rules is the keyword/pattern table driving the classifier cascade. The
// defaults cover the phrasing seen in production; a YAML file can override
// any list without touching the cascade itself.
type Rules struct {
	PaymentKeywords []string `yaml:"paymentKeywords"`
	SheetsKeywords  []string `yaml:"sheetsKeywords"`
	BrandPatterns   []string `yaml:"brandPatterns"`
	BrandPairs      [][]string `yaml:"brandPairs"`
	BrandNames      []string `yaml:"brandNames"`
	InfoKeywords    []string `yaml:"infoKeywords"`
	InvoiceKeywords []string `yaml:"invoiceKeywords"`
	AgreementKeywords []string `yaml:"agreementKeywords"`
	EmailKeywords   []string `yaml:"emailKeywords"`
	ServiceKeywords []string `yaml:"serviceKeywords"`
	StatusKeywords  []string `yaml:"statusKeywords"`
	HelpKeywords    []string `yaml:"helpKeywords"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() *Rules {
	return &Rules{
		PaymentKeywords: []string{
			"who hasn't paid", "who has not paid", "unpaid brands", "negative balance",
			"outstanding balance", "who owes", "payment due", "brands that owe",
			"overdue", "who needs to pay",
		},
		SheetsKeywords: []string{
			"sheet", "spreadsheet", "data", "brands", "how many", "count",
			"analyze", "lookup", "check",
		},
		BrandPatterns: []string{
			`fetch\s+\w+.*info`,
			`fetch\s+\w+.*details`,
			`show\s+me\s+info\s+for\s+\w+`,
			`what'?s\s+\w+.*gst`,
			`do\s+we\s+have\s+\w+.*gst`,
			`what\s+is\s+\w+.*brand\s+id`,
			`\w+.*info$`,
			`info\s+for\s+\w+`,
			`get\s+\w+.*info`,
			`\w+.*details$`,
		},
		BrandPairs: [][]string{
			{"fetch", "info"}, {"fetch", "details"}, {"show", "info"},
			{"what's", "gst"}, {"what is", "gst"}, {"gst", "number"},
			{"gst", "details"}, {"brand", "id"}, {"company", "info"},
			{"brand", "info"}, {"brand", "details"},
		},
		BrandNames:   []string{"freakins", "yama yoga", "fae", "inde wild", "theater"},
		InfoKeywords: []string{"info", "details", "gst", "brand id", "information"},
		InvoiceKeywords: []string{
			"deposit invoice", "advance invoice", "generate invoice",
			"create invoice", "invoice for",
		},
		AgreementKeywords: []string{
			"generate agreement", "create agreement", "agreement for",
		},
		EmailKeywords: []string{
			"send email", "email to", "send an email", "draft email", "compose email",
		},
		ServiceKeywords: []string{
			"service status", "health check", "check services", "diagnose",
		},
		StatusKeywords: []string{
			"status", "current status", "what's the status",
		},
		HelpKeywords: []string{
			"help", "what can you do", "what all can you do", "capabilities",
			"functions", "services", "how can you help",
		},
	}
}

// LoadRules reads a YAML override file; lists left empty there keep their
// defaults.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read rules file %s: %w", path, err)
	}
	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("cannot parse rules file %s: %w", path, err)
	}
	rules := DefaultRules()
	mergeList(&rules.PaymentKeywords, override.PaymentKeywords)
	mergeList(&rules.SheetsKeywords, override.SheetsKeywords)
	mergeList(&rules.BrandPatterns, override.BrandPatterns)
	if len(override.BrandPairs) > 0 {
		rules.BrandPairs = override.BrandPairs
	}
	mergeList(&rules.BrandNames, override.BrandNames)
	mergeList(&rules.InfoKeywords, override.InfoKeywords)
	mergeList(&rules.InvoiceKeywords, override.InvoiceKeywords)
	mergeList(&rules.AgreementKeywords, override.AgreementKeywords)
	mergeList(&rules.EmailKeywords, override.EmailKeywords)
	mergeList(&rules.ServiceKeywords, override.ServiceKeywords)
	mergeList(&rules.StatusKeywords, override.StatusKeywords)
	mergeList(&rules.HelpKeywords, override.HelpKeywords)
	return rules, nil
}

func mergeList(dst *[]string, override []string) {
	if len(override) > 0 {
		*dst = override
	}
}

func (r *Rules) compileBrandPatterns() ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(r.BrandPatterns))
	for _, p := range r.BrandPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid brand pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
