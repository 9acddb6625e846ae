// Package handler implements the business flows behind each intent:
// agreement generation, deposit invoices, brand lookup, sheet analysis,
// and email. Handlers return a Response; posting it is the router's job.
package handler

import (
	"sarabot/internal/domain"
)

// Response is what a handler wants said and shared back in the thread.
type Response struct {
	Text  string
	Files []domain.FileUpload
}

// StateKey scopes flow and confirmation state to one user in one thread,
// so two people in the same thread never trample each other's flows.
func StateKey(msg domain.MessageEvent) string {
	return msg.SenderID + "_" + msg.ThreadID
}

// fieldPrompts maps internal field names to how we ask for them.
var fieldPrompts = map[string]string{
	"brand_name":       "Brand name",
	"company_name":     "Company name",
	"company_address":  "Company address",
	"industry":         "Industry",
	"flat_fee":         "Flat fee",
	"deposit":          "Deposit amount",
	"deposit_in_words": "Deposit amount", // derived from deposit, asked as one
	"deposit_amount":   "Deposit amount",
	"invoice_number":   "Invoice number",
}

// promptNames converts missing-field names into a deduplicated, readable
// list for a "still need" message.
func promptNames(missing []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range missing {
		label, ok := fieldPrompts[name]
		if !ok {
			label = name
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}

// nonEmpty filters a field map down to the keys that actually carry values,
// so merging never clobbers an earlier answer with a blank.
func nonEmpty(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
