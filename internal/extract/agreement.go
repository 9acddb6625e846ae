package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"sarabot/internal/textutil"
)

// AgreementRequired lists the fields a partnership agreement needs before
// the document can be generated, in prompt order.
var AgreementRequired = []string{
	"brand_name",
	"company_name",
	"company_address",
	"industry",
	"flat_fee",
	"deposit",
	"deposit_in_words",
}

const agreementSystemPrompt = `You extract partnership agreement details from a message.
Return ONLY a JSON object with exactly these keys:
"brand_name", "company_name", "company_address", "industry", "flat_fee", "deposit".
Use an empty string for anything not mentioned. Amounts are plain digits
without currency symbols or commas. Do not guess or invent values.`

var (
	agreementBrandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)brand\s*(?:name)?\s*(?:is|:)\s*([A-Za-z0-9][A-Za-z0-9 &'.-]*?)\s*(?:,|\.|\band\b|$)`),
		regexp.MustCompile(`(?i)agreement\s+for\s+([A-Za-z0-9][A-Za-z0-9 &'.-]*?)\s*(?:,|\.|$)`),
	}
	agreementCompanyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)company\s*(?:name)?\s*(?:is|:)\s*([A-Za-z0-9][A-Za-z0-9 &'.()-]*?)\s*(?:,|\.\s|\band\b|$)`),
		regexp.MustCompile(`(?i)registered\s+as\s+([A-Za-z0-9][A-Za-z0-9 &'.()-]*?)\s*(?:,|\.\s|$)`),
	}
	agreementAddressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)address\s*(?:is|:)?\s*(.+?)\s*(?:\bindustry\b|\bflat fee\b|\bdeposit\b|$)`),
		regexp.MustCompile(`(?i)located\s+at\s+(.+?)\s*(?:\bindustry\b|\bflat fee\b|\bdeposit\b|$)`),
	}
	agreementIndustryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)industry\s*(?:is|:)?\s*([A-Za-z][A-Za-z &/-]*?)\s*(?:,|\.|$)`),
	}
	agreementFeePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)flat\s*fee\s*(?:is|:|of)?\s*(?:₹|rs\.?\s*)?([\d,]+)`),
		regexp.MustCompile(`(?i)fee\s*(?:is|:|of)?\s*(?:₹|rs\.?\s*)?([\d,]+)`),
	}
	agreementDepositLabeled = []*regexp.Regexp{
		regexp.MustCompile(`(?i)deposit\s*(?:amount)?\s*(?:is|:|of)?\s*(?:₹|rs\.?\s*)?([\d,]+)`),
		regexp.MustCompile(`(?i)(?:₹|\brs\.?\s*)([\d,]+)\s*(?:as\s+)?deposit`),
	}
	bareAmountPattern = regexp.MustCompile(`\b([0-9]{4,})\b`)
)

// Agreement extracts partnership agreement fields from text. Fields the
// message does not mention come back empty. deposit_in_words is derived
// from deposit, never extracted.
func (e *Extractor) Agreement(ctx context.Context, text string) Fields {
	fields := e.agreementLLM(ctx, text)
	if fields == nil {
		fields = agreementRegex(text)
	}
	if fields["deposit"] != "" {
		fields["deposit_in_words"] = textutil.NumberToWords(fields["deposit"])
	} else {
		fields["deposit_in_words"] = ""
	}
	return fields
}

func (e *Extractor) agreementLLM(ctx context.Context, text string) Fields {
	if e.llm == nil {
		return nil
	}
	raw, err := e.llm.Complete(ctx, agreementSystemPrompt, text)
	if err != nil {
		e.logger.Debug("agreement extraction falling back to patterns", "error", err)
		return nil
	}
	obj, ok := firstJSONObject(raw)
	if !ok {
		e.logger.Warn("agreement extraction got non-JSON reply", "reply", raw)
		return nil
	}
	var parsed map[string]string
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		e.logger.Warn("agreement extraction got malformed JSON", "error", err)
		return nil
	}
	fields := Fields{}
	for _, name := range []string{"brand_name", "company_name", "company_address", "industry", "flat_fee", "deposit"} {
		fields[name] = strings.TrimSpace(parsed[name])
	}
	fields["flat_fee"] = stripCommas(fields["flat_fee"])
	fields["deposit"] = stripCommas(fields["deposit"])
	return fields
}

func agreementRegex(text string) Fields {
	fields := Fields{
		"brand_name":      firstMatch(text, agreementBrandPatterns),
		"company_name":    firstMatch(text, agreementCompanyPatterns),
		"company_address": firstMatch(text, agreementAddressPatterns),
		"industry":        firstMatch(text, agreementIndustryPatterns),
	}

	deposit := stripCommas(firstMatch(text, agreementDepositLabeled))

	// The loose "fee ... <amount>" pattern can land on the deposit figure
	// in messages like "Deposit: Rs 5000, Fee: the same". A candidate
	// equal to the deposit is skipped and the next pattern gets a turn.
	var fee string
	for _, re := range agreementFeePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := stripCommas(m[1]); v != "" && v != deposit {
			fee = v
			break
		}
	}
	fields["flat_fee"] = fee

	// A bare number only counts as the deposit when the message talks
	// about one; otherwise pincodes and fee amounts get swept up.
	if deposit == "" && strings.Contains(strings.ToLower(text), "deposit") {
		deposit = stripCommas(firstMatch(text, []*regexp.Regexp{bareAmountPattern}))
		if deposit == fields["flat_fee"] {
			deposit = ""
		}
	}
	fields["deposit"] = deposit
	return fields
}
