// Package textutil holds the small text helpers shared by every handler:
// Slack mention stripping, Indian-rupee currency formatting, and the
// number-to-words conversion used for agreement deposits.
package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	mentionPattern = regexp.MustCompile(`<@[\w]+>`)
	slugPattern    = regexp.MustCompile(`\W+`)
)

// StripMentions removes Slack user-mention tokens like <@U12345> and trims
// surrounding whitespace. It always succeeds, possibly returning an empty
// string.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// Slug turns a brand name into a safe filename fragment,
// e.g. "My Brand" -> "my_brand".
func Slug(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// parseAmount strips currency decoration (rupee sign, "Rs", commas) and
// parses the remainder as a float. Returns false when the input is not a
// plain amount.
func parseAmount(value string) (float64, bool) {
	s := strings.TrimSpace(value)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.TrimPrefix(s, "Rs")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}

// FormatCurrency formats a numeric string as rupee currency ("₹10,000").
// Anything that does not parse as an amount is returned unchanged, which
// also makes repeated formatting a no-op once the rupee sign is present.
func FormatCurrency(value string) string {
	if strings.HasPrefix(strings.TrimSpace(value), "₹") {
		return value
	}
	num, ok := parseAmount(value)
	if !ok {
		return value
	}
	neg := num < 0
	if neg {
		num = -num
	}
	whole := strconv.FormatInt(int64(num+0.5), 10)

	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)

	out := "₹" + strings.Join(groups, ",")
	if neg {
		out = "-" + out
	}
	return out
}

var (
	onesWords = []string{"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
	teenWords = []string{"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
		"sixteen", "seventeen", "eighteen", "nineteen"}
	tensWords = []string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}
)

func hundredsWords(n int) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, onesWords[n/100], "hundred")
		n %= 100
	}
	switch {
	case n >= 20:
		parts = append(parts, tensWords[n/10])
		n %= 10
		if n > 0 {
			parts = append(parts, onesWords[n])
		}
	case n >= 10:
		parts = append(parts, teenWords[n-10])
	case n > 0:
		parts = append(parts, onesWords[n])
	}
	return strings.Join(parts, " ")
}

// NumberToWords converts a numeric string to words using the Indian
// numbering system (thousand, lakh = 10^5, crore = 10^7). Inputs may carry
// currency decoration ("₹10,000", "Rs 5000"). Anything that does not parse
// is returned unchanged, so feeding an already-converted string back in is
// harmless.
func NumberToWords(value string) string {
	amount, ok := parseAmount(value)
	if !ok {
		return value
	}
	num := int(amount)

	if num == 0 {
		return "zero"
	}
	if num < 0 {
		return "negative " + NumberToWords(strconv.Itoa(-num))
	}

	var parts []string
	if num >= 10000000 {
		parts = append(parts, hundredsWords(num/10000000), "crore")
		num %= 10000000
	}
	if num >= 100000 {
		parts = append(parts, hundredsWords(num/100000), "lakh")
		num %= 100000
	}
	if num >= 1000 {
		parts = append(parts, hundredsWords(num/1000), "thousand")
		num %= 1000
	}
	if num > 0 {
		parts = append(parts, hundredsWords(num))
	}
	return strings.Join(parts, " ")
}
