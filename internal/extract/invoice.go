package extract

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// InvoiceRequired lists the fields a deposit invoice needs before the
// document can be generated.
var InvoiceRequired = []string{"brand_name", "deposit_amount", "invoice_number"}

var (
	invoiceAmountLabeled = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:deposit|amount)\s*(?:of|is|:)?\s*(?:₹|rs\.?\s*)?([\d,]+)`),
		regexp.MustCompile(`(?i)(?:₹|\brs\.?\s*)([\d,]+)`),
		regexp.MustCompile(`(?i)for\s+([\d,]{4,})`),
	}
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`#\s*([A-Z0-9/-]+)`),
		regexp.MustCompile(`\b(INV-[0-9]+)\b`),
		regexp.MustCompile(`\b([A-Z]{2,3}/[A-Z]{2}/[0-9]+)\b`),
	}
	invoiceBrandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice\s+for\s+([A-Za-z][A-Za-z0-9 &'.-]*?)\s*(?:,|\.|\bfor\b|\bof\b|#|$)`),
		regexp.MustCompile(`(?i)brand\s*(?:name)?\s*(?:is|:)\s*([A-Za-z0-9][A-Za-z0-9 &'.-]*?)\s*(?:,|\.|$)`),
	}
	pincodePattern = regexp.MustCompile(`\b[1-9][0-9]{5}\b`)
)

// Amount pulls a monetary amount out of text. Labeled forms win over a
// bare run of digits so "invoice #1042 for 50000" picks 50000 rather
// than the invoice number.
func Amount(text string) string {
	if v := stripCommas(firstMatch(text, invoiceAmountLabeled)); v != "" {
		return v
	}
	return firstMatch(text, []*regexp.Regexp{bareAmountPattern})
}

// InvoiceNumber pulls an invoice reference out of text. Returns "" when
// nothing looks like one.
func InvoiceNumber(text string) string {
	return firstMatch(text, invoiceNumberPatterns)
}

// Invoice extracts what an initial invoice request carries. Any of the
// three required fields may come back empty; the conversation flow asks
// for the rest.
func (e *Extractor) Invoice(ctx context.Context, text string) Fields {
	return Fields{
		"brand_name":     firstMatch(text, invoiceBrandPatterns),
		"deposit_amount": Amount(text),
		"invoice_number": InvoiceNumber(text),
	}
}

// InvoiceDates returns the invoice date and the due date fifteen days
// later, both formatted dd/mm/yyyy.
func InvoiceDates(now time.Time) (invoiceDate, dueDate string) {
	const layout = "02/01/2006"
	return now.Format(layout), now.AddDate(0, 0, 15).Format(layout)
}

// Address is a postal address broken into the lines the invoice template
// prints separately.
type Address struct {
	Line1   string
	Line2   string
	City    string
	State   string
	Pincode string
}

// ParseAddress splits a comma-separated Indian address. The six-digit
// pincode is lifted out wherever it appears; the last segment becomes the
// state, the one before it the city, and everything earlier fills the two
// address lines.
func ParseAddress(raw string) Address {
	var addr Address
	if m := pincodePattern.FindString(raw); m != "" {
		addr.Pincode = m
		raw = strings.Replace(raw, m, "", 1)
	}

	var parts []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(strings.Trim(strings.TrimSpace(p), "-"))
		if p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
	case 1:
		addr.Line1 = parts[0]
	case 2:
		addr.Line1 = parts[0]
		addr.City = parts[1]
	case 3:
		addr.Line1 = parts[0]
		addr.City = parts[1]
		addr.State = parts[2]
	default:
		addr.Line1 = parts[0]
		addr.Line2 = strings.Join(parts[1:len(parts)-2], ", ")
		addr.City = parts[len(parts)-2]
		addr.State = parts[len(parts)-1]
	}
	return addr
}
