package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"sarabot/internal/domain"
	"sarabot/internal/textutil"
)

// Service answers questions about spreadsheet data. Counting, searching
// and the payment report are computed over the full dataset; anything
// freer goes to the LLM with a sample of rows.
type Service struct {
	reader Reader
	llm    domain.LLM
	logger *slog.Logger
}

func NewService(reader Reader, llm domain.LLM, logger *slog.Logger) *Service {
	return &Service{reader: reader, llm: llm, logger: logger}
}

var sheetURLPattern = regexp.MustCompile(`https://docs\.google\.com/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// SheetIDFromText pulls a spreadsheet ID out of a pasted sheet URL.
func SheetIDFromText(text string) string {
	if m := sheetURLPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// balance is one brand's outstanding amount, negative when the brand owes.
type balance struct {
	name   string
	amount float64
}

// PaymentReport lists brands with negative balances, worst first, with the
// total outstanding at the bottom.
func (s *Service) PaymentReport(data *domain.SheetData) string {
	nameCol := findColumn(data.Headers, "brand", "name", "company")
	balCol := findColumn(data.Headers, "balance", "outstanding", "amount")
	if nameCol < 0 || balCol < 0 {
		return "I couldn't find brand and balance columns in the balances sheet."
	}

	var owing []balance
	for _, row := range data.Rows {
		if balCol >= len(row) || nameCol >= len(row) {
			continue
		}
		amt, ok := parseBalance(row[balCol])
		if !ok || amt >= 0 {
			continue
		}
		owing = append(owing, balance{name: row[nameCol], amount: amt})
	}
	if len(owing) == 0 {
		return "Good news! No brands have outstanding balances right now. :tada:"
	}

	sort.Slice(owing, func(i, j int) bool { return owing[i].amount < owing[j].amount })

	var b strings.Builder
	fmt.Fprintf(&b, "*%d brands have outstanding balances:*\n\n", len(owing))
	var total float64
	for i, o := range owing {
		owed := -o.amount
		total += owed
		fmt.Fprintf(&b, "%d. *%s*: %s\n", i+1, o.name, textutil.FormatCurrency(strconv.FormatFloat(owed, 'f', 0, 64)))
	}
	fmt.Fprintf(&b, "\n*Total outstanding:* %s", textutil.FormatCurrency(strconv.FormatFloat(total, 'f', 0, 64)))
	return b.String()
}

// Search scans every cell for term and reports each hit with its row
// number and column name. Hit count is exact even when the listing is
// capped.
func (s *Service) Search(data *domain.SheetData, term string) string {
	const maxListed = 20
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return "Tell me what to search for."
	}

	type hit struct {
		row    int
		column string
		value  string
	}
	var hits []hit
	for i, row := range data.Rows {
		for j, cell := range row {
			if strings.Contains(strings.ToLower(cell), needle) {
				col := fmt.Sprintf("column %d", j+1)
				if j < len(data.Headers) && data.Headers[j] != "" {
					col = data.Headers[j]
				}
				hits = append(hits, hit{row: i + 2, column: col, value: cell})
			}
		}
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No matches for *%s* in the sheet (%d rows checked).", term, len(data.Rows))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found *%d* matches for *%s*:\n\n", len(hits), term)
	for i, h := range hits {
		if i == maxListed {
			fmt.Fprintf(&b, "...and %d more.\n", len(hits)-maxListed)
			break
		}
		fmt.Fprintf(&b, "• Row %d, %s: %s\n", h.row, h.column, h.value)
	}
	return strings.TrimRight(b.String(), "\n")
}

// CountBrands reports the total row count, broken down by listing status
// when the sheet has a status column.
func (s *Service) CountBrands(data *domain.SheetData) string {
	total := data.TotalRows()
	statusCol := findColumn(data.Headers, "status", "listed")
	if statusCol < 0 {
		return fmt.Sprintf("There are *%d* brands in the sheet.", total)
	}

	counts := map[string]int{}
	var order []string
	for _, row := range data.Rows {
		status := ""
		if statusCol < len(row) {
			status = strings.TrimSpace(row[statusCol])
		}
		if status == "" {
			status = "(blank)"
		}
		if _, seen := counts[status]; !seen {
			order = append(order, status)
		}
		counts[status]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "There are *%d* brands in the sheet:\n", total)
	for _, status := range order {
		fmt.Fprintf(&b, "• %s: %d\n", status, counts[status])
	}
	return strings.TrimRight(b.String(), "\n")
}

const analyzeSystemPrompt = `You are Sara, a business assistant. Answer the
user's question using ONLY the spreadsheet sample below. The sample is the
header row plus the first rows of the sheet; say so if the question needs
data beyond the sample. Keep the answer short and use Slack formatting.`

// Analyze answers a free-form question by showing the LLM the headers and
// a sample of rows. Row counts in the prompt are the real totals so the
// model does not mistake the sample size for the dataset size.
func (s *Service) Analyze(ctx context.Context, data *domain.SheetData, question string) (string, error) {
	const sampleRows = 10
	var b strings.Builder
	fmt.Fprintf(&b, "Sheet has %d data rows and %d columns.\n", data.TotalRows(), len(data.Headers))
	fmt.Fprintf(&b, "Headers: %s\n", strings.Join(data.Headers, " | "))
	n := len(data.Rows)
	if n > sampleRows {
		n = sampleRows
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Row %d: %s\n", i+2, strings.Join(data.Rows[i], " | "))
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)

	answer, err := s.llm.Complete(ctx, analyzeSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("analyze sheet: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// findColumn returns the index of the first header containing any of the
// given fragments, case-insensitive. Returns -1 when none match.
func findColumn(headers []string, fragments ...string) int {
	for _, frag := range fragments {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), frag) {
				return i
			}
		}
	}
	return -1
}

// parseBalance reads an amount that may carry a currency symbol, commas,
// or accounting-style parentheses for negatives.
func parseBalance(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
