package extract

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return f.reply, f.err
}
func (f *fakeLLM) Name() string                     { return "fake" }
func (f *fakeLLM) Healthy(ctx context.Context) error { return f.err }

func TestAgreementRegexFallback(t *testing.T) {
	e := New(&fakeLLM{err: errors.New("down")}, testLogger())

	fields := e.Agreement(context.Background(),
		"Brand is Freakins, company is Oraan Apparels Pvt Ltd. Industry is fashion. Flat fee: Rs 320, Deposit: Rs 10,000")

	want := map[string]string{
		"brand_name":       "Freakins",
		"company_name":     "Oraan Apparels Pvt Ltd",
		"industry":         "fashion",
		"flat_fee":         "320",
		"deposit":          "10000",
		"deposit_in_words": "ten thousand",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, fields[k], v)
		}
	}
}

func TestAgreementBareAmountNotDuplicatedIntoDeposit(t *testing.T) {
	e := New(nil, testLogger())

	// Single bare amount already claimed by the flat fee must not also
	// become the deposit, even when the message mentions a deposit.
	fields := e.Agreement(context.Background(), "agreement for Fae, deposit same as flat fee 5000")
	if fields["flat_fee"] != "5000" {
		t.Fatalf("flat_fee = %q, want 5000", fields["flat_fee"])
	}
	if fields["deposit"] != "" {
		t.Errorf("deposit = %q, want empty", fields["deposit"])
	}
	if fields["deposit_in_words"] != "" {
		t.Errorf("deposit_in_words = %q, want empty", fields["deposit_in_words"])
	}
}

func TestAgreementFeeDoesNotSwallowDeposit(t *testing.T) {
	e := New(nil, testLogger())

	// The loose fee pattern would match the deposit figure here; the
	// deposit keeps it and the fee stays unknown.
	fields := e.Agreement(context.Background(), "Deposit: Rs 5000, Fee: Rs 5000")
	if fields["deposit"] != "5000" {
		t.Fatalf("deposit = %q, want 5000", fields["deposit"])
	}
	if fields["flat_fee"] != "" {
		t.Errorf("flat_fee = %q, want empty", fields["flat_fee"])
	}
}

func TestAgreementAddressPincodeIsNotADeposit(t *testing.T) {
	e := New(nil, testLogger())

	fields := e.Agreement(context.Background(),
		"address is 4 Sun Mill Compound, Lower Parel, Mumbai, Maharashtra - 400013")
	if fields["company_address"] == "" {
		t.Fatal("address not extracted")
	}
	if fields["deposit"] != "" {
		t.Errorf("pincode leaked into deposit: %q", fields["deposit"])
	}
}

func TestAgreementLLMPath(t *testing.T) {
	llm := &fakeLLM{reply: `Here you go: {"brand_name":"Inde Wild","company_name":"Inde Wild Ltd","company_address":"12 Baker St, London","industry":"beauty","flat_fee":"1,000","deposit":"25,000"}`}
	e := New(llm, testLogger())

	fields := e.Agreement(context.Background(), "agreement please")
	if fields["brand_name"] != "Inde Wild" {
		t.Errorf("brand_name = %q", fields["brand_name"])
	}
	if fields["deposit"] != "25000" {
		t.Errorf("deposit = %q, want commas stripped", fields["deposit"])
	}
	if fields["deposit_in_words"] != "twenty five thousand" {
		t.Errorf("deposit_in_words = %q", fields["deposit_in_words"])
	}
}

func TestMissing(t *testing.T) {
	fields := Fields{"brand_name": "Freakins", "deposit": ""}
	got := fields.Missing(AgreementRequired)
	if len(got) != 6 {
		t.Fatalf("missing = %v, want 6 entries", got)
	}
	if got[0] != "company_name" {
		t.Errorf("first missing = %q, want company_name", got[0])
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"50000", "50000"},
		{"deposit of 50,000", "50000"},
		{"₹75000", "75000"},
		{"Rs. 1,20,000", "120000"},
		{"invoice #1042 for 50000", "50000"},
		{"the amount is 9000", "9000"},
		{"no numbers here", ""},
	}
	for _, tt := range tests {
		if got := Amount(tt.text); got != tt.want {
			t.Errorf("Amount(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestInvoiceNumber(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"invoice # FRK/DP/001", "FRK/DP/001"},
		{"number is INV-2024", "INV-2024"},
		{"use YY/DP/1042 please", "YY/DP/1042"},
		{"no reference", ""},
	}
	for _, tt := range tests {
		if got := InvoiceNumber(tt.text); got != tt.want {
			t.Errorf("InvoiceNumber(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestInvoiceDates(t *testing.T) {
	now := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	inv, due := InvoiceDates(now)
	if inv != "20/03/2025" {
		t.Errorf("invoice date = %q", inv)
	}
	if due != "04/04/2025" {
		t.Errorf("due date = %q", due)
	}
}

func TestParseAddress(t *testing.T) {
	addr := ParseAddress("Unit 4, Sun Mill Compound, Lower Parel, Mumbai, Maharashtra - 400013")
	if addr.Line1 != "Unit 4" {
		t.Errorf("line1 = %q", addr.Line1)
	}
	if addr.Line2 != "Sun Mill Compound, Lower Parel" {
		t.Errorf("line2 = %q", addr.Line2)
	}
	if addr.City != "Mumbai" {
		t.Errorf("city = %q", addr.City)
	}
	if addr.State != "Maharashtra" {
		t.Errorf("state = %q", addr.State)
	}
	if addr.Pincode != "400013" {
		t.Errorf("pincode = %q", addr.Pincode)
	}
}

func TestParseAddressShort(t *testing.T) {
	addr := ParseAddress("Mumbai")
	if addr.Line1 != "Mumbai" || addr.City != "" {
		t.Errorf("short address parsed as %+v", addr)
	}
}

func TestEmailRegexFallback(t *testing.T) {
	e := New(&fakeLLM{err: errors.New("down")}, testLogger())

	d := e.Email(context.Background(),
		`send an email to priya@freakins.com exactly saying "Payment received, thank you" with subject: Payment confirmation`)
	if len(d.Recipients) != 1 || d.Recipients[0] != "priya@freakins.com" {
		t.Fatalf("recipients = %v", d.Recipients)
	}
	if d.Subject != "Payment confirmation" {
		t.Errorf("subject = %q", d.Subject)
	}
	if !d.Verbatim || d.Body != "Payment received, thank you" {
		t.Errorf("verbatim = %v body = %q", d.Verbatim, d.Body)
	}
}

func TestEmailLLMFiltersBadAddresses(t *testing.T) {
	llm := &fakeLLM{reply: `{"recipients":["priya@freakins.com","not-an-address"],"names":["Priya"],"subject":"","purpose":"ask for the signed agreement","verbatim":false,"body":""}`}
	e := New(llm, testLogger())

	d := e.Email(context.Background(), "email Priya about the agreement")
	if len(d.Recipients) != 1 || d.Recipients[0] != "priya@freakins.com" {
		t.Errorf("recipients = %v", d.Recipients)
	}
	if d.Purpose != "ask for the signed agreement" {
		t.Errorf("purpose = %q", d.Purpose)
	}
}

func TestBrandName(t *testing.T) {
	e := New(nil, testLogger())
	tests := []struct {
		text string
		want string
	}{
		{"fetch Freakins info", "Freakins"},
		{"give me details about Yama Yoga", "Yama Yoga"},
		{"tell me about the brand Fae", "Fae"},
		{"what is the weather", ""},
	}
	for _, tt := range tests {
		if got := e.BrandName(context.Background(), tt.text); got != tt.want {
			t.Errorf("BrandName(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestBrandNamePrefersLLMReading(t *testing.T) {
	e := New(&fakeLLM{reply: "Acme"}, testLogger())

	// "fetch Freakins info" also matches a query pattern; the LLM read
	// of the full message wins.
	if got := e.BrandName(context.Background(), "fetch Freakins info"); got != "Acme" {
		t.Errorf("BrandName = %q, want Acme", got)
	}
}

func TestBrandNameFallsBackToPatterns(t *testing.T) {
	e := New(&fakeLLM{err: errors.New("down")}, testLogger())
	if got := e.BrandName(context.Background(), "fetch Freakins info"); got != "Freakins" {
		t.Errorf("BrandName = %q, want Freakins", got)
	}

	e = New(&fakeLLM{reply: "NONE"}, testLogger())
	if got := e.BrandName(context.Background(), "fetch Freakins info"); got != "Freakins" {
		t.Errorf("BrandName after NONE = %q, want Freakins", got)
	}
}
