package sheets

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"sarabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeLLM struct {
	reply string
	err   error
	seen  string
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	f.seen = user
	return f.reply, f.err
}
func (f *fakeLLM) Name() string                      { return "fake" }
func (f *fakeLLM) Healthy(ctx context.Context) error { return f.err }

func balancesSheet() *domain.SheetData {
	return &domain.SheetData{
		SheetID: "bal123",
		Headers: []string{"Brand Name", "Balance", "Last Payment"},
		Rows: [][]string{
			{"Freakins", "-50000", "01/02/2025"},
			{"Yama Yoga", "12000", "15/02/2025"},
			{"Fae", "(20,000)", "10/01/2025"},
			{"Inde Wild", "0", ""},
			{"Theater", "₹-5,000", ""},
		},
	}
}

func TestPaymentReport(t *testing.T) {
	s := NewService(nil, nil, testLogger())
	got := s.PaymentReport(balancesSheet())

	if !strings.Contains(got, "3 brands have outstanding balances") {
		t.Fatalf("report header wrong:\n%s", got)
	}
	// Worst balance first.
	first := strings.Index(got, "Freakins")
	second := strings.Index(got, "Fae")
	third := strings.Index(got, "Theater")
	if !(first < second && second < third) {
		t.Errorf("expected Freakins, Fae, Theater order:\n%s", got)
	}
	if !strings.Contains(got, "₹75,000") {
		t.Errorf("total should be ₹75,000:\n%s", got)
	}
	if strings.Contains(got, "Yama Yoga") {
		t.Errorf("positive balance must not appear:\n%s", got)
	}
}

func TestPaymentReportNoDebtors(t *testing.T) {
	s := NewService(nil, nil, testLogger())
	data := &domain.SheetData{
		Headers: []string{"Brand", "Balance"},
		Rows:    [][]string{{"Freakins", "100"}},
	}
	got := s.PaymentReport(data)
	if !strings.Contains(got, "No brands have outstanding balances") {
		t.Errorf("unexpected report:\n%s", got)
	}
}

func TestSearch(t *testing.T) {
	s := NewService(nil, nil, testLogger())
	got := s.Search(balancesSheet(), "freakins")

	if !strings.Contains(got, "*1* matches") {
		t.Fatalf("expected one match:\n%s", got)
	}
	// Row 2 in sheet terms: header is row 1.
	if !strings.Contains(got, "Row 2, Brand Name: Freakins") {
		t.Errorf("match location wrong:\n%s", got)
	}
}

func TestSearchNoMatch(t *testing.T) {
	s := NewService(nil, nil, testLogger())
	got := s.Search(balancesSheet(), "nonexistent")
	if !strings.Contains(got, "No matches") || !strings.Contains(got, "5 rows checked") {
		t.Errorf("unexpected:\n%s", got)
	}
}

func TestCountBrandsWithStatus(t *testing.T) {
	s := NewService(nil, nil, testLogger())
	data := &domain.SheetData{
		Headers: []string{"Brand", "Status"},
		Rows: [][]string{
			{"Freakins", "Listed"},
			{"Fae", "Listed"},
			{"Theater", "Pending"},
			{"Inde Wild", ""},
		},
	}
	got := s.CountBrands(data)
	if !strings.Contains(got, "*4* brands") {
		t.Fatalf("total wrong:\n%s", got)
	}
	for _, want := range []string{"Listed: 2", "Pending: 1", "(blank): 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q:\n%s", want, got)
		}
	}
}

func TestCountBrandsNoStatusColumn(t *testing.T) {
	s := NewService(nil, nil, testLogger())
	data := &domain.SheetData{
		Headers: []string{"Brand", "City"},
		Rows:    [][]string{{"Freakins", "Mumbai"}, {"Fae", "Delhi"}},
	}
	got := s.CountBrands(data)
	if got != "There are *2* brands in the sheet." {
		t.Errorf("unexpected: %q", got)
	}
}

func TestAnalyzeSendsRealTotals(t *testing.T) {
	llm := &fakeLLM{reply: "The worst balance is Freakins."}
	s := NewService(nil, llm, testLogger())

	got, err := s.Analyze(context.Background(), balancesSheet(), "who owes the most?")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got != "The worst balance is Freakins." {
		t.Errorf("answer = %q", got)
	}
	if !strings.Contains(llm.seen, "5 data rows") {
		t.Errorf("prompt missing real row count:\n%s", llm.seen)
	}
	if !strings.Contains(llm.seen, "who owes the most?") {
		t.Errorf("prompt missing question:\n%s", llm.seen)
	}
}

func TestSheetIDFromText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"check https://docs.google.com/spreadsheets/d/1AbC-xyz_123/edit#gid=0 please", "1AbC-xyz_123"},
		{"no link here", ""},
	}
	for _, tt := range tests {
		if got := SheetIDFromText(tt.text); got != tt.want {
			t.Errorf("SheetIDFromText(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestParseBalance(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"-50000", -50000, true},
		{"(20,000)", -20000, true},
		{"₹-5,000", -5000, true},
		{"Rs. 1,200", 1200, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseBalance(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseBalance(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
