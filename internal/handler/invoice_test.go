package handler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sarabot/internal/state"
)

func newTestInvoice(t *testing.T, filler *fakeFiller, reader *fakeReader) *Invoice {
	t.Helper()
	return NewInvoice(InvoiceConfig{
		Extractor:     noLLMExtractor(),
		States:        testStates(t),
		Reader:        reader,
		Filler:        filler,
		MasterSheetID: "sheet-1",
		MasterRange:   "Brand Master!A:Z",
		TemplatePath:  "tmpl/invoice.docx",
		OutputDir:     t.TempDir(),
		Now:           func() time.Time { return time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC) },
		Logger:        testLogger(),
	})
}

func TestInvoiceStagedFlow(t *testing.T) {
	filler := &fakeFiller{}
	h := newTestInvoice(t, filler, &fakeReader{data: brandMasterData()})
	ctx := context.Background()

	resp, err := h.Handle(ctx, testMsg("create a deposit invoice for Freakins"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "deposit amount") {
		t.Fatalf("expected the amount question:\n%s", resp.Text)
	}
	if !h.InFlow(testMsg("")) {
		t.Fatal("flow should be active")
	}

	resp, err = h.Handle(ctx, reply("50000"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "invoice number") {
		t.Fatalf("expected the invoice number question:\n%s", resp.Text)
	}

	resp, err = h.Handle(ctx, reply("# FRK/DP/001"))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 {
		t.Fatalf("expected a generated file, got %+v", resp)
	}
	if !strings.Contains(resp.Text, "FRK/DP/001") || !strings.Contains(resp.Text, "₹50,000") {
		t.Errorf("reply should name the invoice and amount:\n%s", resp.Text)
	}
	if h.InFlow(testMsg("")) {
		t.Error("flow should end after generation")
	}

	for field, want := range map[string]string{
		"Invoice_Number": "FRK/DP/001",
		"Invoice_Date":   "20/03/2025",
		"Due_Date":       "04/04/2025",
		"Brand_Name":     "Freakins",
		"Address_Line1":  "Unit 4",
		"Address_Line2":  "Sun Mill Compound, Lower Parel",
		"City":           "Mumbai",
		"State":          "Maharashtra",
		"Pincode":        "400013",
		"Phone":          "+91 98200 12345",
		"Email":          "hello@freakins.com",
		"Deposit_Amount": "₹50,000",
		"Sub_Total":      "₹50,000",
		"Amount_Due":     "₹50,000",
	} {
		if got := filler.fields[field]; got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
	if !strings.HasSuffix(filler.output, "freakins_deposit_invoice.docx") {
		t.Errorf("output path = %q", filler.output)
	}
}

func TestInvoiceRepromptsOnUnreadableAmount(t *testing.T) {
	h := newTestInvoice(t, &fakeFiller{}, &fakeReader{data: brandMasterData()})
	ctx := context.Background()

	if _, err := h.Handle(ctx, testMsg("deposit invoice for Fae")); err != nil {
		t.Fatal(err)
	}
	resp, err := h.Handle(ctx, reply("umm not sure yet"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "couldn't read an amount") {
		t.Fatalf("expected a reprompt:\n%s", resp.Text)
	}
	if !h.InFlow(testMsg("")) {
		t.Error("flow should survive a bad reply")
	}
}

func TestInvoiceOneShotRequest(t *testing.T) {
	filler := &fakeFiller{}
	h := newTestInvoice(t, filler, &fakeReader{data: brandMasterData()})

	resp, err := h.Handle(context.Background(), testMsg("deposit invoice for Freakins, amount 25000 #FRK/DP/002"))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 {
		t.Fatalf("all fields were given, expected a file:\n%s", resp.Text)
	}
	if filler.fields["Invoice_Number"] != "FRK/DP/002" {
		t.Errorf("Invoice_Number = %q", filler.fields["Invoice_Number"])
	}
	if filler.fields["Deposit_Amount"] != "₹25,000" {
		t.Errorf("Deposit_Amount = %q", filler.fields["Deposit_Amount"])
	}
}

func TestInvoiceReusesBrandFromRecentLookup(t *testing.T) {
	cache := state.NewBrandCache(time.Minute)
	reader := &fakeReader{data: brandMasterData()}

	brandInfo := NewBrandInfo(BrandInfoConfig{
		Extractor:     noLLMExtractor(),
		Reader:        reader,
		Confirmations: state.NewConfirmations(time.Minute),
		RecentBrands:  cache,
		MasterSheetID: "sheet-1",
		MasterRange:   "Brand Master!A:Z",
		Logger:        testLogger(),
	})
	invoice := NewInvoice(InvoiceConfig{
		Extractor:     noLLMExtractor(),
		States:        testStates(t),
		Reader:        reader,
		Filler:        &fakeFiller{},
		RecentBrands:  cache,
		MasterSheetID: "sheet-1",
		MasterRange:   "Brand Master!A:Z",
		TemplatePath:  "tmpl/invoice.docx",
		OutputDir:     t.TempDir(),
		Logger:        testLogger(),
	})
	ctx := context.Background()

	if _, err := brandInfo.Handle(ctx, testMsg("fetch Freakins info")); err != nil {
		t.Fatal(err)
	}
	resp, err := invoice.Handle(ctx, reply("now create a deposit invoice"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "Freakins") || !strings.Contains(resp.Text, "deposit amount") {
		t.Errorf("brand from the lookup should carry over to the invoice:\n%s", resp.Text)
	}
}

func TestInvoiceGeneratesWithoutBrandMaster(t *testing.T) {
	filler := &fakeFiller{}
	h := newTestInvoice(t, filler, &fakeReader{err: errors.New("quota exceeded")})
	ctx := context.Background()

	if _, err := h.Handle(ctx, testMsg("deposit invoice for Nobody Knows This Brand")); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Handle(ctx, reply("12000")); err != nil {
		t.Fatal(err)
	}
	resp, err := h.Handle(ctx, reply("#NK/DP/001"))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 {
		t.Fatalf("a sheet outage must not block the invoice, got %+v", resp)
	}
	if filler.fields["Brand_Name"] != "Nobody Knows This Brand" {
		t.Errorf("Brand_Name = %q", filler.fields["Brand_Name"])
	}
	if filler.fields["Address_Line1"] != "" || filler.fields["Email"] != "" {
		t.Errorf("contact details should be empty on a miss: %+v", filler.fields)
	}
}
