package state

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"sarabot/internal/domain"
	"sarabot/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_BeginGetEnd(t *testing.T) {
	s := NewStore(time.Minute, testLogger())

	s.Begin("t1", FlowInvoice, "awaiting_amount", map[string]string{"brand_name": "Freakins"})

	e := s.Get("t1")
	if e == nil {
		t.Fatal("expected entry after Begin")
	}
	if e.Flow != FlowInvoice || e.Stage != "awaiting_amount" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Fields["brand_name"] != "Freakins" {
		t.Fatalf("fields not stored: %v", e.Fields)
	}

	s.End("t1")
	if s.Get("t1") != nil {
		t.Fatal("expected nil after End")
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(time.Minute, testLogger())
	s.Begin("t1", FlowAgreement, "awaiting_details", nil)

	e := s.Get("t1")
	e.Fields["deposit"] = "10000"

	if got := s.Get("t1"); got.Fields["deposit"] != "" {
		t.Fatal("mutating a returned entry leaked into the store")
	}
}

func TestStore_AdvanceMergesFields(t *testing.T) {
	s := NewStore(time.Minute, testLogger())
	s.Begin("t1", FlowInvoice, "awaiting_amount", map[string]string{"brand_name": "FAE"})

	s.Advance("t1", "awaiting_invoice_number", map[string]string{"deposit_amount": "50000"})

	e := s.Get("t1")
	if e.Stage != "awaiting_invoice_number" {
		t.Fatalf("stage = %q", e.Stage)
	}
	if e.Fields["brand_name"] != "FAE" || e.Fields["deposit_amount"] != "50000" {
		t.Fatalf("fields not merged: %v", e.Fields)
	}
}

func TestStore_BeginDifferentFlowReplaces(t *testing.T) {
	s := NewStore(time.Minute, testLogger())
	s.Begin("t1", FlowAgreement, "awaiting_details", map[string]string{"brand_name": "FAE"})
	s.Begin("t1", FlowInvoice, "awaiting_amount", nil)

	e := s.Get("t1")
	if e.Flow != FlowInvoice {
		t.Fatalf("flow = %q, want invoice", e.Flow)
	}
	if _, ok := e.Fields["brand_name"]; ok {
		t.Fatal("old flow's fields survived the replace")
	}
}

func TestStore_InFlow(t *testing.T) {
	s := NewStore(time.Minute, testLogger())
	if s.InFlow("t1", FlowInvoice) {
		t.Fatal("empty store reports active flow")
	}
	s.Begin("t1", FlowInvoice, "awaiting_amount", nil)
	if !s.InFlow("t1", FlowInvoice) {
		t.Fatal("expected invoice flow")
	}
	if s.InFlow("t1", FlowAgreement) {
		t.Fatal("wrong flow type matched")
	}
}

func TestStore_Reap(t *testing.T) {
	s := NewStore(10*time.Millisecond, testLogger())
	s.Begin("old", FlowInvoice, "awaiting_amount", nil)
	time.Sleep(20 * time.Millisecond)
	s.Begin("fresh", FlowInvoice, "awaiting_amount", nil)

	if n := s.Reap(); n != 1 {
		t.Fatalf("reaped %d entries, want 1", n)
	}
	if s.Get("old") != nil {
		t.Fatal("expired entry survived reap")
	}
	if s.Get("fresh") == nil {
		t.Fatal("fresh entry was reaped")
	}
}

func TestStore_ReapSettlesActiveFlowGauge(t *testing.T) {
	s := NewStore(10*time.Millisecond, testLogger())

	before := metrics.ActiveFlows.Value()
	metrics.ActiveFlows.Inc()
	s.Begin("abandoned", FlowAgreement, "awaiting_details", nil)
	time.Sleep(20 * time.Millisecond)

	if n := s.Reap(); n != 1 {
		t.Fatalf("reaped %d entries, want 1", n)
	}
	if got := metrics.ActiveFlows.Value(); got != before {
		t.Errorf("gauge = %v after reap, want %v", got, before)
	}
}

func TestStore_SetBrandData(t *testing.T) {
	s := NewStore(time.Minute, testLogger())
	s.Begin("t1", FlowInvoice, "awaiting_amount", nil)
	s.SetBrandData("t1", &domain.BrandData{CompanyName: "Freakins"})

	e := s.Get("t1")
	if e.BrandData == nil || e.BrandData.CompanyName != "Freakins" {
		t.Fatalf("brand data not attached: %+v", e.BrandData)
	}
}

func TestConfirmations_EmailLifecycle(t *testing.T) {
	c := NewConfirmations(time.Minute)

	c.PutEmail("u1", "t1", &PendingEmail{Recipients: []string{"a@b.com"}, Subject: "hi"})

	if !c.HasEmail("u1", "t1") {
		t.Fatal("expected pending email")
	}
	if c.HasEmail("u2", "t1") {
		t.Fatal("pending email visible to another sender")
	}

	draft := c.TakeEmail("u1", "t1")
	if draft == nil || draft.Subject != "hi" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if c.TakeEmail("u1", "t1") != nil {
		t.Fatal("draft not consumed by Take")
	}
}

func TestConfirmations_BrandLifecycle(t *testing.T) {
	c := NewConfirmations(time.Minute)
	c.PutBrand("u1", "t1", &PendingBrand{Candidate: "Freakins", Ratio: 0.8})

	if c.TakeEmail("u1", "t1") != nil {
		t.Fatal("brand confirmation surfaced as email")
	}
	pb := c.TakeBrand("u1", "t1")
	if pb == nil || pb.Candidate != "Freakins" {
		t.Fatalf("unexpected pending brand: %+v", pb)
	}
}
