package handler

import (
	"context"
	"strings"
	"testing"
	"time"

	"sarabot/internal/state"
)

func newTestBrandInfo(t *testing.T, reader *fakeReader) *BrandInfo {
	t.Helper()
	return NewBrandInfo(BrandInfoConfig{
		Extractor:     noLLMExtractor(),
		Reader:        reader,
		Confirmations: state.NewConfirmations(time.Minute),
		MasterSheetID: "sheet-1",
		MasterRange:   "Brand Master!A:Z",
		Logger:        testLogger(),
	})
}

func TestBrandInfoExactMatch(t *testing.T) {
	h := newTestBrandInfo(t, &fakeReader{data: brandMasterData()})

	resp, err := h.Handle(context.Background(), testMsg("fetch Freakins info"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"*Freakins*", "hello@freakins.com", "+91 98200 12345", "GST Number: 27AAACF1234A1Z5"} {
		if !strings.Contains(resp.Text, want) {
			t.Errorf("missing %q in:\n%s", want, resp.Text)
		}
	}
	if h.AwaitingConfirmation(testMsg("")) {
		t.Error("an exact hit should not leave a confirmation pending")
	}
}

func TestBrandInfoTypoAsksForConfirmation(t *testing.T) {
	h := newTestBrandInfo(t, &fakeReader{data: brandMasterData()})
	ctx := context.Background()

	resp, err := h.Handle(ctx, testMsg("fetch Freakens info"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "Did you mean") || !strings.Contains(resp.Text, "Freakins") {
		t.Fatalf("expected a did-you-mean prompt:\n%s", resp.Text)
	}
	if !h.AwaitingConfirmation(testMsg("")) {
		t.Fatal("confirmation should be pending")
	}

	resp, err = h.HandleConfirmation(ctx, reply("yes"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "*Freakins*") {
		t.Errorf("a yes should resolve to the brand info:\n%s", resp.Text)
	}
	if h.AwaitingConfirmation(testMsg("")) {
		t.Error("confirmation should be consumed")
	}
}

func TestBrandInfoDeclinedConfirmation(t *testing.T) {
	h := newTestBrandInfo(t, &fakeReader{data: brandMasterData()})
	ctx := context.Background()

	if _, err := h.Handle(ctx, testMsg("fetch Freakens info")); err != nil {
		t.Fatal(err)
	}
	resp, err := h.HandleConfirmation(ctx, reply("no"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "ignoring that match") {
		t.Errorf("a no should drop the match:\n%s", resp.Text)
	}
	if h.AwaitingConfirmation(testMsg("")) {
		t.Error("confirmation should be consumed either way")
	}
}

func TestBrandInfoNotFound(t *testing.T) {
	h := newTestBrandInfo(t, &fakeReader{data: brandMasterData()})

	resp, err := h.Handle(context.Background(), testMsg("fetch Zzzqqq info"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "couldn't find") {
		t.Errorf("expected a not-found reply:\n%s", resp.Text)
	}
	if h.AwaitingConfirmation(testMsg("")) {
		t.Error("a clear miss should not ask for confirmation")
	}
}

func TestBrandInfoNoQueryGivesUsageHint(t *testing.T) {
	h := newTestBrandInfo(t, &fakeReader{data: brandMasterData()})

	resp, err := h.Handle(context.Background(), testMsg("brand please"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "fetch Freakins info") {
		t.Errorf("expected a usage hint:\n%s", resp.Text)
	}
}

func TestBrandInfoWithoutReader(t *testing.T) {
	h := NewBrandInfo(BrandInfoConfig{
		Extractor:     noLLMExtractor(),
		Confirmations: state.NewConfirmations(time.Minute),
		Logger:        testLogger(),
	})

	resp, err := h.Handle(context.Background(), testMsg("fetch Freakins info"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "isn't configured") {
		t.Errorf("expected the unconfigured notice:\n%s", resp.Text)
	}
}
