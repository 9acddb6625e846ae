package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecentByThread(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i, text := range []string{"generate agreement", "50000", "FRK/DP/001"} {
		err := s.Record(ctx, Record{
			ChannelID: "C1",
			ThreadID:  "T1",
			SenderID:  "U1",
			Text:      text,
			Intent:    "generate_deposit_invoice",
			Outcome:   "ok",
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := s.Record(ctx, Record{ChannelID: "C1", ThreadID: "T2", SenderID: "U2", Text: "help", Intent: "help", Outcome: "ok"}); err != nil {
		t.Fatal(err)
	}

	records, err := s.RecentByThread(ctx, "T1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Text != "FRK/DP/001" {
		t.Errorf("first record = %q", records[0].Text)
	}
	if records[0].Intent != "generate_deposit_invoice" {
		t.Errorf("intent = %q", records[0].Intent)
	}
}

func TestIntentCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, intent := range []string{"help", "help", "brand_info"} {
		if err := s.Record(ctx, Record{ChannelID: "C", ThreadID: "T", SenderID: "U", Text: "x", Intent: intent, Outcome: "ok"}); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := s.IntentCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["help"] != 2 || counts["brand_info"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestPurge(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, Record{ChannelID: "C", ThreadID: "T", SenderID: "U", Text: "old", Intent: "help", Outcome: "ok"}); err != nil {
		t.Fatal(err)
	}

	// Nothing is older than a day yet.
	n, err := s.Purge(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d, want 0", n)
	}

	// A zero retention window removes everything.
	n, err = s.Purge(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
}
