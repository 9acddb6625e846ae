package handler

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"sarabot/internal/domain"
	"sarabot/internal/extract"
	"sarabot/internal/mailer"
	"sarabot/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStates(t *testing.T) *state.Store {
	t.Helper()
	return state.NewStore(time.Minute, testLogger())
}

func testMsg(text string) domain.MessageEvent {
	return domain.MessageEvent{
		Text:      text,
		ThreadID:  "1700000000.000100",
		ChannelID: "C123",
		SenderID:  "U123",
		Mentioned: true,
	}
}

func reply(text string) domain.MessageEvent {
	m := testMsg(text)
	m.IsReply = true
	m.Mentioned = false
	return m
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return f.reply, f.err
}
func (f *fakeLLM) Name() string                      { return "fake" }
func (f *fakeLLM) Healthy(ctx context.Context) error { return f.err }

type fakeReader struct {
	data *domain.SheetData
	err  error
}

func (f *fakeReader) Read(ctx context.Context, sheetID, readRange string) (*domain.SheetData, error) {
	return f.data, f.err
}

type fakeFiller struct {
	template string
	output   string
	fields   map[string]string
	err      error
}

func (f *fakeFiller) Fill(templatePath, outputPath string, fields map[string]string) error {
	f.template, f.output, f.fields = templatePath, outputPath, fields
	return f.err
}

type fakeMailer struct {
	sent []mailer.Email
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, email mailer.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func noLLMExtractor() *extract.Extractor {
	return extract.New(nil, testLogger())
}

func brandMasterData() *domain.SheetData {
	return &domain.SheetData{
		Headers: []string{"Brand Name", "Address", "Phone", "Email", "GST Number"},
		Rows: [][]string{
			{"Freakins", "Unit 4, Sun Mill Compound, Lower Parel, Mumbai, Maharashtra - 400013", "+91 98200 12345", "hello@freakins.com", "27AAACF1234A1Z5"},
			{"Yama Yoga", "Indiranagar, Bangalore, Karnataka - 560038", "", "om@yamayoga.in", ""},
			{"Fae", "Bandra West, Mumbai, Maharashtra - 400050", "", "care@fae.in", ""},
		},
	}
}
