package handler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"sarabot/internal/domain"
	"sarabot/internal/metrics"
	"sarabot/internal/sheets"
)

// Sheets answers spreadsheet questions. Payment queries always come off
// the balances sheet; everything else reads the brand master unless the
// message carries its own sheet link.
type Sheets struct {
	service *sheets.Service
	reader  sheets.Reader

	isPayment func(string) bool

	masterSheetID   string
	masterRange     string
	balancesSheetID string
	balancesRange   string
	logger          *slog.Logger
}

type SheetsConfig struct {
	Service         *sheets.Service
	Reader          sheets.Reader
	IsPayment       func(string) bool
	MasterSheetID   string
	MasterRange     string
	BalancesSheetID string
	BalancesRange   string
	Logger          *slog.Logger
}

func NewSheets(cfg SheetsConfig) *Sheets {
	return &Sheets{
		service:         cfg.Service,
		reader:          cfg.Reader,
		isPayment:       cfg.IsPayment,
		masterSheetID:   cfg.MasterSheetID,
		masterRange:     cfg.MasterRange,
		balancesSheetID: cfg.BalancesSheetID,
		balancesRange:   cfg.BalancesRange,
		logger:          cfg.Logger,
	}
}

var (
	countPattern  = regexp.MustCompile(`(?i)\b(?:how many|count of|number of)\b`)
	searchPattern = regexp.MustCompile(`(?i)\b(?:search|look)\s+for\s+"?([\w @.&'-]+?)"?\s*(?:\?|\.|$|\bin\b)`)
)

func (h *Sheets) Handle(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	start := time.Now()
	defer func() { metrics.SheetsLatency.Observe(time.Since(start).Seconds()) }()

	if h.reader == nil {
		return Response{Text: "Google Sheets access isn't configured, so I can't answer data questions right now."}, nil
	}

	if h.isPayment != nil && h.isPayment(msg.Text) {
		data, err := h.reader.Read(ctx, h.balancesSheetID, h.balancesRange)
		if err != nil {
			return Response{}, fmt.Errorf("read balances sheet: %w", err)
		}
		return Response{Text: h.service.PaymentReport(data)}, nil
	}

	sheetID, readRange := h.masterSheetID, h.masterRange
	if linked := sheets.SheetIDFromText(msg.Text); linked != "" {
		sheetID, readRange = linked, "A:Z"
	}
	data, err := h.reader.Read(ctx, sheetID, readRange)
	if err != nil {
		return Response{}, fmt.Errorf("read sheet %s: %w", sheetID, err)
	}

	if countPattern.MatchString(msg.Text) {
		return Response{Text: h.service.CountBrands(data)}, nil
	}
	if m := searchPattern.FindStringSubmatch(msg.Text); m != nil {
		return Response{Text: h.service.Search(data, strings.TrimSpace(m[1]))}, nil
	}

	answer, err := h.service.Analyze(ctx, data, msg.Text)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: answer}, nil
}
