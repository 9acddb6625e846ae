package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"sarabot/internal/domain"
	"sarabot/internal/extract"
	"sarabot/internal/sheets"
	"sarabot/internal/state"
)

// BrandInfo answers "fetch <brand> info" queries from the brand master
// sheet. Near-miss matches go through a yes/no confirmation instead of
// silently guessing.
type BrandInfo struct {
	extractor     *extract.Extractor
	reader        sheets.Reader
	confirmations *state.Confirmations
	recentBrands  *state.BrandCache

	masterSheetID string
	masterRange   string
	logger        *slog.Logger
}

type BrandInfoConfig struct {
	Extractor     *extract.Extractor
	Reader        sheets.Reader
	Confirmations *state.Confirmations
	RecentBrands  *state.BrandCache
	MasterSheetID string
	MasterRange   string
	Logger        *slog.Logger
}

func NewBrandInfo(cfg BrandInfoConfig) *BrandInfo {
	return &BrandInfo{
		extractor:     cfg.Extractor,
		reader:        cfg.Reader,
		confirmations: cfg.Confirmations,
		recentBrands:  cfg.RecentBrands,
		masterSheetID: cfg.MasterSheetID,
		masterRange:   cfg.MasterRange,
		logger:        cfg.Logger,
	}
}

// AwaitingConfirmation reports whether this user has a "did you mean"
// question outstanding, so the router sends their reply here.
func (h *BrandInfo) AwaitingConfirmation(msg domain.MessageEvent) bool {
	return h.confirmations.HasBrand(msg.SenderID, msg.ThreadID)
}

func (h *BrandInfo) Handle(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	query := h.extractor.BrandName(ctx, msg.Text)
	if query == "" {
		return Response{Text: "Which brand do you want info about? Try something like `fetch Freakins info`."}, nil
	}
	return h.lookup(ctx, msg, query)
}

// HandleConfirmation resolves a pending "did you mean" reply.
func (h *BrandInfo) HandleConfirmation(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	pending := h.confirmations.TakeBrand(msg.SenderID, msg.ThreadID)
	if pending == nil {
		return Response{Text: "There's nothing waiting for confirmation right now."}, nil
	}
	if isAffirmative(msg.Text) {
		return h.lookup(ctx, msg, pending.Candidate)
	}
	return Response{Text: "No problem, ignoring that match. Give me the exact brand name and I'll try again."}, nil
}

func (h *BrandInfo) lookup(ctx context.Context, msg domain.MessageEvent, query string) (Response, error) {
	if h.reader == nil || h.masterSheetID == "" {
		return Response{Text: "The brand master sheet isn't configured, so I can't look brands up right now."}, nil
	}
	data, err := h.reader.Read(ctx, h.masterSheetID, h.masterRange)
	if err != nil {
		return Response{}, fmt.Errorf("read brand master: %w", err)
	}

	match, ok := sheets.BestMatch(query, sheets.BrandRows(data))
	if !ok || match.Ratio < sheets.MatchPossible {
		return Response{Text: fmt.Sprintf("I couldn't find *%s* in the brand master. Double-check the spelling?", query)}, nil
	}

	if match.Ratio < sheets.MatchConfident {
		h.confirmations.PutBrand(msg.SenderID, msg.ThreadID, &state.PendingBrand{
			Candidate: match.Brand.CompanyName,
			Ratio:     match.Ratio,
		})
		h.logger.Debug("brand match needs confirmation", "query", query, "candidate", match.Brand.CompanyName, "ratio", match.Ratio)
		return Response{Text: fmt.Sprintf("I couldn't find *%s*, but *%s* looks close. Did you mean that? (yes/no)", query, match.Brand.CompanyName)}, nil
	}

	if h.recentBrands != nil {
		// A deposit invoice started next in this thread reuses the brand.
		h.recentBrands.Put(msg.SenderID, msg.ThreadID, match.Brand.CompanyName)
	}
	return Response{Text: formatBrand(match.Brand)}, nil
}

func formatBrand(b domain.BrandData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", b.CompanyName)
	if b.Address != "" {
		fmt.Fprintf(&sb, "• Address: %s\n", b.Address)
	}
	if b.Phone != "" {
		fmt.Fprintf(&sb, "• Phone: %s\n", b.Phone)
	}
	if b.Email != "" {
		fmt.Fprintf(&sb, "• Email: %s\n", b.Email)
	}

	// Stable order for the sheet's extra columns.
	keys := make([]string, 0, len(b.Fields))
	for k := range b.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "• %s: %s\n", k, b.Fields[k])
	}
	return strings.TrimRight(sb.String(), "\n")
}

// isAffirmative recognizes the usual ways of saying yes in a thread.
func isAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, "!. ")
	switch t {
	case "yes", "y", "yeah", "yep", "yup", "sure", "correct", "right", "that's the one", "ok", "okay", "👍", ":thumbsup:":
		return true
	}
	return strings.HasPrefix(t, "yes,") || strings.HasPrefix(t, "yes ")
}
