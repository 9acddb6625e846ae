package handler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"sarabot/internal/doctmpl"
	"sarabot/internal/domain"
	"sarabot/internal/extract"
	"sarabot/internal/metrics"
	"sarabot/internal/state"
	"sarabot/internal/textutil"
)

// Agreement runs the partnership agreement flow: collect the required
// fields across as many turns as it takes, then render the template and
// share the document.
type Agreement struct {
	extractor *extract.Extractor
	states    *state.Store
	filler    doctmpl.Filler
	pdf       doctmpl.PDFExporter

	templatePath string
	outputDir    string
	logger       *slog.Logger
}

type AgreementConfig struct {
	Extractor    *extract.Extractor
	States       *state.Store
	Filler       doctmpl.Filler
	PDF          doctmpl.PDFExporter
	TemplatePath string
	OutputDir    string
	Logger       *slog.Logger
}

func NewAgreement(cfg AgreementConfig) *Agreement {
	return &Agreement{
		extractor:    cfg.Extractor,
		states:       cfg.States,
		filler:       cfg.Filler,
		pdf:          cfg.PDF,
		templatePath: cfg.TemplatePath,
		outputDir:    cfg.OutputDir,
		logger:       cfg.Logger,
	}
}

// InFlow reports whether this user and thread have an agreement in
// progress, so the router can bypass intent classification on replies.
func (h *Agreement) InFlow(msg domain.MessageEvent) bool {
	return h.states.InFlow(StateKey(msg), state.FlowAgreement)
}

func (h *Agreement) Handle(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	key := StateKey(msg)
	extracted := h.extractor.Agreement(ctx, msg.Text)

	if h.states.InFlow(key, state.FlowAgreement) {
		h.states.Advance(key, "collecting", nonEmpty(extracted))
	} else {
		h.states.Begin(key, state.FlowAgreement, "collecting", nonEmpty(extracted))
		metrics.ActiveFlows.Inc()
	}

	entry := h.states.Get(key)
	missing := extract.Fields(entry.Fields).Missing(extract.AgreementRequired)
	if len(missing) > 0 {
		names := promptNames(missing)
		h.logger.Debug("agreement fields still missing", "thread", msg.ThreadID, "missing", names)
		return Response{Text: fmt.Sprintf(
			"Got it! To generate the agreement I still need:\n• %s\nJust reply in this thread with the details.",
			strings.Join(names, "\n• "))}, nil
	}

	resp, err := h.generate(ctx, entry.Fields)
	if err != nil {
		return Response{}, err
	}
	h.states.End(key)
	metrics.ActiveFlows.Dec()
	return resp, nil
}

func (h *Agreement) generate(ctx context.Context, fields map[string]string) (Response, error) {
	brand := fields["brand_name"]

	rendered := map[string]string{
		"brand_name":       brand,
		"company_name":     strings.ToUpper(fields["company_name"]),
		"company_address":  fields["company_address"],
		"industry":         fields["industry"],
		"flat_fee":         textutil.FormatCurrency(fields["flat_fee"]),
		"deposit":          textutil.FormatCurrency(fields["deposit"]),
		"deposit_in_words": fields["deposit_in_words"],
	}

	docxPath := filepath.Join(h.outputDir, textutil.Slug(brand)+"_partnership_agreement.docx")
	if err := h.filler.Fill(h.templatePath, docxPath, rendered); err != nil {
		return Response{}, fmt.Errorf("fill agreement template: %w", err)
	}
	metrics.DocumentsTotal.Inc()

	sharePath := docxPath
	comment := "Here's the partnership agreement for " + brand + "."
	if h.pdf != nil {
		if pdfPath, err := h.pdf.Export(ctx, docxPath); err != nil {
			h.logger.Warn("pdf export failed, sharing docx", "error", err)
			comment += " (PDF conversion was unavailable, sharing the Word document.)"
		} else {
			sharePath = pdfPath
		}
	}

	return Response{
		Text: fmt.Sprintf("Partnership agreement for *%s* is ready! :page_facing_up:", brand),
		Files: []domain.FileUpload{{
			Path:    sharePath,
			Title:   brand + " Partnership Agreement",
			Comment: comment,
		}},
	}, nil
}
