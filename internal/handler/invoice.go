package handler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sarabot/internal/doctmpl"
	"sarabot/internal/domain"
	"sarabot/internal/extract"
	"sarabot/internal/metrics"
	"sarabot/internal/sheets"
	"sarabot/internal/state"
	"sarabot/internal/textutil"
)

// Invoice flow stages, in the order the questions get asked.
const (
	stageAwaitingBrand  = "awaiting_brand"
	stageAwaitingAmount = "awaiting_amount"
	stageAwaitingNumber = "awaiting_invoice_number"
)

// Invoice runs the deposit invoice flow: brand, amount, and invoice number
// collected one question at a time, contact details pulled from the brand
// master, then the invoice template rendered and shared.
type Invoice struct {
	extractor    *extract.Extractor
	states       *state.Store
	reader       sheets.Reader
	filler       doctmpl.Filler
	pdf          doctmpl.PDFExporter
	recentBrands *state.BrandCache

	masterSheetID string
	masterRange   string
	templatePath  string
	outputDir     string
	now           func() time.Time
	logger        *slog.Logger
}

type InvoiceConfig struct {
	Extractor     *extract.Extractor
	States        *state.Store
	Reader        sheets.Reader
	Filler        doctmpl.Filler
	PDF           doctmpl.PDFExporter
	RecentBrands  *state.BrandCache
	MasterSheetID string
	MasterRange   string
	TemplatePath  string
	OutputDir     string
	Now           func() time.Time
	Logger        *slog.Logger
}

func NewInvoice(cfg InvoiceConfig) *Invoice {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Invoice{
		extractor:     cfg.Extractor,
		states:        cfg.States,
		reader:        cfg.Reader,
		filler:        cfg.Filler,
		pdf:           cfg.PDF,
		recentBrands:  cfg.RecentBrands,
		masterSheetID: cfg.MasterSheetID,
		masterRange:   cfg.MasterRange,
		templatePath:  cfg.TemplatePath,
		outputDir:     cfg.OutputDir,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}
}

func (h *Invoice) InFlow(msg domain.MessageEvent) bool {
	return h.states.InFlow(StateKey(msg), state.FlowInvoice)
}

func (h *Invoice) Handle(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	key := StateKey(msg)

	if h.states.InFlow(key, state.FlowInvoice) {
		if resp, done := h.consumeReply(key, msg.Text); !done {
			return resp, nil
		}
	} else {
		fields := h.extractor.Invoice(ctx, msg.Text)
		if fields["brand_name"] == "" && h.recentBrands != nil {
			// Brand looked up in this thread just before carries over.
			fields["brand_name"] = h.recentBrands.Get(msg.SenderID, msg.ThreadID)
		}
		h.states.Begin(key, state.FlowInvoice, "", nonEmpty(fields))
		metrics.ActiveFlows.Inc()
	}

	entry := h.states.Get(key)
	if resp, ok := h.nextQuestion(key, entry.Fields); ok {
		return resp, nil
	}

	resp, err := h.generate(ctx, entry.Fields)
	if err != nil {
		return Response{}, err
	}
	h.states.End(key)
	metrics.ActiveFlows.Dec()
	return resp, nil
}

// consumeReply interprets a mid-flow reply according to the question that
// was asked. Returns done=false with a reprompt when the reply does not
// answer it.
func (h *Invoice) consumeReply(key, text string) (Response, bool) {
	entry := h.states.Get(key)
	switch entry.Stage {
	case stageAwaitingBrand:
		name := strings.TrimSpace(text)
		if name == "" {
			return Response{Text: "Which brand is this invoice for?"}, false
		}
		h.states.Advance(key, "", map[string]string{"brand_name": name})
	case stageAwaitingAmount:
		amount := extract.Amount(text)
		if amount == "" {
			return Response{Text: "I couldn't read an amount there. What's the deposit amount? (e.g. 50000 or ₹50,000)"}, false
		}
		h.states.Advance(key, "", map[string]string{"deposit_amount": amount})
	case stageAwaitingNumber:
		number := extract.InvoiceNumber(text)
		if number == "" {
			return Response{Text: "That doesn't look like an invoice number. Try something like FRK/DP/001 or INV-1042."}, false
		}
		h.states.Advance(key, "", map[string]string{"invoice_number": number})
	}
	return Response{}, true
}

// nextQuestion asks for the first still-missing field and parks the flow
// on the matching stage.
func (h *Invoice) nextQuestion(key string, fields map[string]string) (Response, bool) {
	switch {
	case fields["brand_name"] == "":
		h.states.Advance(key, stageAwaitingBrand, nil)
		return Response{Text: "Sure! Which brand is this deposit invoice for?"}, true
	case fields["deposit_amount"] == "":
		h.states.Advance(key, stageAwaitingAmount, nil)
		return Response{Text: fmt.Sprintf("Creating a deposit invoice for *%s*. What's the deposit amount?", fields["brand_name"])}, true
	case fields["invoice_number"] == "":
		h.states.Advance(key, stageAwaitingNumber, nil)
		return Response{Text: "And what invoice number should I use? (e.g. FRK/DP/001)"}, true
	}
	return Response{}, false
}

func (h *Invoice) generate(ctx context.Context, fields map[string]string) (Response, error) {
	brandName := fields["brand_name"]
	brand := h.lookupBrand(ctx, brandName)

	amount := textutil.FormatCurrency(fields["deposit_amount"])
	invoiceDate, dueDate := extract.InvoiceDates(h.now())
	addr := extract.ParseAddress(brand.Address)

	rendered := map[string]string{
		"Invoice_Number": fields["invoice_number"],
		"Invoice_Date":   invoiceDate,
		"Due_Date":       dueDate,
		"Brand_Name":     brand.CompanyName,
		"Address_Line1":  addr.Line1,
		"Address_Line2":  addr.Line2,
		"City":           addr.City,
		"State":          addr.State,
		"Pincode":        addr.Pincode,
		"Phone":          brand.Phone,
		"Email":          brand.Email,
		"Deposit_Amount": amount,
		"Sub_Total":      amount,
		"Amount_Due":     amount,
	}

	docxPath := filepath.Join(h.outputDir, textutil.Slug(brandName)+"_deposit_invoice.docx")
	if err := h.filler.Fill(h.templatePath, docxPath, rendered); err != nil {
		return Response{}, fmt.Errorf("fill invoice template: %w", err)
	}
	metrics.DocumentsTotal.Inc()

	sharePath := docxPath
	comment := fmt.Sprintf("Deposit invoice %s for %s, due %s.", fields["invoice_number"], brandName, dueDate)
	if h.pdf != nil {
		if pdfPath, err := h.pdf.Export(ctx, docxPath); err != nil {
			h.logger.Warn("pdf export failed, sharing docx", "error", err)
			comment += " (PDF conversion was unavailable, sharing the Word document.)"
		} else {
			sharePath = pdfPath
		}
	}

	return Response{
		Text: fmt.Sprintf("Deposit invoice *%s* for *%s* (%s) is ready! :receipt:",
			fields["invoice_number"], brandName, amount),
		Files: []domain.FileUpload{{
			Path:    sharePath,
			Title:   brandName + " Deposit Invoice " + fields["invoice_number"],
			Comment: comment,
		}},
	}, nil
}

// lookupBrand pulls contact details from the brand master. A miss is not
// fatal: the invoice still renders, just without address details.
func (h *Invoice) lookupBrand(ctx context.Context, name string) domain.BrandData {
	fallback := domain.BrandData{CompanyName: name}
	if h.reader == nil || h.masterSheetID == "" {
		return fallback
	}
	data, err := h.reader.Read(ctx, h.masterSheetID, h.masterRange)
	if err != nil {
		h.logger.Warn("brand master unavailable for invoice", "error", err)
		return fallback
	}
	match, ok := sheets.BestMatch(name, sheets.BrandRows(data))
	if !ok || match.Ratio < sheets.MatchPossible {
		h.logger.Info("brand not found in master, invoicing without contact details",
			"brand", name, "ratio", strconv.FormatFloat(match.Ratio, 'f', 2, 64))
		return fallback
	}
	return match.Brand
}
