// Package router decides, for every inbound message, whether Sara should
// respond and which handler owns the response.
package router

import (
	"context"
	"log/slog"
	"strings"

	"sarabot/internal/domain"
	"sarabot/internal/handler"
	"sarabot/internal/history"
	"sarabot/internal/intent"
	"sarabot/internal/metrics"
)

// Router dispatches messages to intent handlers. Mid-flow replies and
// pending confirmations bypass classification entirely: a bare "50000" in
// an invoice thread is an answer, not an intent.
type Router struct {
	classifier *intent.Classifier

	agreement *handler.Agreement
	invoice   *handler.Invoice
	brand     *handler.BrandInfo
	sheets    *handler.Sheets
	email     *handler.Email
	help      *handler.Help

	history *history.Store
	logger  *slog.Logger
}

type Config struct {
	Classifier *intent.Classifier
	Agreement  *handler.Agreement
	Invoice    *handler.Invoice
	BrandInfo  *handler.BrandInfo
	Sheets     *handler.Sheets
	Email      *handler.Email
	Help       *handler.Help
	History    *history.Store
	Logger     *slog.Logger
}

func New(cfg Config) *Router {
	return &Router{
		classifier: cfg.Classifier,
		agreement:  cfg.Agreement,
		invoice:    cfg.Invoice,
		brand:      cfg.BrandInfo,
		sheets:     cfg.Sheets,
		email:      cfg.Email,
		help:       cfg.Help,
		history:    cfg.History,
		logger:     cfg.Logger,
	}
}

// Route processes one message. ok is false when Sara should stay silent
// (an unaddressed thread reply with nothing pending).
func (r *Router) Route(ctx context.Context, msg domain.MessageEvent) (resp handler.Response, ok bool) {
	metrics.MessagesTotal.Inc()

	// A panicking handler must not take the event loop down with it.
	defer func() {
		if p := recover(); p != nil {
			metrics.HandlerErrorsTotal.Inc()
			r.logger.Error("handler panicked", "thread", msg.ThreadID, "panic", p)
			resp = handler.Response{Text: handlerFailureText}
			ok = true
		}
	}()

	label, handled, deliver := r.dispatch(ctx, msg)
	if !deliver {
		return handler.Response{}, false
	}

	resp, err := handled()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		metrics.HandlerErrorsTotal.Inc()
		r.logger.Error("handler failed", "intent", string(label), "thread", msg.ThreadID, "error", err)
		resp = handler.Response{Text: handlerFailureText}
	}

	metrics.IntentTotal(string(label)).Inc()
	r.record(ctx, msg, label, outcome)
	metrics.RepliesTotal.Inc()
	return resp, true
}

const handlerFailureText = "Something went wrong on my end handling that. Please try again in a bit."

type handlerFunc func() (handler.Response, error)

// dispatch picks the handler. Priority: pending confirmations, then
// active flows, then intent classification; unaddressed replies that hit
// none of those are ignored.
func (r *Router) dispatch(ctx context.Context, msg domain.MessageEvent) (intent.Label, handlerFunc, bool) {
	switch {
	case r.email.AwaitingConfirmation(msg):
		return intent.SendEmail, func() (handler.Response, error) { return r.email.HandleConfirmation(ctx, msg) }, true
	case r.brand.AwaitingConfirmation(msg):
		return intent.BrandInfo, func() (handler.Response, error) { return r.brand.HandleConfirmation(ctx, msg) }, true
	case r.agreement.InFlow(msg):
		return intent.GenerateAgreement, func() (handler.Response, error) { return r.agreement.Handle(ctx, msg) }, true
	case r.invoice.InFlow(msg):
		return intent.GenerateInvoice, func() (handler.Response, error) { return r.invoice.Handle(ctx, msg) }, true
	}

	if msg.IsReply && !msg.Mentioned && !msg.ParentMentioned {
		r.logger.Debug("ignoring unaddressed thread reply", "thread", msg.ThreadID)
		return intent.Unknown, nil, false
	}

	// A thread reply rarely repeats the context; classify against the
	// parent message too so "and for Fae?" lands on the same intent.
	text := msg.Text
	if msg.IsReply && msg.ParentText != "" {
		text = msg.ParentText + "\n" + msg.Text
	}
	label := r.classifier.Classify(ctx, text)
	r.logger.Info("routing message", "intent", string(label), "thread", msg.ThreadID, "reply", msg.IsReply)

	switch label {
	case intent.GenerateAgreement:
		return label, func() (handler.Response, error) { return r.agreement.Handle(ctx, msg) }, true
	case intent.GenerateInvoice:
		return label, func() (handler.Response, error) { return r.invoice.Handle(ctx, msg) }, true
	case intent.BrandInfo:
		return label, func() (handler.Response, error) { return r.brand.Handle(ctx, msg) }, true
	case intent.LookupSheets:
		return label, func() (handler.Response, error) { return r.sheets.Handle(ctx, msg) }, true
	case intent.SendEmail:
		return label, func() (handler.Response, error) { return r.email.Handle(ctx, msg) }, true
	case intent.GetStatus:
		return label, func() (handler.Response, error) { return r.help.HandleStatus(ctx, msg) }, true
	case intent.ServiceStatus:
		return label, func() (handler.Response, error) { return r.help.HandleServiceStatus(ctx, msg) }, true
	case intent.Help:
		return label, func() (handler.Response, error) { return r.help.Handle(ctx, msg) }, true
	}
	return intent.Unknown, func() (handler.Response, error) { return handler.Unknown(), nil }, true
}

func (r *Router) record(ctx context.Context, msg domain.MessageEvent, label intent.Label, outcome string) {
	if r.history == nil {
		return
	}
	err := r.history.Record(ctx, history.Record{
		ChannelID: msg.ChannelID,
		ThreadID:  msg.ThreadID,
		SenderID:  msg.SenderID,
		Text:      strings.TrimSpace(msg.Text),
		Intent:    string(label),
		Outcome:   outcome,
	})
	if err != nil {
		r.logger.Warn("could not record message history", "error", err)
	}
}
