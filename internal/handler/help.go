package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"sarabot/internal/domain"
	"sarabot/internal/history"
	"sarabot/internal/state"
)

const helpText = `Hi! I'm Sara. Here's what I can do:

• *Partnership agreements* — "Generate an agreement for Freakins" (I'll ask for anything missing)
• *Deposit invoices* — "Create a deposit invoice for Fae"
• *Brand info* — "Fetch Freakins info" (typos are fine, I'll double-check)
• *Spreadsheet questions* — "Who hasn't paid?", "How many brands are listed?", or paste a sheet link
• *Email* — "Send an email to priya@freakins.com about the pending payment" (I always show a draft first)

Mention me to start, then just reply in the thread.`

// Help answers capability questions and status checks.
type Help struct {
	states    *state.Store
	history   *history.Store
	service   func(ctx context.Context) string
	statusDoc func(ctx context.Context) (string, error)
	logger    *slog.Logger
}

type HelpConfig struct {
	States  *state.Store
	History *history.Store
	Service func(ctx context.Context) string
	// StatusDoc reads the shared status document. Nil when Google Docs
	// access is not configured.
	StatusDoc func(ctx context.Context) (string, error)
	Logger    *slog.Logger
}

func NewHelp(cfg HelpConfig) *Help {
	return &Help{
		states:    cfg.States,
		history:   cfg.History,
		service:   cfg.Service,
		statusDoc: cfg.StatusDoc,
		logger:    cfg.Logger,
	}
}

func (h *Help) Handle(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	return Response{Text: helpText}, nil
}

// HandleStatus reports the team's shared status document. When the doc
// cannot be read the reply degrades to a local activity summary rather
// than failing the request.
func (h *Help) HandleStatus(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	var sb strings.Builder

	if h.statusDoc == nil {
		sb.WriteString("Google Docs access isn't configured, so I can't read the status doc. Here's what I know locally:\n\n")
	} else {
		text, err := h.statusDoc(ctx)
		if err != nil {
			h.logger.Warn("could not read status doc", "error", err)
			sb.WriteString("I couldn't read the status document right now. Here's what I know locally:\n\n")
		} else if text != "" {
			return Response{Text: text}, nil
		} else {
			sb.WriteString("The status document is empty. Here's what I know locally:\n\n")
		}
	}

	sb.WriteString("*Current status*\n")
	fmt.Fprintf(&sb, "• Active flows: %d\n", h.states.Len())

	if h.history != nil {
		counts, err := h.history.IntentCounts(ctx)
		if err != nil {
			h.logger.Warn("could not read intent counts", "error", err)
		} else if len(counts) > 0 {
			intents := make([]string, 0, len(counts))
			for intent := range counts {
				intents = append(intents, intent)
			}
			sort.Strings(intents)
			sb.WriteString("• Requests handled so far:\n")
			for _, intent := range intents {
				fmt.Fprintf(&sb, "    - %s: %d\n", intent, counts[intent])
			}
		}
	}
	return Response{Text: strings.TrimRight(sb.String(), "\n")}, nil
}

// HandleServiceStatus reports the health of everything Sara depends on.
func (h *Help) HandleServiceStatus(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	if h.service == nil {
		return Response{Text: "Service checks aren't configured."}, nil
	}
	return Response{Text: h.service(ctx)}, nil
}

// Unknown is the catch-all reply when no intent matched.
func Unknown() Response {
	return Response{Text: "I'm not sure what you need there. Try *help* to see what I can do."}
}
