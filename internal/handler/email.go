package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sarabot/internal/domain"
	"sarabot/internal/extract"
	"sarabot/internal/mailer"
	"sarabot/internal/metrics"
	"sarabot/internal/state"
)

// Email composes outbound mail and holds it for an explicit send or
// cancel. Nothing leaves the building without a confirmation reply.
type Email struct {
	extractor     *extract.Extractor
	llm           domain.LLM
	mailer        mailer.Mailer
	confirmations *state.Confirmations

	senderName string
	logger     *slog.Logger
}

type EmailConfig struct {
	Extractor     *extract.Extractor
	LLM           domain.LLM
	Mailer        mailer.Mailer
	Confirmations *state.Confirmations
	SenderName    string
	Logger        *slog.Logger
}

func NewEmail(cfg EmailConfig) *Email {
	return &Email{
		extractor:     cfg.Extractor,
		llm:           cfg.LLM,
		mailer:        cfg.Mailer,
		confirmations: cfg.Confirmations,
		senderName:    cfg.SenderName,
		logger:        cfg.Logger,
	}
}

// AwaitingConfirmation reports whether this user has a draft pending, so
// the router sends their next reply to HandleConfirmation.
func (h *Email) AwaitingConfirmation(msg domain.MessageEvent) bool {
	return h.confirmations.HasEmail(msg.SenderID, msg.ThreadID)
}

func (h *Email) Handle(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	if h.mailer == nil {
		return Response{Text: "Email isn't configured on my end, so I can't send anything right now."}, nil
	}
	details := h.extractor.Email(ctx, msg.Text)
	if len(details.Recipients) == 0 {
		return Response{Text: "Who should I send this to? I need at least one email address."}, nil
	}

	subject, body, err := h.compose(ctx, details)
	if err != nil {
		return Response{}, err
	}

	h.confirmations.PutEmail(msg.SenderID, msg.ThreadID, &state.PendingEmail{
		Recipients: details.Recipients,
		Subject:    subject,
		Body:       body,
	})

	var sb strings.Builder
	sb.WriteString("Here's the draft:\n\n")
	fmt.Fprintf(&sb, "*To:* %s\n", strings.Join(details.Recipients, ", "))
	fmt.Fprintf(&sb, "*Subject:* %s\n\n", subject)
	fmt.Fprintf(&sb, "```%s```\n\n", body)
	sb.WriteString("Reply *send* to send it, or *cancel* to drop it.")
	return Response{Text: sb.String()}, nil
}

// HandleConfirmation resolves a pending draft. Anything that is neither a
// send nor a cancel phrase leaves the draft pending and says so.
func (h *Email) HandleConfirmation(ctx context.Context, msg domain.MessageEvent) (Response, error) {
	switch {
	case isSendPhrase(msg.Text):
		draft := h.confirmations.TakeEmail(msg.SenderID, msg.ThreadID)
		if draft == nil {
			return Response{Text: "There's no draft waiting to be sent."}, nil
		}
		err := h.mailer.Send(ctx, mailer.Email{
			To:      draft.Recipients,
			Subject: draft.Subject,
			Body:    draft.Body,
		})
		if err != nil {
			// Draft is gone; make the user restate rather than retry a
			// possibly half-delivered message.
			return Response{}, fmt.Errorf("send email: %w", err)
		}
		metrics.EmailsSentTotal.Inc()
		return Response{Text: fmt.Sprintf("Sent! :email: %s will get it shortly (you're CC'd).", strings.Join(draft.Recipients, ", "))}, nil

	case isCancelPhrase(msg.Text):
		h.confirmations.TakeEmail(msg.SenderID, msg.ThreadID)
		return Response{Text: "Cancelled. The draft is gone."}, nil
	}

	return Response{Text: "The draft is still waiting. Reply *send* to send it or *cancel* to drop it."}, nil
}

const composeSystemPrompt = `You are Sara, a business assistant writing an
email on behalf of your team. Write a short professional email for the
given purpose. Return ONLY a JSON object with keys "subject" and "body".
The body is plain text, greets the recipient by name when one is given,
and signs off as %s.`

func (h *Email) compose(ctx context.Context, details *extract.EmailDetails) (subject, body string, err error) {
	if details.Verbatim && details.Body != "" {
		subject = details.Subject
		if subject == "" {
			subject = "Message from " + h.senderName
		}
		return subject, details.Body, nil
	}

	prompt := "Purpose: " + details.Purpose
	if len(details.Names) > 0 {
		prompt += "\nRecipient names: " + strings.Join(details.Names, ", ")
	}
	if details.Subject != "" {
		prompt += "\nUse this subject: " + details.Subject
	}

	raw, err := h.llm.Complete(ctx, fmt.Sprintf(composeSystemPrompt, h.senderName), prompt)
	if err != nil {
		return "", "", fmt.Errorf("compose email: %w", err)
	}
	parsed, ok := extract.ComposedEmail(raw)
	if !ok {
		h.logger.Warn("email composition returned no JSON, using raw text")
		subject = details.Subject
		if subject == "" {
			subject = "Message from " + h.senderName
		}
		return subject, strings.TrimSpace(raw), nil
	}
	if details.Subject != "" {
		parsed.Subject = details.Subject
	}
	return parsed.Subject, parsed.Body, nil
}

// Send phrases from the confirmation prompt plus the obvious variants.
func isSendPhrase(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimPrefix(t, "✅")
	t = strings.TrimSpace(strings.Trim(t, "!. "))
	switch t {
	case "send", "send it", "yes send", "yes, send", "yes send it", "yes, send it", "go ahead", "ship it":
		return true
	}
	return false
}

func isCancelPhrase(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimPrefix(t, "❌")
	t = strings.TrimSpace(strings.Trim(t, "!. "))
	switch t {
	case "cancel", "no", "don't send", "dont send", "do not send", "drop it", "discard", "stop":
		return true
	}
	return false
}
