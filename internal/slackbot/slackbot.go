// Package slackbot is the Slack Socket Mode transport. It normalizes
// mentions and thread replies into MessageEvents, hands them to the
// router, and posts whatever comes back into the same thread.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"sarabot/internal/domain"
	"sarabot/internal/handler"
	"sarabot/internal/textutil"
)

// Slack caps chat messages around 4000 characters.
const maxMessageLen = 4000

// MessageRouter decides whether and how to respond to one message.
type MessageRouter interface {
	Route(ctx context.Context, msg domain.MessageEvent) (handler.Response, bool)
}

type Bot struct {
	api    *slack.Client
	sm     *socketmode.Client
	router MessageRouter
	botUID string
	logger *slog.Logger

	// Events for the same thread must be routed in order; a flow answer
	// racing its own prompt would corrupt the flow state.
	threadLocks sync.Map
}

func New(botToken, appToken string, router MessageRouter, logger *slog.Logger) *Bot {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)
	return &Bot{
		api:    api,
		sm:     socketmode.New(api),
		router: router,
		logger: logger,
	}
}

// Run connects and processes events until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	auth, err := b.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	b.botUID = auth.UserID
	b.logger.Info("slack connected", "bot_user", auth.User, "bot_uid", b.botUID)

	go func() {
		if err := b.sm.RunContext(ctx); err != nil && ctx.Err() == nil {
			b.logger.Error("socket mode stopped", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-b.sm.Events:
			if !ok {
				return nil
			}
			b.handleSocketEvent(ctx, evt)
		}
	}
}

func (b *Bot) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("connecting to slack")
	case socketmode.EventTypeConnectionError:
		b.logger.Warn("slack connection error, retrying")
	case socketmode.EventTypeConnected:
		b.logger.Info("slack socket connected")
	case socketmode.EventTypeEventsAPI:
		// Ack before processing so Slack does not redeliver while a
		// handler is busy generating a document.
		if evt.Request != nil {
			b.sm.Ack(*evt.Request)
		}
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		b.handleEventsAPI(ctx, apiEvent)
	}
}

func (b *Bot) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		msg := domain.MessageEvent{
			Text:      textutil.StripMentions(ev.Text),
			ChannelID: ev.Channel,
			SenderID:  ev.User,
			Mentioned: true,
			Timestamp: parseSlackTS(ev.TimeStamp),
		}
		msg.ThreadID = ev.TimeStamp
		if ev.ThreadTimeStamp != "" && ev.ThreadTimeStamp != ev.TimeStamp {
			msg.IsReply = true
			msg.ThreadID = ev.ThreadTimeStamp
			msg.ParentText, msg.ParentMentioned = b.parentInfo(ctx, ev.Channel, ev.ThreadTimeStamp)
		}
		go b.process(ctx, msg)

	case *slackevents.MessageEvent:
		// Mentions arrive as app_mention too; handle them there only.
		if ev.BotID != "" || ev.User == b.botUID || ev.User == "" {
			return
		}
		if strings.Contains(ev.Text, "<@"+b.botUID+">") {
			return
		}
		// Only thread replies matter here; channel chatter is not ours.
		if ev.ThreadTimeStamp == "" || ev.ThreadTimeStamp == ev.TimeStamp {
			return
		}
		parentText, parentMentioned := b.parentInfo(ctx, ev.Channel, ev.ThreadTimeStamp)
		msg := domain.MessageEvent{
			Text:            textutil.StripMentions(ev.Text),
			ChannelID:       ev.Channel,
			SenderID:        ev.User,
			ThreadID:        ev.ThreadTimeStamp,
			IsReply:         true,
			ParentText:      parentText,
			ParentMentioned: parentMentioned,
			Timestamp:       parseSlackTS(ev.TimeStamp),
		}
		go b.process(ctx, msg)
	}
}

// parentInfo fetches the thread's root message so replies can be
// classified with context and unaddressed threads can be skipped.
func (b *Bot) parentInfo(ctx context.Context, channelID, threadTS string) (text string, mentioned bool) {
	msgs, _, _, err := b.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     1,
	})
	if err != nil || len(msgs) == 0 {
		b.logger.Warn("could not fetch thread parent", "thread", threadTS, "error", err)
		return "", false
	}
	raw := msgs[0].Text
	return textutil.StripMentions(raw), strings.Contains(raw, "<@"+b.botUID+">")
}

// lockThread serializes processing per thread. Returns the unlock func.
func (b *Bot) lockThread(threadID string) func() {
	mu, _ := b.threadLocks.LoadOrStore(threadID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (b *Bot) process(ctx context.Context, msg domain.MessageEvent) {
	defer b.lockThread(msg.ThreadID)()

	if msg.Mentioned {
		// Mentions get an immediate ack; the real reply can take a while
		// when a document or sheet read is involved.
		b.post(ctx, domain.Reply{
			ChannelID: msg.ChannelID,
			ThreadID:  msg.ThreadID,
			Text:      ":eyes: Got your request! Processing...",
		})
	}
	resp, ok := b.router.Route(ctx, msg)
	if !ok {
		return
	}
	if resp.Text != "" {
		b.post(ctx, domain.Reply{ChannelID: msg.ChannelID, ThreadID: msg.ThreadID, Text: resp.Text})
	}
	for _, f := range resp.Files {
		f.ChannelID = msg.ChannelID
		f.ThreadID = msg.ThreadID
		if err := b.upload(ctx, f); err != nil {
			b.logger.Error("file upload failed", "path", f.Path, "error", err)
			b.post(ctx, domain.Reply{
				ChannelID: msg.ChannelID,
				ThreadID:  msg.ThreadID,
				Text:      "I generated the document but couldn't upload it here: " + err.Error(),
			})
		}
	}
}

func (b *Bot) post(ctx context.Context, reply domain.Reply) {
	for _, chunk := range splitMessage(reply.Text) {
		_, _, err := b.api.PostMessageContext(ctx, reply.ChannelID,
			slack.MsgOptionText(chunk, false),
			slack.MsgOptionTS(reply.ThreadID),
		)
		if err != nil {
			b.logger.Error("post message failed", "channel", reply.ChannelID, "error", err)
			return
		}
	}
}

func (b *Bot) upload(ctx context.Context, f domain.FileUpload) error {
	info, err := os.Stat(f.Path)
	if err != nil {
		return fmt.Errorf("stat upload: %w", err)
	}
	_, err = b.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		File:            f.Path,
		FileSize:        int(info.Size()),
		Filename:        info.Name(),
		Title:           f.Title,
		InitialComment:  f.Comment,
		Channel:         f.ChannelID,
		ThreadTimestamp: f.ThreadID,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.Path, err)
	}
	return nil
}

// splitMessage chunks text on line boundaries to stay under Slack's
// message length cap. A single oversized line is hard-split.
func splitMessage(text string) []string {
	if len(text) <= maxMessageLen {
		return []string{text}
	}
	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxMessageLen {
			chunks = append(chunks, flush(&current), line[:maxMessageLen])
			line = line[maxMessageLen:]
		}
		if current.Len()+len(line)+1 > maxMessageLen {
			chunks = append(chunks, flush(&current))
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	// Drop empties produced by flushing an empty builder.
	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func flush(b *strings.Builder) string {
	s := b.String()
	b.Reset()
	return s
}

func parseSlackTS(ts string) time.Time {
	var sec, frac int64
	if _, err := fmt.Sscanf(ts, "%d.%d", &sec, &frac); err != nil {
		return time.Now()
	}
	return time.Unix(sec, 0)
}
