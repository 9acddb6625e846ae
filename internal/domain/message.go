package domain

import "time"

// MessageEvent is a single inbound Slack message, normalized by the transport.
// ThreadID is the thread timestamp the conversation lives in: for a top-level
// mention it equals the message's own timestamp.
type MessageEvent struct {
	Text            string
	ThreadID        string
	ChannelID       string
	SenderID        string
	IsReply         bool
	Mentioned       bool
	ParentMentioned bool
	ParentText      string
	Timestamp       time.Time
}

// Reply is an outbound text message, posted into the event's thread.
type Reply struct {
	ChannelID string
	ThreadID  string
	Text      string
}

// FileUpload is an outbound binary artifact (agreement, invoice) posted into
// a thread.
type FileUpload struct {
	ChannelID string
	ThreadID  string
	Path      string
	Title     string
	Comment   string
}
