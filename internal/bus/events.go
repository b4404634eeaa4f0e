package bus

import "time"

type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	CourseID  string
	Timestamp time.Time
	Metadata  map[string]any
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	ReplyTo  string
	Metadata map[string]any
}
