package message

import "strings"

const (
	SegmentText = "text"
	SegmentAt   = "at"
)

// Segment é um elemento da mensagem no formato array do OneBot v11.
type Segment struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

// Chain is an ordered sequence of segments sent as a single message.
type Chain []Segment

// Text builds a plain text segment.
func Text(s string) Segment {
	return Segment{Type: SegmentText, Data: map[string]string{"text": s}}
}

// At builds a mention of the given user.
func At(userID string) Segment {
	return Segment{Type: SegmentAt, Data: map[string]string{"qq": userID}}
}

func (s Segment) IsText() bool { return s.Type == SegmentText }

func (s Segment) IsMention() bool { return s.Type == SegmentAt }

// Plain wraps a single text into a chain.
func Plain(s string) Chain {
	return Chain{Text(s)}
}

func (c Chain) Empty() bool {
	return len(c) == 0
}

// PlainText renders the chain for logs, mentions become @<id>.
func (c Chain) PlainText() string {
	var b strings.Builder
	for _, seg := range c {
		switch seg.Type {
		case SegmentText:
			b.WriteString(seg.Data["text"])
		case SegmentAt:
			b.WriteString("@")
			b.WriteString(seg.Data["qq"])
		}
	}
	return b.String()
}
